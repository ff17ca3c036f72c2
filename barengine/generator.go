// Package barengine synthesizes OHLCV candlesticks from the tick stream.
// Window alignment, the open/high/low/close update rules, and the
// last_volume snapshot technique all mirror the reference bar-aggregation
// algorithm this module was built from.
package barengine

import (
	"strconv"
	"time"

	"github.com/ionflux/datacenter/model"
)

// OnBar is invoked once a bar's window has closed, with the finished bar.
type OnBar func(bar model.Bar)

// Generator accumulates ticks for a single instrument into bars at one
// interval tag ("1m", "5m", "1h", "1d").
type Generator struct {
	interval     string
	minutes      int // parsed minute width for 'm' and 'h' tags; unused for '1d'
	isDay        bool
	instrumentID string
	exchangeID   string
	onBar        OnBar

	current  *model.Bar
	lastTick *model.Tick
}

// NewGenerator parses interval (e.g. "1m", "5m", "1h", "1d") and returns a
// Generator for one instrument. Only "1h" is meaningfully supported among
// hour tags, matching the upstream aggregator's current scope.
func NewGenerator(instrumentID, exchangeID, interval string, onBar OnBar) *Generator {
	g := &Generator{interval: interval, instrumentID: instrumentID, exchangeID: exchangeID, onBar: onBar}
	switch {
	case interval == "1d":
		g.isDay = true
	case len(interval) > 0 && interval[len(interval)-1] == 'm':
		if n, err := strconv.Atoi(interval[:len(interval)-1]); err == nil {
			g.minutes = n
		} else {
			g.minutes = 1
		}
	case len(interval) > 0 && interval[len(interval)-1] == 'h':
		g.minutes = 60 // only 1h is meaningfully distinguished below
	default:
		g.minutes = 1
	}
	return g
}

// UpdateTick feeds one tick into the generator. A tick with no last price is
// ignored outright — it carries no price information to aggregate.
func (g *Generator) UpdateTick(tick model.Tick) {
	if !tick.Valid() {
		return
	}

	if g.shouldStartNewBar(tick) {
		g.finishCurrentBar()
		g.startNewBar(tick)
	}
	if g.current != nil {
		g.updateCurrentBar(tick)
	}
	g.lastTick = &tick
}

func (g *Generator) shouldStartNewBar(tick model.Tick) bool {
	if g.current == nil {
		return true
	}
	if tick.Timestamp.IsZero() || g.current.Timestamp.IsZero() {
		return false
	}
	if g.isDay {
		return tick.TradingDay != g.current.TradingDay
	}
	if g.interval[len(g.interval)-1] == 'h' {
		return g.hourSlot(tick.Timestamp) != g.hourSlot(g.current.Timestamp)
	}
	return g.minuteSlot(tick.Timestamp) != g.minuteSlot(g.current.Timestamp)
}

func (g *Generator) minuteSlot(t time.Time) int {
	return (t.Hour()*60 + t.Minute()) / g.minutes
}

// hourSlot only meaningfully distinguishes "1h"; any other hour multiple
// currently collapses to slot 0, matching the upstream aggregator's scope.
func (g *Generator) hourSlot(t time.Time) int {
	if g.interval == "1h" {
		return t.Hour()
	}
	return 0
}

func (g *Generator) normalizeTime(t time.Time) time.Time {
	switch {
	case g.isDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, t.Location())
	case g.interval[len(g.interval)-1] == 'h':
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	default:
		slot := g.minuteSlot(t)
		totalMinutes := slot * g.minutes
		return time.Date(t.Year(), t.Month(), t.Day(), totalMinutes/60, totalMinutes%60, 0, 0, t.Location())
	}
}

func (g *Generator) startNewBar(tick model.Tick) {
	g.current = &model.Bar{
		Interval:     g.interval,
		InstrumentID: g.instrumentID,
		ExchangeID:   g.exchangeID,
		TradingDay:   tick.TradingDay,
		OpenPrice:    tick.LastPrice,
		HighPrice:    tick.LastPrice,
		LowPrice:     tick.LastPrice,
		ClosePrice:   tick.LastPrice,
		Volume:       0,
		OpenInterest: tick.OpenInterest,
		LastVolume:   tick.Volume,
		Timestamp:    g.normalizeTime(tick.Timestamp),
	}
}

func (g *Generator) updateCurrentBar(tick model.Tick) {
	b := g.current
	if tick.LastPrice > b.HighPrice {
		b.HighPrice = tick.LastPrice
	}
	if tick.LastPrice < b.LowPrice {
		b.LowPrice = tick.LastPrice
	}
	b.ClosePrice = tick.LastPrice
	b.Volume = tick.Volume - b.LastVolume
	b.OpenInterest = tick.OpenInterest
	b.UpdateTime = tick.UpdateTime
}

func (g *Generator) finishCurrentBar() {
	if g.current == nil {
		return
	}
	if g.onBar != nil {
		g.onBar(*g.current)
	}
	g.current = nil
}

// Flush emits the in-progress bar (if any) without waiting for the next
// window to open.
func (g *Generator) Flush() {
	g.finishCurrentBar()
}
