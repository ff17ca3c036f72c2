package model

import "time"

// Bar is one completed or in-progress candlestick for an instrument at a
// given interval tag ("1m", "5m", "1h", "1d", ...).
type Bar struct {
	Interval     string
	InstrumentID string
	ExchangeID   string
	TradingDay   string

	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64

	Volume       int64
	OpenInterest int64

	// LastVolume is the cumulative tick volume observed when this bar was
	// opened; Volume is always derived as tick.Volume - LastVolume.
	LastVolume int64

	UpdateTime string
	Timestamp  time.Time
}

// InstrumentKey satisfies model.InstrumentKeyed so the event bus can pin
// every bar for this instrument to the same async worker.
func (b Bar) InstrumentKey() string { return b.InstrumentID }
