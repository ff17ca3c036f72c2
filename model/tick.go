// Package model holds the wire and storage data types shared by every
// component of the pipeline: ticks, bars, contracts, bus events, and the
// record types the storage layer persists alongside them.
package model

import "time"

// Tick is one market-data snapshot for a single instrument. Field names
// mirror the exchange tick schema's column names; the hot store and append
// log list the fields explicitly in the schema's column order.
type Tick struct {
	InstrumentID    string
	ExchangeInstID  string
	ExchangeID      string
	TradingDay      string // YYYYMMDD, as delivered with the tick
	ActionDay       string

	LastPrice          float64
	PreSettlementPrice float64
	PreClosePrice      float64
	PreOpenInterest    int64

	OpenPrice    float64
	HighestPrice float64
	LowestPrice  float64
	ClosePrice   float64

	Volume       int64
	Turnover     float64
	OpenInterest int64

	SettlementPrice float64
	UpperLimitPrice float64
	LowerLimitPrice float64
	PreDelta        float64
	CurrDelta       float64

	UpdateTime      string // HH:MM:SS
	UpdateMillisec  int

	BidPrice  [5]float64
	BidVolume [5]int64
	AskPrice  [5]float64
	AskVolume [5]int64

	AveragePrice      float64
	BandingUpperPrice float64
	BandingLowerPrice float64

	Timestamp time.Time
}

// Valid reports whether the tick carries enough information to be processed.
// Mirrors the original ingestion guard: a tick with no last price is inert.
func (t *Tick) Valid() bool {
	return t != nil && t.LastPrice != 0
}

// InstrumentKey satisfies model.InstrumentKeyed so the event bus can pin
// every tick for this instrument to the same async worker.
func (t Tick) InstrumentKey() string { return t.InstrumentID }
