package model

// Contract describes one tradable instrument loaded from the instrument
// table (spec §6.2). Subscribed and LastTickTime are updated in place by
// the contract registry as gateway events and ticks arrive.
type Contract struct {
	InstrumentID string
	ExchangeID   string
	Subscribed   bool
	LastTickTime string
}
