package barengine

import (
	"sync"

	"github.com/ionflux/datacenter/model"
)

// Set lazily creates and owns one Generator per (instrument, interval) pair.
// Creation uses the double-checked locking pattern: a fast read-locked
// lookup on the hot path, falling back to an exclusive-locked insert only
// the first time a pair is seen.
type Set struct {
	mu         sync.RWMutex
	generators map[string]*Generator
	intervals  []string
	onBar      OnBar
}

func NewSet(intervals []string, onBar OnBar) *Set {
	return &Set{
		generators: make(map[string]*Generator),
		intervals:  intervals,
		onBar:      onBar,
	}
}

func key(instrumentID, interval string) string {
	return instrumentID + "|" + interval
}

// Get returns the Generator for (instrumentID, interval), creating it on
// first use.
func (s *Set) Get(instrumentID, exchangeID, interval string) *Generator {
	k := key(instrumentID, interval)

	s.mu.RLock()
	g, ok := s.generators[k]
	s.mu.RUnlock()
	if ok {
		return g
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok = s.generators[k]; ok {
		return g
	}
	g = NewGenerator(instrumentID, exchangeID, interval, s.onBar)
	s.generators[k] = g
	return g
}

// UpdateTick feeds tick into every configured bar interval's generator for
// its instrument, creating generators on demand.
func (s *Set) UpdateTick(tick model.Tick) {
	for _, interval := range s.intervals {
		s.Get(tick.InstrumentID, tick.ExchangeID, interval).UpdateTick(tick)
	}
}

// Flush emits every in-progress bar. The shutdown sequence in
// cmd/datacenter does not call it.
func (s *Set) Flush() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.generators {
		g.Flush()
	}
}
