package metrics

// AppendLogStats is the subset of appendlog.Stats this package reads —
// declared here so metrics doesn't import storage/appendlog and invert the
// dependency direction wiring in cmd/datacenter establishes.
type AppendLogStats struct {
	RowsWritten  uint64
	RowsFailed   uint64
	DirectWrites uint64
}

// syncedCounters tracks the last snapshot read from appendlog.Stats, since
// that snapshot is already monotonic and re-adding it wholesale on every
// poll would double count against the prometheus.Counter it feeds.
type syncedCounters struct {
	lastRowsWritten  uint64
	lastRowsFailed   uint64
	lastDirectWrites uint64
}

// SyncAppendLog advances the append log counters by the delta since the
// last call; cmd/datacenter calls it from the append log's health check.
func (c *Collector) SyncAppendLog(stats AppendLogStats) {
	s := c.appendLogState

	if stats.RowsWritten > s.lastRowsWritten {
		c.AppendLogRowsWritten.Add(float64(stats.RowsWritten - s.lastRowsWritten))
		s.lastRowsWritten = stats.RowsWritten
	}
	if stats.RowsFailed > s.lastRowsFailed {
		c.AppendLogRowsFailed.Add(float64(stats.RowsFailed - s.lastRowsFailed))
		s.lastRowsFailed = stats.RowsFailed
	}
	if stats.DirectWrites > s.lastDirectWrites {
		c.AppendLogDirectWrites.Add(float64(stats.DirectWrites - s.lastDirectWrites))
		s.lastDirectWrites = stats.DirectWrites
	}
}

// SyncQueueDepths sets the two event-bus queue-depth gauges. No caller in
// this module feeds it, so the gauges stay at zero unless one does.
func (c *Collector) SyncQueueDepths(marketDepth, generalDepth int) {
	c.MarketQueueSize.Set(float64(marketDepth))
	c.GeneralQueueSize.Set(float64(generalDepth))
}

// SyncZombieFlushCount updates the hot store staleness gauge.
func (c *Collector) SyncZombieFlushCount(count int) {
	c.ZombieFlushCount.Set(float64(count))
}
