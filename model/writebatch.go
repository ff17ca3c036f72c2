package model

import "time"

// WriteBatch groups ticks or bars for one instrument and trading day, as
// handed to StorageRouter.SaveTicks/SaveBars. HotStore and AppendLog keep
// their own per-instrument row buffers rather than WriteBatch values.
type WriteBatch struct {
	InstrumentID string
	TradingDay   string
	Ticks        []Tick
	Bars         []Bar
}

func (b *WriteBatch) Len() int { return len(b.Ticks) + len(b.Bars) }

// FailedWrite records one degraded-mode write that could not be persisted
// even after the direct-write fallback also failed; appended to
// failed_writes.log as one line per failed write (not one line per row).
type FailedWrite struct {
	InstrumentID string
	TradingDay   string
	Reason       string
	OccurredAt   time.Time
	RowCount     int // rows that were in the batch, for operator recovery sizing
}

// ArchiveResult summarizes one Archiver run: what was moved from hot
// storage into cold storage and whether the cycle verified cleanly.
type ArchiveResult struct {
	StartedAt     time.Time
	CutoffDay     string
	TicksArchived int64
	BarsArchived  int64
	TicksDeleted  int64
	BarsDeleted   int64
	Verified      bool
	Errors        []string
	Success       bool
}
