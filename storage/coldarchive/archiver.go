package coldarchive

import (
	"context"
	"fmt"
	"time"

	"github.com/ionflux/datacenter"
	"github.com/ionflux/datacenter/model"
)

// HotStore is the subset of storage/hotstore.Store the Archiver needs.
// Declared here, implemented there, so this package doesn't import
// hotstore and create a cycle between the two storage tiers.
type HotStore interface {
	RowsOlderThan(ctx context.Context, cutoff time.Time) (ticksByPartition map[TickPartitionKey][]model.Tick, barsByPartition map[BarPartitionKey][]model.Bar, err error)
	DeletePartition(ctx context.Context, tradingDay string) (ticksDeleted, barsDeleted int64, err error)
	Compact(ctx context.Context, tradingDay string) error
}

// TickPartitionKey groups archived ticks by (instrument, date).
type TickPartitionKey struct {
	InstrumentID string
	Date         string
}

// BarPartitionKey groups archived bars by (instrument, interval, date).
type BarPartitionKey struct {
	InstrumentID string
	Interval     string
	Date         string
}

// Archiver runs the time-driven hot-to-cold migration cycle: extract rows
// older than a retention cutoff from HotStore, write them to ColdArchive,
// verify row counts, only then delete from HotStore, then compact.
type Archiver struct {
	hot           HotStore
	cold          *Archive
	retentionDays int
	logger        datacenter.Logger
}

func NewArchiver(hot HotStore, cold *Archive, retentionDays int, logger datacenter.Logger) *Archiver {
	if logger == nil {
		logger = datacenter.NopLogger{}
	}
	return &Archiver{hot: hot, cold: cold, retentionDays: retentionDays, logger: logger}
}

// Run executes one archive cycle. Failure at any step aborts the cycle and
// leaves HotStore untouched — steps 2 through 4 (extract/write/verify) must
// all succeed before step 5 (delete) runs.
func (a *Archiver) Run(ctx context.Context, today time.Time) (model.ArchiveResult, error) {
	result := model.ArchiveResult{StartedAt: time.Now()}
	cutoff := today.AddDate(0, 0, -a.retentionDays)
	result.CutoffDay = cutoff.Format("20060102")

	ticksByPartition, barsByPartition, err := a.hot.RowsOlderThan(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("extract rows older than cutoff: %w", err)
	}

	writtenTickDays := make(map[string]bool)
	for key, rows := range ticksByPartition {
		if err := a.cold.SaveTicks(key.InstrumentID, key.Date, rows); err != nil {
			return result, fmt.Errorf("archive ticks %s/%s: %w", key.InstrumentID, key.Date, err)
		}
		result.TicksArchived += int64(len(rows))
		writtenTickDays[key.Date] = true
	}

	writtenBarDays := make(map[string]bool)
	for key, rows := range barsByPartition {
		if err := a.cold.SaveBars(key.InstrumentID, key.Interval, key.Date, rows); err != nil {
			return result, fmt.Errorf("archive bars %s/%s/%s: %w", key.InstrumentID, key.Interval, key.Date, err)
		}
		result.BarsArchived += int64(len(rows))
		writtenBarDays[key.Date] = true
	}

	if err := a.verify(ticksByPartition, barsByPartition); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}
	result.Verified = true

	affectedDays := make(map[string]bool)
	for day := range writtenTickDays {
		affectedDays[day] = true
	}
	for day := range writtenBarDays {
		affectedDays[day] = true
	}
	for day := range affectedDays {
		ticksDeleted, barsDeleted, err := a.hot.DeletePartition(ctx, day)
		if err != nil {
			return result, fmt.Errorf("delete archived rows for %s: %w", day, err)
		}
		result.TicksDeleted += ticksDeleted
		result.BarsDeleted += barsDeleted

		if err := a.hot.Compact(ctx, day); err != nil {
			a.logger.Warn("hot store compaction failed", "trading_day", day, "error", err)
		}
	}

	result.Success = true
	return result, nil
}

// verify re-reads what was just written to ColdArchive and checks the row
// counts match what was extracted, per spec step 4.
func (a *Archiver) verify(ticksByPartition map[TickPartitionKey][]model.Tick, barsByPartition map[BarPartitionKey][]model.Bar) error {
	for key, rows := range ticksByPartition {
		written, err := readTickPartition(a.cold.tickPartitionPath(key.InstrumentID, key.Date))
		if err != nil {
			return fmt.Errorf("verify ticks %s/%s: %w", key.InstrumentID, key.Date, err)
		}
		if len(written) != len(rows) {
			return fmt.Errorf("verify ticks %s/%s: wrote %d rows, read back %d", key.InstrumentID, key.Date, len(rows), len(written))
		}
	}
	for key, rows := range barsByPartition {
		written, err := readBarPartition(a.cold.barPartitionPath(key.InstrumentID, key.Interval, key.Date))
		if err != nil {
			return fmt.Errorf("verify bars %s/%s/%s: %w", key.InstrumentID, key.Interval, key.Date, err)
		}
		if len(written) != len(rows) {
			return fmt.Errorf("verify bars %s/%s/%s: wrote %d rows, read back %d", key.InstrumentID, key.Interval, key.Date, len(rows), len(written))
		}
	}
	return nil
}
