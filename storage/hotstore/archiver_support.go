package hotstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ionflux/datacenter/model"
	"github.com/ionflux/datacenter/storage/coldarchive"
)

// RowsOlderThan implements coldarchive.HotStore: because one SQLite file
// holds exactly one trading day, "older than cutoff" reduces to "every
// table in every day file whose trading day precedes cutoff's date" — there
// is never a partial day to split out.
func (s *Store) RowsOlderThan(ctx context.Context, cutoff time.Time) (map[coldarchive.TickPartitionKey][]model.Tick, map[coldarchive.BarPartitionKey][]model.Bar, error) {
	ticksOut := make(map[coldarchive.TickPartitionKey][]model.Tick)
	barsOut := make(map[coldarchive.BarPartitionKey][]model.Bar)

	cutoffDay := cutoff.Format("20060102")
	days, err := s.olderDayFiles(cutoffDay)
	if err != nil {
		return nil, nil, err
	}

	for _, day := range days {
		df, err := s.getOrOpenDay(day)
		if err != nil {
			return nil, nil, err
		}

		tickTables, err := tablesWithPrefix(ctx, df.db, "tick_")
		if err != nil {
			return nil, nil, err
		}
		for _, table := range tickTables {
			rows, err := queryAllTicks(ctx, df.db, table)
			if err != nil {
				return nil, nil, err
			}
			if len(rows) == 0 {
				continue
			}
			key := coldarchive.TickPartitionKey{InstrumentID: rows[0].InstrumentID, Date: day}
			ticksOut[key] = append(ticksOut[key], rows...)
		}

		klineTables, err := tablesWithPrefix(ctx, df.db, "kline_")
		if err != nil {
			return nil, nil, err
		}
		for _, table := range klineTables {
			rows, err := queryAllBars(ctx, df.db, table)
			if err != nil {
				return nil, nil, err
			}
			if len(rows) == 0 {
				continue
			}
			byInterval := make(map[string][]model.Bar)
			for _, b := range rows {
				byInterval[b.Interval] = append(byInterval[b.Interval], b)
			}
			for interval, bars := range byInterval {
				key := coldarchive.BarPartitionKey{InstrumentID: bars[0].InstrumentID, Interval: interval, Date: day}
				barsOut[key] = append(barsOut[key], bars...)
			}
		}
	}

	return ticksOut, barsOut, nil
}

// DeletePartition removes an entire trading day's file after its rows have
// been archived and verified — the hot tier never keeps a partial day once
// the whole day has been migrated to cold storage.
func (s *Store) DeletePartition(ctx context.Context, tradingDay string) (int64, int64, error) {
	s.mu.Lock()
	df, ok := s.days[tradingDay]
	if ok {
		delete(s.days, tradingDay)
	}
	s.mu.Unlock()

	path := s.dayFilePath(tradingDay)
	var ticksDeleted, barsDeleted int64

	if ok {
		ticksDeleted, barsDeleted = countRows(ctx, df.db)
		df.db.Close()
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return ticksDeleted, barsDeleted, fmt.Errorf("remove day file %s: %w", path, err)
	}
	return ticksDeleted, barsDeleted, nil
}

func (s *Store) olderDayFiles(cutoffDay string) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var days []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".db" {
			continue
		}
		day := strings.TrimSuffix(name, ".db")
		if day < cutoffDay {
			days = append(days, day)
		}
	}
	return days, nil
}

func tablesWithPrefix(ctx context.Context, db *sql.DB, prefix string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name LIKE ?", prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func queryAllTicks(ctx context.Context, db *sql.DB, table string) ([]model.Tick, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(tickColumns, ","), table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicks(rows)
}

func queryAllBars(ctx context.Context, db *sql.DB, table string) ([]model.Bar, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(barColumns, ","), table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBars(rows)
}

func countRows(ctx context.Context, db *sql.DB) (ticks int64, bars int64) {
	tickTables, err := tablesWithPrefix(ctx, db, "tick_")
	if err == nil {
		for _, table := range tickTables {
			var n int64
			_ = db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
			ticks += n
		}
	}
	klineTables, err := tablesWithPrefix(ctx, db, "kline_")
	if err == nil {
		for _, table := range klineTables {
			var n int64
			_ = db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
			bars += n
		}
	}
	return ticks, bars
}
