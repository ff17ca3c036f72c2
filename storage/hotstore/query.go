package hotstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ionflux/datacenter/model"
)

// QueryTicks returns tick rows for instrumentID across tradingDays whose
// Timestamp falls in [start, end]. A single day queries its own file
// directly; multiple days ATTACH each additional day's file to the first
// day's connection and UNION ALL across them, avoiding a round trip per
// day. tradingDays only narrows which day files are opened — every branch
// still carries its own Timestamp predicate so a caller asking for a
// sub-day window doesn't get whole-day spillover from the boundary days.
func (s *Store) QueryTicks(ctx context.Context, instrumentID string, tradingDays []string, start, end time.Time) ([]model.Tick, error) {
	if len(tradingDays) == 0 {
		return nil, nil
	}
	table := "tick_" + normalizeInstrumentID(instrumentID)

	primary, err := s.getOrOpenDay(tradingDays[0])
	if err != nil {
		return nil, err
	}

	aliases := []string{"main"}
	for i, day := range tradingDays[1:] {
		alias := fmt.Sprintf("d%d", i)
		path := s.dayFilePath(day)
		if _, err := primary.db.ExecContext(ctx, fmt.Sprintf("ATTACH DATABASE '%s' AS %s", path, alias)); err != nil {
			return nil, fmt.Errorf("attach %s: %w", path, err)
		}
		defer primary.db.ExecContext(ctx, fmt.Sprintf("DETACH DATABASE %s", alias))
		aliases = append(aliases, alias)
	}

	var selects []string
	var args []any
	for _, alias := range aliases {
		var n int
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s.sqlite_master WHERE type='table' AND name = ?", alias)
		if err := primary.db.QueryRowContext(ctx, q, table).Scan(&n); err != nil || n == 0 {
			continue // no data for this instrument on that day
		}
		prefix := ""
		if alias != "main" {
			prefix = alias + "."
		}
		selects = append(selects, fmt.Sprintf("SELECT %s FROM %s%s WHERE Timestamp BETWEEN ? AND ?", strings.Join(tickColumns, ","), prefix, table))
		args = append(args, start, end)
	}
	if len(selects) == 0 {
		return nil, nil
	}
	query := strings.Join(selects, " UNION ALL ") + " ORDER BY Timestamp"

	rows, err := primary.db.QueryContext(ctx, query, args...)
	if err != nil {
		// table may not exist on a day with no data for this instrument
		return nil, nil
	}
	defer rows.Close()

	return scanTicks(rows)
}

// QueryBars is QueryTicks' bar-table counterpart, additionally filtered by
// interval tag.
func (s *Store) QueryBars(ctx context.Context, instrumentID, interval string, tradingDays []string, start, end time.Time) ([]model.Bar, error) {
	if len(tradingDays) == 0 {
		return nil, nil
	}
	table := "kline_" + normalizeInstrumentID(instrumentID)

	primary, err := s.getOrOpenDay(tradingDays[0])
	if err != nil {
		return nil, err
	}

	aliases := []string{"main"}
	for i, day := range tradingDays[1:] {
		alias := fmt.Sprintf("d%d", i)
		path := s.dayFilePath(day)
		if _, err := primary.db.ExecContext(ctx, fmt.Sprintf("ATTACH DATABASE '%s' AS %s", path, alias)); err != nil {
			return nil, fmt.Errorf("attach %s: %w", path, err)
		}
		defer primary.db.ExecContext(ctx, fmt.Sprintf("DETACH DATABASE %s", alias))
		aliases = append(aliases, alias)
	}

	var selects []string
	var args []any
	for _, alias := range aliases {
		var n int
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s.sqlite_master WHERE type='table' AND name = ?", alias)
		if err := primary.db.QueryRowContext(ctx, q, table).Scan(&n); err != nil || n == 0 {
			continue // no data for this instrument on that day
		}
		prefix := ""
		if alias != "main" {
			prefix = alias + "."
		}
		selects = append(selects, fmt.Sprintf("SELECT %s FROM %s%s WHERE BarType = ? AND Timestamp BETWEEN ? AND ?", strings.Join(barColumns, ","), prefix, table))
		args = append(args, interval, start, end)
	}
	if len(selects) == 0 {
		return nil, nil
	}
	query := strings.Join(selects, " UNION ALL ") + " ORDER BY Timestamp"

	rows, err := primary.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil
	}
	defer rows.Close()

	return scanBars(rows)
}

func scanTicks(rows *sql.Rows) ([]model.Tick, error) {
	var out []model.Tick
	for rows.Next() {
		var t model.Tick
		dest := []any{
			&t.TradingDay, &t.ExchangeID, &t.LastPrice, &t.PreSettlementPrice, &t.PreClosePrice,
			&t.PreOpenInterest, &t.OpenPrice, &t.HighestPrice, &t.LowestPrice, &t.Volume, &t.Turnover,
			&t.OpenInterest, &t.ClosePrice, &t.SettlementPrice, &t.UpperLimitPrice, &t.LowerLimitPrice,
			&t.PreDelta, &t.CurrDelta, &t.UpdateTime, &t.UpdateMillisec,
		}
		for i := 0; i < 5; i++ {
			dest = append(dest, &t.BidPrice[i], &t.BidVolume[i], &t.AskPrice[i], &t.AskVolume[i])
		}
		dest = append(dest, &t.AveragePrice, &t.ActionDay, &t.InstrumentID, &t.ExchangeInstID,
			&t.BandingUpperPrice, &t.BandingLowerPrice, &t.Timestamp)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanBars(rows *sql.Rows) ([]model.Bar, error) {
	var out []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Interval, &b.TradingDay, &b.UpdateTime, &b.InstrumentID, &b.ExchangeID,
			&b.Volume, &b.OpenInterest, &b.OpenPrice, &b.HighPrice, &b.LowPrice, &b.ClosePrice,
			&b.LastVolume, &b.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
