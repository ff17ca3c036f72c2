// Package router implements StorageRouter: a single write/read façade that
// hides the hot/cold storage split from callers. Writes fan out to both
// tiers; reads are split at a retention-day cutoff and merged.
package router

import (
	"context"
	"sort"
	"time"

	"github.com/ionflux/datacenter"
	"github.com/ionflux/datacenter/model"
)

// HotStore is the subset of storage/hotstore.Store the router needs.
type HotStore interface {
	SaveTicks(ctx context.Context, tradingDay string, ticks []model.Tick) error
	SaveBars(ctx context.Context, tradingDay string, bars []model.Bar) error
	QueryTicks(ctx context.Context, instrumentID string, tradingDays []string, start, end time.Time) ([]model.Tick, error)
	QueryBars(ctx context.Context, instrumentID, interval string, tradingDays []string, start, end time.Time) ([]model.Bar, error)
}

// ColdArchive is the subset of storage/coldarchive.Archive the router needs.
type ColdArchive interface {
	SaveTicks(instrumentID, date string, rows []model.Tick) error
	SaveBars(instrumentID, interval, date string, rows []model.Bar) error
	QueryTicks(instrumentID string, start, end time.Time) ([]model.Tick, error)
	QueryBars(instrumentID, interval string, start, end time.Time) ([]model.Bar, error)
}

// Router is the StorageRouter façade.
type Router struct {
	hot           HotStore
	cold          ColdArchive
	retentionDays int
	logger        datacenter.Logger
}

func New(hot HotStore, cold ColdArchive, retentionDays int, logger datacenter.Logger) *Router {
	if logger == nil {
		logger = datacenter.NopLogger{}
	}
	return &Router{hot: hot, cold: cold, retentionDays: retentionDays, logger: logger}
}

// SaveTicks fans a batch out to both tiers: HotStore for fast recent
// queries, ColdArchive as a durable secondary copy grouped per day.
func (r *Router) SaveTicks(ctx context.Context, batch model.WriteBatch) error {
	if err := r.hot.SaveTicks(ctx, batch.TradingDay, batch.Ticks); err != nil {
		return err
	}
	if err := r.cold.SaveTicks(batch.InstrumentID, batch.TradingDay, batch.Ticks); err != nil {
		r.logger.Error("cold archive secondary write failed", "instrument", batch.InstrumentID, "trading_day", batch.TradingDay, "error", err)
	}
	return nil
}

// SaveBars is SaveTicks' bar-table counterpart.
func (r *Router) SaveBars(ctx context.Context, batch model.WriteBatch) error {
	if err := r.hot.SaveBars(ctx, batch.TradingDay, batch.Bars); err != nil {
		return err
	}
	var interval string
	if len(batch.Bars) > 0 {
		interval = batch.Bars[0].Interval
	}
	if err := r.cold.SaveBars(batch.InstrumentID, interval, batch.TradingDay, batch.Bars); err != nil {
		r.logger.Error("cold archive secondary write failed", "instrument", batch.InstrumentID, "trading_day", batch.TradingDay, "error", err)
	}
	return nil
}

// QueryTicks splits [start, end] at the retention cutoff, scans each tier
// for the portion it owns, and merges the results sorted by timestamp.
func (r *Router) QueryTicks(ctx context.Context, instrumentID string, start, end time.Time) ([]model.Tick, error) {
	cutoff := time.Now().AddDate(0, 0, -r.retentionDays)

	var merged []model.Tick
	if start.Before(cutoff) {
		coldEnd := end
		if !coldEnd.Before(cutoff) {
			coldEnd = cutoff.Add(-time.Nanosecond) // the cutoff instant belongs to the hot scan
		}
		rows, err := r.cold.QueryTicks(instrumentID, start, coldEnd)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rows...)
	}
	if !end.Before(cutoff) {
		hotStart := start
		if hotStart.Before(cutoff) {
			hotStart = cutoff
		}
		rows, err := r.hot.QueryTicks(ctx, instrumentID, datesBetween(hotStart, end), hotStart, end)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rows...)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })
	return merged, nil
}

// QueryBars is QueryTicks' bar-table counterpart, additionally scoped to
// one interval.
func (r *Router) QueryBars(ctx context.Context, instrumentID, interval string, start, end time.Time) ([]model.Bar, error) {
	cutoff := time.Now().AddDate(0, 0, -r.retentionDays)

	var merged []model.Bar
	if start.Before(cutoff) {
		coldEnd := end
		if !coldEnd.Before(cutoff) {
			coldEnd = cutoff.Add(-time.Nanosecond) // the cutoff instant belongs to the hot scan
		}
		rows, err := r.cold.QueryBars(instrumentID, interval, start, coldEnd)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rows...)
	}
	if !end.Before(cutoff) {
		hotStart := start
		if hotStart.Before(cutoff) {
			hotStart = cutoff
		}
		rows, err := r.hot.QueryBars(ctx, instrumentID, interval, datesBetween(hotStart, end), hotStart, end)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rows...)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })
	return merged, nil
}

func datesBetween(start, end time.Time) []string {
	var dates []string
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	for !day.After(last) {
		dates = append(dates, day.Format("20060102"))
		day = day.AddDate(0, 0, 1)
	}
	return dates
}
