package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ionflux/datacenter/model"
)

type fakeHot struct {
	ticks map[string][]model.Tick // keyed by trading day
}

func (f *fakeHot) SaveTicks(ctx context.Context, tradingDay string, ticks []model.Tick) error {
	if f.ticks == nil {
		f.ticks = make(map[string][]model.Tick)
	}
	f.ticks[tradingDay] = append(f.ticks[tradingDay], ticks...)
	return nil
}
func (f *fakeHot) SaveBars(ctx context.Context, tradingDay string, bars []model.Bar) error { return nil }
func (f *fakeHot) QueryTicks(ctx context.Context, instrumentID string, tradingDays []string, start, end time.Time) ([]model.Tick, error) {
	var out []model.Tick
	for _, day := range tradingDays {
		for _, t := range f.ticks[day] {
			if !t.Timestamp.Before(start) && !t.Timestamp.After(end) {
				out = append(out, t)
			}
		}
	}
	return out, nil
}
func (f *fakeHot) QueryBars(ctx context.Context, instrumentID, interval string, tradingDays []string, start, end time.Time) ([]model.Bar, error) {
	return nil, nil
}

type fakeCold struct {
	ticks []model.Tick
}

func (f *fakeCold) SaveTicks(instrumentID, date string, rows []model.Tick) error {
	f.ticks = append(f.ticks, rows...)
	return nil
}
func (f *fakeCold) SaveBars(instrumentID, interval, date string, rows []model.Bar) error { return nil }
func (f *fakeCold) QueryTicks(instrumentID string, start, end time.Time) ([]model.Tick, error) {
	var out []model.Tick
	for _, t := range f.ticks {
		if !t.Timestamp.Before(start) && !t.Timestamp.After(end) {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f *fakeCold) QueryBars(instrumentID, interval string, start, end time.Time) ([]model.Bar, error) {
	return nil, nil
}

func TestQueryTicksMergesHotAndCold(t *testing.T) {
	hot := &fakeHot{}
	cold := &fakeCold{}
	r := New(hot, cold, 7, nil)

	now := time.Now()
	oldTick := model.Tick{InstrumentID: "IF2501", Timestamp: now.AddDate(0, 0, -30), LastPrice: 1}
	recentTick := model.Tick{InstrumentID: "IF2501", Timestamp: now, LastPrice: 2}

	cold.ticks = append(cold.ticks, oldTick)
	require.NoError(t, r.SaveTicks(context.Background(), model.WriteBatch{
		InstrumentID: "IF2501", TradingDay: now.Format("20060102"), Ticks: []model.Tick{recentTick},
	}))

	rows, err := r.QueryTicks(context.Background(), "IF2501", now.AddDate(0, 0, -31), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 1.0, rows[0].LastPrice)
	require.Equal(t, 2.0, rows[1].LastPrice)
}

func TestSaveTicksFansOutToBothTiers(t *testing.T) {
	hot := &fakeHot{}
	cold := &fakeCold{}
	r := New(hot, cold, 7, nil)

	batch := model.WriteBatch{InstrumentID: "IF2501", TradingDay: "20260730", Ticks: []model.Tick{{InstrumentID: "IF2501", LastPrice: 100}}}
	require.NoError(t, r.SaveTicks(context.Background(), batch))

	require.Len(t, hot.ticks["20260730"], 1)
	require.Len(t, cold.ticks, 1)
}
