package coldarchive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ionflux/datacenter/model"
)

func TestSaveAndQueryTicksRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, nil)

	ts := time.Date(2026, 7, 28, 10, 30, 0, 0, time.UTC)
	tick := model.Tick{InstrumentID: "IF2501", ExchangeID: "CFFEX", TradingDay: "20260728", LastPrice: 4500, Volume: 10, Timestamp: ts}
	require.NoError(t, a.SaveTicks("IF2501", "20260728", []model.Tick{tick}))

	rows, err := a.QueryTicks("IF2501", ts.Add(-time.Hour), ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 4500.0, rows[0].LastPrice)
}

func TestQueryTicksFiltersOutsideWindow(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, nil)

	in := time.Date(2026, 7, 28, 10, 0, 0, 0, time.UTC)
	out := time.Date(2026, 7, 28, 23, 0, 0, 0, time.UTC)
	require.NoError(t, a.SaveTicks("IF2501", "20260728", []model.Tick{
		{InstrumentID: "IF2501", Timestamp: in, LastPrice: 1},
		{InstrumentID: "IF2501", Timestamp: out, LastPrice: 2},
	}))

	rows, err := a.QueryTicks("IF2501", in.Add(-time.Minute), in.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1.0, rows[0].LastPrice)
}

func TestSaveAndQueryBarsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, nil)

	ts := time.Date(2026, 7, 28, 9, 0, 0, 0, time.UTC)
	bar := model.Bar{Interval: "1m", InstrumentID: "IF2501", ClosePrice: 4505, Timestamp: ts}
	require.NoError(t, a.SaveBars("IF2501", "1m", "20260728", []model.Bar{bar}))

	rows, err := a.QueryBars("IF2501", "1m", ts.Add(-time.Minute), ts.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 4505.0, rows[0].ClosePrice)
}

func TestQueryMissingPartitionReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, nil)

	rows, err := a.QueryTicks("MISSING", time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Empty(t, rows)
}
