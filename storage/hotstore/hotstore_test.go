package hotstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ionflux/datacenter/model"
)

func TestNormalizeInstrumentID(t *testing.T) {
	require.Equal(t, "sa601", normalizeInstrumentID("sa601"))
	require.Equal(t, "if2501", normalizeInstrumentID("IF2501"))
	require.Equal(t, "ic2501", normalizeInstrumentID("IC-2501"))
	require.Equal(t, "unknown", normalizeInstrumentID(""))
}

func TestSaveAndQueryTicksRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 1000, nil, nil)
	require.NoError(t, err)
	defer store.Close(context.Background())

	ts := time.Now()
	tick := model.Tick{
		InstrumentID: "IF2501",
		ExchangeID:   "CFFEX",
		TradingDay:   "20260730",
		LastPrice:    4500.0,
		Volume:       120,
		Timestamp:    ts,
	}

	require.NoError(t, store.SaveTicks(context.Background(), "20260730", []model.Tick{tick}))
	store.Flush(context.Background())

	rows, err := store.QueryTicks(context.Background(), "IF2501", []string{"20260730"}, ts.Add(-time.Minute), ts.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 4500.0, rows[0].LastPrice)
}

func TestQueryTicksFiltersOutsideTimestampWindow(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 1000, nil, nil)
	require.NoError(t, err)
	defer store.Close(context.Background())

	ts := time.Now()
	tick := model.Tick{InstrumentID: "IF2501", TradingDay: "20260730", LastPrice: 4500.0, Timestamp: ts}
	require.NoError(t, store.SaveTicks(context.Background(), "20260730", []model.Tick{tick}))
	store.Flush(context.Background())

	rows, err := store.QueryTicks(context.Background(), "IF2501", []string{"20260730"}, ts.Add(time.Minute), ts.Add(2*time.Minute))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestDayFilePathIsOneFilePerTradingDay(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 100, nil, nil)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260730.db"), store.dayFilePath("20260730"))
}
