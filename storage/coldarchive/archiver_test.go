package coldarchive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ionflux/datacenter/model"
)

type fakeHotStore struct {
	ticks           map[TickPartitionKey][]model.Tick
	bars            map[BarPartitionKey][]model.Bar
	deletedDays     []string
	compactedDays   []string
	deleteErr       error
}

func (f *fakeHotStore) RowsOlderThan(ctx context.Context, cutoff time.Time) (map[TickPartitionKey][]model.Tick, map[BarPartitionKey][]model.Bar, error) {
	return f.ticks, f.bars, nil
}

func (f *fakeHotStore) DeletePartition(ctx context.Context, tradingDay string) (int64, int64, error) {
	if f.deleteErr != nil {
		return 0, 0, f.deleteErr
	}
	f.deletedDays = append(f.deletedDays, tradingDay)
	return 1, 0, nil
}

func (f *fakeHotStore) Compact(ctx context.Context, tradingDay string) error {
	f.compactedDays = append(f.compactedDays, tradingDay)
	return nil
}

func TestArchiverRunMovesRowsAndDeletes(t *testing.T) {
	dir := t.TempDir()
	cold := New(dir, nil)

	ts := time.Date(2026, 7, 20, 10, 0, 0, 0, time.UTC)
	hot := &fakeHotStore{
		ticks: map[TickPartitionKey][]model.Tick{
			{InstrumentID: "IF2501", Date: "20260720"}: {{InstrumentID: "IF2501", Timestamp: ts, LastPrice: 100}},
		},
	}

	archiver := NewArchiver(hot, cold, 7, nil)
	result, err := archiver.Run(context.Background(), time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, result.Success)
	require.True(t, result.Verified)
	require.Equal(t, int64(1), result.TicksArchived)
	require.Equal(t, []string{"20260720"}, hot.deletedDays)
	require.Equal(t, []string{"20260720"}, hot.compactedDays)

	rows, err := cold.QueryTicks("IF2501", ts.Add(-time.Hour), ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestArchiverRunAbortsOnDeleteFailureAfterVerify(t *testing.T) {
	dir := t.TempDir()
	cold := New(dir, nil)

	ts := time.Now()
	hot := &fakeHotStore{
		ticks: map[TickPartitionKey][]model.Tick{
			{InstrumentID: "IF2501", Date: "20260720"}: {{InstrumentID: "IF2501", Timestamp: ts, LastPrice: 100}},
		},
		deleteErr: context.DeadlineExceeded,
	}

	archiver := NewArchiver(hot, cold, 7, nil)
	result, err := archiver.Run(context.Background(), time.Now())
	require.Error(t, err)
	require.False(t, result.Success)
	require.True(t, result.Verified) // verify still completed before the delete failed
}
