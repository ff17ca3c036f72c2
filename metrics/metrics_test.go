package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSyncAppendLogAddsOnlyTheDelta(t *testing.T) {
	c := New()

	c.SyncAppendLog(AppendLogStats{RowsWritten: 10})
	require.Equal(t, float64(10), testutil.ToFloat64(c.AppendLogRowsWritten))

	c.SyncAppendLog(AppendLogStats{RowsWritten: 25})
	require.Equal(t, float64(25), testutil.ToFloat64(c.AppendLogRowsWritten))
}

func TestSyncQueueDepthsSetsGauges(t *testing.T) {
	c := New()
	c.SyncQueueDepths(5, 12)
	require.Equal(t, float64(5), testutil.ToFloat64(c.MarketQueueSize))
	require.Equal(t, float64(12), testutil.ToFloat64(c.GeneralQueueSize))
}
