package appendlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ionflux/datacenter/model"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	dir := t.TempDir()
	l, err := New(dir, 2, 10, 100, nil)
	require.NoError(t, err)
	l.Start(context.Background())
	t.Cleanup(func() { l.Stop(5 * time.Second) })
	return l
}

func TestSubmitWritesCSVWithHeader(t *testing.T) {
	l := newTestLog(t)
	tick := model.Tick{InstrumentID: "IF2501", TradingDay: "20260730", LastPrice: 4500, Timestamp: time.Now()}

	l.Submit("IF2501", "20260730", []model.Tick{tick})
	l.Stop(5 * time.Second)

	path := l.filePath("IF2501", "20260730")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "TradingDay")
	require.Contains(t, string(data), "IF2501")
}

func TestHashInstrumentIsStable(t *testing.T) {
	l := newTestLog(t)
	first := l.hashInstrument("IF2501")
	for i := 0; i < 10; i++ {
		require.Equal(t, first, l.hashInstrument("IF2501"))
	}
}

func TestPostSessionDedupSortsAndArchives(t *testing.T) {
	dir := t.TempDir()
	dayDir := filepath.Join(dir, "20260730")
	require.NoError(t, os.MkdirAll(dayDir, 0o755))

	csvPath := filepath.Join(dayDir, "IF2501.csv")
	content := "TradingDay,ExchangeID,LastPrice,Timestamp\n" +
		"20260730,CFFEX,4500,2026-07-30T10:00:02Z\n" +
		"20260730,CFFEX,4501,2026-07-30T10:00:01Z\n" +
		"20260730,CFFEX,4502,2026-07-30T10:00:02Z\n" // duplicate timestamp, should keep this one
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o644))

	l, err := New(dir, 1, 10, 10, nil)
	require.NoError(t, err)

	result, err := l.RunPostSession("20260730")
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesCleaned)
	require.FileExists(t, result.ArchivePath)

	_, statErr := os.Stat(dayDir)
	require.True(t, os.IsNotExist(statErr))
}
