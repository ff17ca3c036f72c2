package barengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ionflux/datacenter/model"
)

func tick(price float64, volume int64, ts time.Time) model.Tick {
	return model.Tick{
		InstrumentID: "IF2501",
		ExchangeID:   "CFFEX",
		TradingDay:   ts.Format("20060102"),
		LastPrice:    price,
		Volume:       volume,
		Timestamp:    ts,
	}
}

func TestGeneratorOneMinuteWindow(t *testing.T) {
	var finished []model.Bar
	g := NewGenerator("IF2501", "CFFEX", "1m", func(b model.Bar) { finished = append(finished, b) })

	base := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)
	g.UpdateTick(tick(100, 10, base))
	g.UpdateTick(tick(105, 15, base.Add(10*time.Second)))
	g.UpdateTick(tick(95, 20, base.Add(20*time.Second)))

	require.Empty(t, finished)

	// crosses into the next minute slot -> previous bar finishes
	g.UpdateTick(tick(110, 25, base.Add(61*time.Second)))
	require.Len(t, finished, 1)

	bar := finished[0]
	require.Equal(t, 100.0, bar.OpenPrice)
	require.Equal(t, 105.0, bar.HighPrice)
	require.Equal(t, 95.0, bar.LowPrice)
	require.Equal(t, 95.0, bar.ClosePrice)
	require.Equal(t, int64(10), bar.Volume) // 20 - lastVolume(10)
}

func TestGeneratorIgnoresZeroPriceTick(t *testing.T) {
	called := false
	g := NewGenerator("IF2501", "CFFEX", "1m", func(b model.Bar) { called = true })
	g.UpdateTick(model.Tick{InstrumentID: "IF2501"})
	require.False(t, called)
	require.Nil(t, g.current)
}

func TestGeneratorDayBarAlignsToNineAM(t *testing.T) {
	g := NewGenerator("IF2501", "CFFEX", "1d", nil)
	ts := time.Date(2026, 7, 30, 13, 45, 0, 0, time.UTC)
	g.UpdateTick(tick(100, 1, ts))
	require.Equal(t, 9, g.current.Timestamp.Hour())
	require.Equal(t, 0, g.current.Timestamp.Minute())
}
