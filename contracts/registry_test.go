package contracts

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ionflux/datacenter/eventbus"
	"github.com/ionflux/datacenter/model"
)

func writeInstrumentTable(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instrument_exchange.json")
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadSkipsUnknownExchange(t *testing.T) {
	path := writeInstrumentTable(t, map[string]string{
		"IF2501": "CFFEX",
		"XX9999": "MOON",
	})

	bus := eventbus.New(eventbus.Config{MarketWorkers: 1, GeneralWorkers: 1, QueueSize: 8}, nil)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	r := New(bus, nil, 60*time.Second, 3*time.Second)
	require.NoError(t, r.Load(path))

	_, ok := r.Contract("IF2501")
	require.True(t, ok)
	_, ok = r.Contract("XX9999")
	require.False(t, ok)
}

func TestSubscribeAllFiresOnceBothGatewaysReady(t *testing.T) {
	path := writeInstrumentTable(t, map[string]string{"IF2501": "CFFEX"})

	bus := eventbus.New(eventbus.Config{MarketWorkers: 1, GeneralWorkers: 1, QueueSize: 8}, nil)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	r := New(bus, nil, 60*time.Second, 3*time.Second)
	require.NoError(t, r.Load(path))
	require.NoError(t, r.Start(context.Background()))

	var received int
	_, err := bus.Subscribe(model.EventMarketSubscribeReq, func(ctx context.Context, evt model.Event) error {
		received++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), model.Event{Type: model.EventMDGatewayLogin}))
	require.NoError(t, bus.Publish(context.Background(), model.Event{Type: model.EventTDGatewayLogin, Payload: "20260730"}))
	// publishing login events twice must not re-trigger the bulk subscribe
	require.NoError(t, bus.Publish(context.Background(), model.Event{Type: model.EventMDGatewayLogin}))

	require.Eventually(t, func() bool { return received == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "20260730", r.TradingDay())
}
