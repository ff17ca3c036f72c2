package eventbus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ionflux/datacenter/model"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b := New(Config{MarketWorkers: 2, GeneralWorkers: 2, QueueSize: 16}, nil)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() {
		_ = b.Stop(context.Background())
	})
	return b
}

func TestPublishSyncDeliversImmediately(t *testing.T) {
	b := newTestBus(t)

	var got atomic.Int32
	_, err := b.Subscribe(model.EventTick, func(ctx context.Context, evt model.Event) error {
		got.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), model.Event{Type: model.EventTick, Source: "test"}))
	require.Equal(t, int32(1), got.Load())
}

func TestPublishAsyncMarketNeverDrops(t *testing.T) {
	b := newTestBus(t)

	var count atomic.Int32
	_, err := b.SubscribeAsync(model.EventTick, func(ctx context.Context, evt model.Event) error {
		count.Add(1)
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.NoError(t, b.Publish(context.Background(), model.Event{Type: model.EventTick}))
	}

	require.Eventually(t, func() bool { return count.Load() == 200 }, time.Second, 5*time.Millisecond)
	_, dropped := b.Stats()
	require.Zero(t, dropped)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus(t)

	var count atomic.Int32
	id, err := b.Subscribe(model.EventBar, func(ctx context.Context, evt model.Event) error {
		count.Add(1)
		return nil
	})
	require.NoError(t, err)

	b.Unsubscribe(model.EventBar, id)
	require.NoError(t, b.Publish(context.Background(), model.Event{Type: model.EventBar}))
	require.Zero(t, count.Load())
}
