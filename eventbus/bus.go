// Package eventbus implements the publish/subscribe backbone that ties
// every other component together: gateway and tick events flow in, bars
// and subscription requests flow out. A subscription is either
// synchronous — run on a worker from the market or general pool, with the
// publisher blocked until it returns — or async, routed to one of N
// per-instrument worker shards so a handler that owns per-instrument state
// (a bar generator) never has to synchronize with itself, and the
// publisher does not wait for it to run.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/ionflux/datacenter"
	"github.com/ionflux/datacenter/model"
)

// Handler processes one event. A non-nil error is logged but never stops
// the bus or other subscribers from receiving the event.
type Handler func(ctx context.Context, evt model.Event) error

// Config sizes the sync worker pools, the async shard runtime, and the
// timer producer.
type Config struct {
	MarketWorkers  int
	GeneralWorkers int
	AsyncShards    int
	QueueSize      int
	TimerInterval  time.Duration
}

type subscription struct {
	id      string
	topic   model.EventType
	handler Handler
	async   bool
	mu      sync.RWMutex
	cancel  bool
}

// Bus is the in-process event bus. One instance serves the whole pipeline.
type Bus struct {
	cfg    Config
	logger datacenter.Logger

	mu   sync.RWMutex
	subs map[model.EventType]map[string]*subscription

	marketQueue  chan func() // sync handlers for market-typed events
	generalQueue chan func() // sync handlers for general-typed events
	asyncShards  []chan func() // async handlers: one dedicated worker per
	// shard, keyed by the event payload's instrument so per-instrument
	// state is only ever touched by the one goroutine that owns it

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func New(cfg Config, logger datacenter.Logger) *Bus {
	if logger == nil {
		logger = datacenter.NopLogger{}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.AsyncShards <= 0 {
		cfg.AsyncShards = 8
	}
	return &Bus{
		cfg:    cfg,
		logger: logger,
		subs:   make(map[model.EventType]map[string]*subscription),
	}
}

// Start boots the worker pools and, if TimerInterval > 0, the periodic
// timer producer that publishes EventTimer on every tick.
func (b *Bus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	b.marketQueue = make(chan func(), b.cfg.QueueSize)
	b.generalQueue = make(chan func(), b.cfg.QueueSize)
	b.asyncShards = make([]chan func(), b.cfg.AsyncShards)

	for i := 0; i < b.cfg.MarketWorkers; i++ {
		b.wg.Add(1)
		go b.worker(b.marketQueue)
	}
	for i := 0; i < b.cfg.GeneralWorkers; i++ {
		b.wg.Add(1)
		go b.worker(b.generalQueue)
	}
	for i := range b.asyncShards {
		b.asyncShards[i] = make(chan func(), b.cfg.QueueSize)
		b.wg.Add(1)
		go b.worker(b.asyncShards[i])
	}

	if b.cfg.TimerInterval > 0 {
		b.wg.Add(1)
		go b.timerProducer(b.cfg.TimerInterval)
	}

	b.started = true
	b.logger.Info("event bus started",
		"market_workers", b.cfg.MarketWorkers, "general_workers", b.cfg.GeneralWorkers, "async_shards", b.cfg.AsyncShards)
	return nil
}

// Stop cancels all workers; each runs the tasks still in its queue and then
// exits. Stop waits (bounded by ctx) for them to finish.
func (b *Bus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.cancel()
	b.started = false
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return datacenter.ErrBusStopped
	}
}

func (b *Bus) timerProducer(interval time.Duration) {
	defer b.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.ctx.Done():
			return
		case t := <-ticker.C:
			_ = b.Publish(b.ctx, model.Event{Type: model.EventTimer, Source: "eventbus", Payload: t, CreatedAt: t})
		}
	}
}

// Subscribe registers a synchronous handler: the bus runs it on a worker
// from the market or general pool (matched to the event's own routing) and
// blocks the publishing call until the handler returns.
func (b *Bus) Subscribe(topic model.EventType, h Handler) (string, error) {
	return b.subscribe(topic, h, false)
}

// SubscribeAsync registers a handler on the bus's per-instrument worker
// runtime: every event for the same instrument always lands on the same
// shard goroutine, so ordering is preserved per instrument without the
// handler needing its own lock. Publish does not wait for it to run.
func (b *Bus) SubscribeAsync(topic model.EventType, h Handler) (string, error) {
	return b.subscribe(topic, h, true)
}

func (b *Bus) subscribe(topic model.EventType, h Handler, async bool) (string, error) {
	if h == nil {
		return "", datacenter.ErrNoSubscribers
	}
	sub := &subscription{id: uuid.NewString(), topic: topic, handler: h, async: async}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]*subscription)
	}
	b.subs[topic][sub.id] = sub
	b.mu.Unlock()

	return sub.id, nil
}

// Unsubscribe removes a subscription by id, no-op if not found.
func (b *Bus) Unsubscribe(topic model.EventType, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subs[topic]; ok {
		if s, ok := subs[id]; ok {
			s.mu.Lock()
			s.cancel = true
			s.mu.Unlock()
		}
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.subs, topic)
		}
	}
}

// Publish dispatches an event to every subscriber of its topic. Market
// events are not dropped for a full queue: the publisher retries with
// backoff until there is room, and drops the event only if ctx is
// cancelled first. General events favor liveness over completeness and
// are dropped at once if the target queue (the general pool, or the async
// shard for async subscribers) is saturated.
func (b *Bus) Publish(ctx context.Context, evt model.Event) error {
	b.mu.RLock()
	if !b.started {
		b.mu.RUnlock()
		return datacenter.ErrBusStopped
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	if evt.TraceID == "" {
		evt.TraceID = uuid.NewString()
	}
	subs := b.subs[evt.Type]
	targets := make([]*subscription, 0, len(subs))
	for _, s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return nil
	}

	market := evt.Type.IsMarket()
	for _, sub := range targets {
		sub.mu.RLock()
		cancelled := sub.cancel
		sub.mu.RUnlock()
		if cancelled {
			continue
		}
		b.dispatch(ctx, sub, evt, market)
	}
	return nil
}

// shardFor picks the async worker for evt, keyed by the event payload's
// instrument where it has one so the same instrument always lands on the
// same shard goroutine; events with no instrument (timers, gateway
// lifecycle events) all share shard zero, which is fine since nothing
// async-subscribed to those needs per-instrument ordering.
func (b *Bus) shardFor(evt model.Event) int {
	var key string
	if ik, ok := evt.Payload.(model.InstrumentKeyed); ok {
		key = ik.InstrumentKey()
	}
	return int(xxhash.Sum64String(key) % uint64(len(b.asyncShards)))
}

func (b *Bus) dispatch(ctx context.Context, sub *subscription, evt model.Event, neverDrop bool) {
	done := make(chan struct{})
	task := func() {
		if err := sub.handler(b.ctx, evt); err != nil {
			b.logger.Error("event handler failed", "topic", evt.Type, "error", err)
		}
		b.delivered.Add(1)
		close(done)
	}

	var queue chan func()
	switch {
	case sub.async:
		queue = b.asyncShards[b.shardFor(evt)]
	case evt.Type.IsMarket():
		queue = b.marketQueue
	default:
		queue = b.generalQueue
	}

	if !neverDrop {
		select {
		case queue <- task:
		default:
			b.dropped.Add(1)
			return
		}
	} else {
		// Market data: retry with exponential backoff rather than drop, since a
		// dropped tick can never be recovered once the gateway has moved on.
		backoff := time.Millisecond
		const maxBackoff = 50 * time.Millisecond
	retry:
		for {
			select {
			case queue <- task:
				break retry
			case <-ctx.Done():
				b.dropped.Add(1)
				return
			default:
			}
			select {
			case queue <- task:
				break retry
			case <-time.After(backoff):
				if backoff < maxBackoff {
					backoff *= 2
				}
			case <-ctx.Done():
				b.dropped.Add(1)
				return
			}
		}
	}

	if !sub.async {
		// Sync handlers block the publisher until the pool worker finishes,
		// so Publish still observes the handler's effect before it returns.
		<-done
	}
}

func (b *Bus) worker(queue chan func()) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			// drain what is already queued so no accepted event is lost and
			// no sync publisher is left waiting on its done channel
			for {
				select {
				case task := <-queue:
					task()
				default:
					return
				}
			}
		case task := <-queue:
			task()
		}
	}
}

// Stats returns cumulative delivered/dropped counters for the health/metrics
// layer to poll.
func (b *Bus) Stats() (delivered, dropped uint64) {
	return b.delivered.Load(), b.dropped.Load()
}
