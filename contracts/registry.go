// Package contracts manages the full instrument table and its one-time
// bulk subscription once both the market-data and trading gateways report
// ready — or after a bounded timeout elapses and the registry proceeds
// anyway, using the local date in place of the gateway-supplied trading day.
package contracts

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/ionflux/datacenter"
	"github.com/ionflux/datacenter/eventbus"
	"github.com/ionflux/datacenter/model"
)

// Registry owns the instrument table, tracks per-contract subscription and
// last-tick-time state, and publishes exactly one bulk subscription request
// once both gateways are ready (or the readiness timeout elapses).
type Registry struct {
	bus    *eventbus.Bus
	logger datacenter.Logger

	maxWait       time.Duration
	checkInterval time.Duration

	mu            sync.Mutex
	contracts     map[string]*model.Contract
	mdReady       bool
	tdReady       bool
	triggered     bool

	tradingDayMu sync.RWMutex
	tradingDay   string
}

func New(bus *eventbus.Bus, logger datacenter.Logger, maxWait, checkInterval time.Duration) *Registry {
	if logger == nil {
		logger = datacenter.NopLogger{}
	}
	return &Registry{
		bus:           bus,
		logger:        logger,
		maxWait:       maxWait,
		checkInterval: checkInterval,
		contracts:     make(map[string]*model.Contract),
	}
}

// Load reads the instrument table, a JSON object of the form
// {"instrument_id": "exchange_id", ...} (spec §6.2's on-disk format).
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	raw := make(map[string]string)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for instrumentID, exchangeID := range raw {
		if !knownExchange(exchangeID) {
			r.logger.Warn("unknown exchange id, skipping", "instrument", instrumentID, "exchange", exchangeID)
			continue
		}
		r.contracts[instrumentID] = &model.Contract{InstrumentID: instrumentID, ExchangeID: exchangeID}
	}
	r.logger.Info("loaded instrument table", "count", len(r.contracts))
	return nil
}

var knownExchanges = map[string]bool{
	"SHFE": true, "DCE": true, "CZCE": true, "CFFEX": true, "INE": true, "GFEX": true,
}

func knownExchange(id string) bool { return knownExchanges[id] }

// Start registers the registry's event subscriptions and launches the
// background timeout-guard goroutine. Call once after Load.
func (r *Registry) Start(ctx context.Context) error {
	if _, err := r.bus.Subscribe(model.EventMDGatewayLogin, r.onMDGatewayLogin); err != nil {
		return err
	}
	if _, err := r.bus.Subscribe(model.EventTDGatewayLogin, r.onTDGatewayLogin); err != nil {
		return err
	}
	if _, err := r.bus.Subscribe(model.EventTick, r.onTick); err != nil {
		return err
	}
	go r.runTimeoutGuard(ctx)
	return nil
}

func (r *Registry) onMDGatewayLogin(ctx context.Context, evt model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Info("market-data gateway ready")
	r.mdReady = true
	r.checkAndSubscribeLocked()
	return nil
}

func (r *Registry) onTDGatewayLogin(ctx context.Context, evt model.Event) error {
	if tradingDay, ok := evt.Payload.(string); ok && tradingDay != "" {
		r.setTradingDay(tradingDay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Info("trading gateway ready", "trading_day", r.TradingDay())
	r.tdReady = true
	r.checkAndSubscribeLocked()
	return nil
}

func (r *Registry) onTick(ctx context.Context, evt model.Event) error {
	tick, ok := evt.Payload.(model.Tick)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.contracts[tick.InstrumentID]; ok {
		c.LastTickTime = tick.UpdateTime
	}
	return nil
}

// checkAndSubscribeLocked must be called while holding mu.
func (r *Registry) checkAndSubscribeLocked() {
	if r.mdReady && r.tdReady && !r.triggered {
		r.triggered = true
		r.subscribeAllLocked()
	}
}

func (r *Registry) subscribeAllLocked() {
	symbols := make([]string, 0, len(r.contracts))
	for id, c := range r.contracts {
		symbols = append(symbols, id)
		c.Subscribed = true
	}
	r.logger.Info("subscribing to all contracts", "count", len(symbols))
	_ = r.bus.Publish(context.Background(), model.Event{
		Type:    model.EventMarketSubscribeReq,
		Source:  "contracts.Registry",
		Payload: symbols,
	})
}

// runTimeoutGuard polls every checkInterval for up to maxWait; if the
// trading gateway never reports ready in that window, it forces tdReady
// true (falling back to the local date as the trading day) so the pipeline
// isn't stuck waiting forever. The bulk subscription then fires at once if
// the market-data gateway is already ready, otherwise on its login event.
func (r *Registry) runTimeoutGuard(ctx context.Context) {
	deadline := time.Now().Add(r.maxWait)
	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.mu.Lock()
			triggered := r.triggered
			r.mu.Unlock()
			if triggered {
				return
			}
			if now.After(deadline) {
				r.mu.Lock()
				if !r.tdReady && !r.triggered {
					r.logger.Warn("trading gateway readiness timed out, falling back to local date")
					r.setTradingDayLocked(time.Now().Format("20060102"))
					r.tdReady = true
					r.checkAndSubscribeLocked()
				}
				r.mu.Unlock()
				return
			}
		}
	}
}

func (r *Registry) setTradingDay(day string) {
	r.tradingDayMu.Lock()
	defer r.tradingDayMu.Unlock()
	r.tradingDay = day
}

func (r *Registry) setTradingDayLocked(day string) {
	r.tradingDayMu.Lock()
	defer r.tradingDayMu.Unlock()
	r.tradingDay = day
}

// TradingDay returns the trading day derived from the gateway session-open
// event, or the local date if no such event has arrived yet.
func (r *Registry) TradingDay() string {
	r.tradingDayMu.RLock()
	defer r.tradingDayMu.RUnlock()
	if r.tradingDay == "" {
		return time.Now().Format("20060102")
	}
	return r.tradingDay
}

func (r *Registry) Contract(instrumentID string) (*model.Contract, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[instrumentID]
	return c, ok
}

func (r *Registry) AllContracts() []model.Contract {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		out = append(out, *c)
	}
	return out
}
