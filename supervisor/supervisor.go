// Package supervisor provides dependency-ordered lifecycle management for
// the pipeline's components: EventBus, HotStore, ColdArchive, AppendLog,
// StorageRouter, ContractRegistry, BarGeneratorSet, Archiver, and the
// gateway adapter. Components register with their dependencies; the
// supervisor topologically sorts them (Kahn's algorithm — a cycle is a
// fatal configuration error) and starts them in that order, stopping them
// in reverse on shutdown.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ionflux/datacenter"
	"github.com/ionflux/datacenter/health"
)

// StartFunc brings a component up; StopFunc tears it down. Either may be
// nil for components with no explicit lifecycle hook.
type StartFunc func(ctx context.Context) error
type StopFunc func(ctx context.Context) error

// HealthFunc reports whether a component is healthy and an optional
// message. When absent, a component is reported healthy iff its state is
// running.
type HealthFunc func(ctx context.Context) (bool, string)

// State is a component's current lifecycle state.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateError   State = "error"
)

type component struct {
	name    string
	deps    []string
	start   StartFunc
	stop    StopFunc
	health  HealthFunc
	state   State
}

// Supervisor is the component registry and lifecycle driver.
type Supervisor struct {
	logger datacenter.Logger

	mu         sync.Mutex
	components map[string]*component
	order      []string // last resolved topological order, for Stop's reverse pass
	running    bool

	aggregator *health.Aggregator

	shutdownTimeout time.Duration
}

func New(logger datacenter.Logger) *Supervisor {
	if logger == nil {
		logger = datacenter.NopLogger{}
	}
	return &Supervisor{
		logger:          logger,
		components:      make(map[string]*component),
		aggregator:      health.NewAggregator(),
		shutdownTimeout: 30 * time.Second,
	}
}

// Register adds a component. deps names other registered (or yet-to-be
// registered) components that must start before this one.
func (s *Supervisor) Register(name string, deps []string, start StartFunc, stop StopFunc, healthFn HealthFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.components[name]; exists {
		return fmt.Errorf("%w: %s", datacenter.ErrAlreadyRegistered, name)
	}

	c := &component{name: name, deps: deps, start: start, stop: stop, health: healthFn, state: StatePending}
	s.components[name] = c

	if healthFn != nil {
		s.aggregator.RegisterCheck(health.NewFuncChecker(name, healthFn))
	} else {
		s.aggregator.RegisterCheck(health.NewFuncChecker(name, func(context.Context) (bool, string) {
			return c.state == StateRunning, string(c.state)
		}))
	}
	return nil
}

// Start resolves the dependency order and invokes every component's
// StartFunc in that order. A component with no StartFunc is skipped. If a
// component fails to start, Start aborts and stops everything that
// completed so far, in reverse order.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	order, err := topoSort(s.components)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.order = order
	s.mu.Unlock()

	started := make([]string, 0, len(order))
	for _, name := range order {
		s.mu.Lock()
		c := s.components[name]
		s.mu.Unlock()

		if c.start == nil {
			s.logger.Debug("component has no start function, skipping", "component", name)
			continue
		}

		s.logger.Info("starting component", "component", name)
		if err := c.start(ctx); err != nil {
			s.mu.Lock()
			c.state = StateError
			s.mu.Unlock()
			s.logger.Error("component failed to start", "component", name, "error", err)

			s.stopInOrder(reversed(started))
			return fmt.Errorf("start component %s: %w", name, err)
		}

		s.mu.Lock()
		c.state = StateRunning
		s.mu.Unlock()
		started = append(started, name)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	return nil
}

// Stop invokes every component's StopFunc in reverse topological order.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	order := s.order
	s.running = false
	s.mu.Unlock()

	return s.stopInOrder(reversed(order))
}

func (s *Supervisor) stopInOrder(order []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	var lastErr error
	for _, name := range order {
		s.mu.Lock()
		c, ok := s.components[name]
		s.mu.Unlock()
		if !ok || c.stop == nil {
			continue
		}

		s.logger.Info("stopping component", "component", name)
		if err := c.stop(ctx); err != nil {
			s.logger.Error("error stopping component", "component", name, "error", err)
			lastErr = err
		}
		s.mu.Lock()
		c.state = StateStopped
		s.mu.Unlock()
	}
	return lastErr
}

// Run starts every component then blocks until SIGINT/SIGTERM, at which
// point it stops everything and returns.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		s.logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	}

	return s.Stop(context.Background())
}

// Health polls every registered component's health function (or its
// running-state fallback) on demand.
func (s *Supervisor) Health(ctx context.Context) *health.AggregatedStatus {
	return s.aggregator.CheckAll(ctx)
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
