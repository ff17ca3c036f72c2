package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ionflux/datacenter/health"
)

func TestStartRunsInDependencyOrder(t *testing.T) {
	s := New(nil)
	var started []string

	require.NoError(t, s.Register("eventbus", nil, func(ctx context.Context) error {
		started = append(started, "eventbus")
		return nil
	}, nil, nil))
	require.NoError(t, s.Register("hotstore", []string{"eventbus"}, func(ctx context.Context) error {
		started = append(started, "hotstore")
		return nil
	}, nil, nil))
	require.NoError(t, s.Register("router", []string{"hotstore"}, func(ctx context.Context) error {
		started = append(started, "router")
		return nil
	}, nil, nil))

	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, []string{"eventbus", "hotstore", "router"}, started)
}

func TestStopRunsInReverseOrder(t *testing.T) {
	s := New(nil)
	var stopped []string

	noopStart := func(ctx context.Context) error { return nil }
	require.NoError(t, s.Register("a", nil, noopStart, func(ctx context.Context) error {
		stopped = append(stopped, "a")
		return nil
	}, nil))
	require.NoError(t, s.Register("b", []string{"a"}, noopStart, func(ctx context.Context) error {
		stopped = append(stopped, "b")
		return nil
	}, nil))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.Equal(t, []string{"b", "a"}, stopped)
}

func TestStartDetectsCycle(t *testing.T) {
	s := New(nil)
	noop := func(ctx context.Context) error { return nil }
	require.NoError(t, s.Register("a", []string{"b"}, noop, nil, nil))
	require.NoError(t, s.Register("b", []string{"a"}, noop, nil, nil))

	err := s.Start(context.Background())
	require.Error(t, err)
}

func TestHealthReportsRunningState(t *testing.T) {
	s := New(nil)
	noop := func(ctx context.Context) error { return nil }
	require.NoError(t, s.Register("a", nil, noop, nil, nil))
	require.NoError(t, s.Start(context.Background()))

	status := s.Health(context.Background())
	require.Contains(t, status.Results, "a")
	require.Equal(t, health.StatusHealthy, status.Results["a"].Status)
}
