package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
)

var errBoom = errors.New("boom")

func newTestBreaker(config Config) (*CircuitBreaker, *time.Time) {
	cb := New(config, logger.NewTestLogger())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	config := DefaultConfig("store")
	config.FailureThreshold = 3
	cb, _ := newTestBreaker(config)

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Equal(t, StateClosed, cb.State())
		err := cb.Execute(ctx, fail)
		assert.ErrorIs(t, err, errBoom)
	}

	assert.Equal(t, StateOpen, cb.State())

	// Calls are rejected without invoking the action
	invoked := false
	err := cb.Execute(ctx, func(context.Context) error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, invoked)
}

func TestBreakerIgnoresNonInfrastructureFailures(t *testing.T) {
	config := DefaultConfig("store")
	config.FailureThreshold = 2
	config.IsFailure = ledgererr.IsInfrastructure
	cb, _ := newTestBreaker(config)

	ctx := context.Background()

	// Rejected requests are the store working correctly, not failing
	for i := 0; i < 10; i++ {
		err := cb.Execute(ctx, func(context.Context) error {
			return ledgererr.Business(ledgererr.ErrInsufficientBalance)
		})
		require.ErrorIs(t, err, ledgererr.ErrInsufficientBalance)
		assert.Equal(t, StateClosed, cb.State())
	}

	// The next valid call still reaches the store
	assert.NoError(t, cb.Execute(ctx, succeed))

	// Infrastructure failures still trip it
	for i := 0; i < 2; i++ {
		require.Error(t, cb.Execute(ctx, func(context.Context) error {
			return ledgererr.Transient(errBoom)
		}))
	}
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	config := DefaultConfig("store")
	config.FailureThreshold = 1
	config.SuccessThreshold = 2
	config.MaxHalfOpenCalls = 5
	config.ResetTimeout = 30 * time.Second
	cb, now := newTestBreaker(config)

	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateOpen, cb.State())

	// Not yet elapsed: still rejected
	*now = now.Add(29 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitBreakerOpen)

	// First call after the timeout probes the dependency
	*now = now.Add(2 * time.Second)
	assert.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.State())

	// Second consecutive success closes the breaker
	assert.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	config := DefaultConfig("queue")
	config.FailureThreshold = 1
	config.SuccessThreshold = 3
	config.ResetTimeout = 10 * time.Second
	cb, now := newTestBreaker(config)

	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateOpen, cb.State())

	*now = now.Add(11 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	// The re-open window is measured from the new failure
	*now = now.Add(9 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitBreakerOpen)
	*now = now.Add(2 * time.Second)
	assert.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestBreakerDeterministicReplay(t *testing.T) {
	// The same outcome/elapsed-time sequence must produce the same
	// state sequence on every run.
	run := func() []State {
		config := DefaultConfig("gateway")
		config.FailureThreshold = 3
		config.SuccessThreshold = 2
		config.MaxHalfOpenCalls = 5
		config.ResetTimeout = time.Minute
		cb, now := newTestBreaker(config)

		ctx := context.Background()
		var states []State

		for i := 0; i < 3; i++ {
			_ = cb.Execute(ctx, fail)
			states = append(states, cb.State())
		}
		*now = now.Add(61 * time.Second)
		_ = cb.Execute(ctx, succeed)
		states = append(states, cb.State())
		_ = cb.Execute(ctx, succeed)
		states = append(states, cb.State())
		return states
	}

	expected := []State{StateClosed, StateClosed, StateOpen, StateHalfOpen, StateClosed}
	assert.Equal(t, expected, run())
	assert.Equal(t, expected, run())
}

func TestBreakerHalfOpenLimitsProbes(t *testing.T) {
	config := DefaultConfig("cache")
	config.FailureThreshold = 1
	config.SuccessThreshold = 5
	config.MaxHalfOpenCalls = 2
	config.ResetTimeout = time.Second
	cb, now := newTestBreaker(config)

	ctx := context.Background()
	require.Error(t, cb.Execute(ctx, fail))

	*now = now.Add(2 * time.Second)
	assert.NoError(t, cb.Execute(ctx, succeed))
	assert.NoError(t, cb.Execute(ctx, succeed))
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrTooManyRequests)
}

func TestBreakerForceOpenAndReset(t *testing.T) {
	cb, now := newTestBreaker(DefaultConfig("store"))

	ctx := context.Background()
	require.NoError(t, cb.Execute(ctx, succeed))

	cb.ForceOpen()
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitBreakerOpen)

	// Forced-open ignores the reset timeout entirely
	*now = now.Add(time.Hour)
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitBreakerOpen)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(ctx, succeed))
}

func TestExecuteWithFallback(t *testing.T) {
	config := DefaultConfig("gateway")
	config.FailureThreshold = 1
	cb, _ := newTestBreaker(config)

	ctx := context.Background()

	// Failure path invokes the fallback with the cause
	var got error
	err := cb.ExecuteWithFallback(ctx, fail, func(_ context.Context, cause error) error {
		got = cause
		return nil
	})
	assert.NoError(t, err)
	assert.ErrorIs(t, got, errBoom)

	// Breaker is now open: the action must not run
	invoked := false
	err = cb.ExecuteWithFallback(ctx, func(context.Context) error {
		invoked = true
		return nil
	}, func(_ context.Context, cause error) error {
		return cause
	})
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, invoked)
}

func TestManagerGetOrCreateReturnsSameInstance(t *testing.T) {
	m := NewManager(logger.NewTestLogger())

	a := m.GetOrCreate("store", DefaultConfig("store"))
	b := m.GetOrCreate("store", DefaultConfig("store"))
	assert.Same(t, a, b)

	_, ok := m.Get("missing")
	assert.False(t, ok)

	stats := m.GetStats()
	require.Contains(t, stats, "store")
	assert.Equal(t, "CLOSED", stats["store"].State)
}
