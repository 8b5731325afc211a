package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/finvero/ledgercore/internal/pkg/logger"
)

// State represents the circuit breaker state
type State int

const (
	// StateClosed allows requests to pass through
	StateClosed State = iota
	// StateOpen blocks requests and returns immediately
	StateOpen
	// StateHalfOpen allows a limited number of requests to probe the dependency
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Errors
var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrTooManyRequests    = errors.New("too many requests in half-open state")
)

// Config holds circuit breaker configuration
type Config struct {
	Name             string                                  // Name of the protected dependency
	MaxHalfOpenCalls uint32                                  // Max probe calls allowed in half-open state
	ResetTimeout     time.Duration                           // Time to wait in open state before probing
	FailureThreshold uint32                                  // Consecutive failures to trip open
	SuccessThreshold uint32                                  // Consecutive half-open successes to close
	OnStateChange    func(name string, from State, to State) // State change callback
	IsFailure        func(err error) bool                    // Decides whether an error counts as failure
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxHalfOpenCalls: 1,
		ResetTimeout:     30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		IsFailure: func(err error) bool {
			return err != nil
		},
	}
}

// Counts holds the counters for a circuit breaker
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// CircuitBreaker implements the circuit breaker pattern. Transitions
// depend only on the current state, the counters, the configured
// thresholds and elapsed time, so a fixed outcome sequence always
// replays the same state sequence.
type CircuitBreaker struct {
	config Config
	logger *logger.ZapLogger

	// now is swappable in tests for deterministic transition replay
	now func() time.Time

	mutex       sync.RWMutex
	state       State
	counts      Counts
	openedUntil time.Time
	forced      bool
	lastFailure time.Time
}

// New creates a new circuit breaker
func New(config Config, l *logger.ZapLogger) *CircuitBreaker {
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.MaxHalfOpenCalls == 0 {
		config.MaxHalfOpenCalls = 1
	}
	return &CircuitBreaker{
		config: config,
		logger: l,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute runs fn with circuit breaker protection
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterRequest(err)
	return err
}

// ExecuteWithFallback runs fn with circuit breaker protection. When
// the breaker rejects the call, or fn fails, fallback is invoked
// instead of surfacing the error. fn is never invoked while the
// breaker rejects calls.
func (cb *CircuitBreaker) ExecuteWithFallback(ctx context.Context, fn func(context.Context) error, fallback func(context.Context, error) error) error {
	if err := cb.beforeRequest(); err != nil {
		return fallback(ctx, err)
	}

	err := fn(ctx)
	cb.afterRequest(err)
	if err != nil && cb.config.IsFailure(err) {
		return fallback(ctx, err)
	}
	return err
}

// beforeRequest checks whether the request should be allowed
func (cb *CircuitBreaker) beforeRequest() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.forced {
		return ErrCircuitBreakerOpen
	}

	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.openedUntil) {
			return ErrCircuitBreakerOpen
		}
		// Reset timeout elapsed: first call after it probes the dependency
		cb.setState(StateHalfOpen)
		cb.counts = Counts{}

	case StateHalfOpen:
		if cb.counts.Requests >= cb.config.MaxHalfOpenCalls {
			return ErrTooManyRequests
		}
	}

	cb.counts.Requests++
	return nil
}

// afterRequest records the outcome and runs the transition logic
func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.config.IsFailure(err) {
		cb.counts.TotalFailures++
		cb.counts.ConsecutiveFailures++
		cb.counts.ConsecutiveSuccesses = 0
		cb.lastFailure = cb.now()

		switch {
		case cb.state == StateClosed && cb.counts.ConsecutiveFailures >= cb.config.FailureThreshold:
			cb.trip()
		case cb.state == StateHalfOpen:
			// Any failure while probing re-opens immediately
			cb.trip()
		}
		return
	}

	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0

	if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
		cb.setState(StateClosed)
		cb.counts = Counts{}
	}
}

// trip moves the breaker to open and schedules the next probe window
func (cb *CircuitBreaker) trip() {
	cb.setState(StateOpen)
	cb.openedUntil = cb.lastFailure.Add(cb.config.ResetTimeout)
}

// ForceOpen is an operational kill-switch: the breaker rejects every
// call until Reset is called. Applies in O(1) and does not wait for
// in-flight calls.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.forced = true
	cb.setState(StateOpen)
}

// Reset clears the forced-open flag and returns the breaker to closed
// with fresh counters.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.forced = false
	cb.setState(StateClosed)
	cb.counts = Counts{}
}

// setState changes the state and triggers callbacks. Caller holds the lock.
func (cb *CircuitBreaker) setState(state State) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state

	cb.logger.Info("Circuit breaker state changed",
		logger.String("name", cb.config.Name),
		logger.String("from", prev.String()),
		logger.String("to", state.String()),
		logger.Uint32("consecutive_failures", cb.counts.ConsecutiveFailures))

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, prev, state)
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() State {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()
	return cb.state
}

// Counts returns the current counters
func (cb *CircuitBreaker) Counts() Counts {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()
	return cb.counts
}

// Name returns the circuit breaker name
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}
