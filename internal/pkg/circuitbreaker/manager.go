package circuitbreaker

import (
	"sync"
	"time"

	"github.com/finvero/ledgercore/internal/pkg/logger"
)

// Manager holds one circuit breaker per protected dependency
type Manager struct {
	breakers map[string]*CircuitBreaker
	mutex    sync.RWMutex
	logger   *logger.ZapLogger
}

// NewManager creates a new circuit breaker manager
func NewManager(l *logger.ZapLogger) *Manager {
	return &Manager{
		breakers: make(map[string]*CircuitBreaker),
		logger:   l,
	}
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (m *Manager) GetOrCreate(name string, config Config) *CircuitBreaker {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if cb, exists := m.breakers[name]; exists {
		return cb
	}

	config.Name = name
	cb := New(config, m.logger)
	m.breakers[name] = cb

	m.logger.Info("Created new circuit breaker",
		logger.String("name", name),
		logger.Uint32("failure_threshold", config.FailureThreshold),
		logger.Duration("reset_timeout", config.ResetTimeout))

	return cb
}

// Get retrieves a circuit breaker by name
func (m *Manager) Get(name string) (*CircuitBreaker, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	cb, exists := m.breakers[name]
	return cb, exists
}

// Stats is a point-in-time snapshot of one breaker
type Stats struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	TotalRequests        uint32 `json:"total_requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
}

// GetStats returns statistics for all circuit breakers
func (m *Manager) GetStats() map[string]Stats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := make(map[string]Stats, len(m.breakers))
	for name, cb := range m.breakers {
		counts := cb.Counts()
		stats[name] = Stats{
			Name:                 name,
			State:                cb.State().String(),
			TotalRequests:        counts.Requests,
			TotalSuccesses:       counts.TotalSuccesses,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
		}
	}

	return stats
}

// FromAppConfig builds a breaker Config from the shared application
// thresholds.
func FromAppConfig(name string, failureThreshold, successThreshold, maxHalfOpen uint32, resetTimeout time.Duration) Config {
	cfg := DefaultConfig(name)
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if successThreshold > 0 {
		cfg.SuccessThreshold = successThreshold
	}
	if maxHalfOpen > 0 {
		cfg.MaxHalfOpenCalls = maxHalfOpen
	}
	if resetTimeout > 0 {
		cfg.ResetTimeout = resetTimeout
	}
	return cfg
}
