package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
)

// RetryableFunc represents a function that can be retried
type RetryableFunc func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	MaxRetries    int              // Maximum number of retry attempts
	BaseDelay     time.Duration    // Base delay between retries
	MaxDelay      time.Duration    // Cap on the computed delay
	Multiplier    float64          // Exponential backoff multiplier
	Jitter        bool             // Randomize delays to avoid synchronized retry storms
	RetryableFunc func(error) bool // Decides whether an error is retryable
}

// DefaultConfig returns a default retry configuration. Only errors
// classified as transient are retried; validation and business errors
// propagate immediately without consuming an attempt.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		Jitter:        true,
		RetryableFunc: ledgererr.IsRetryable,
	}
}

// Retrier handles retry logic with exponential backoff
type Retrier struct {
	config Config
	logger *logger.ZapLogger
}

// New creates a new retrier with the given configuration
func New(config Config, l *logger.ZapLogger) *Retrier {
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = ledgererr.IsRetryable
	}
	return &Retrier{config: config, logger: l}
}

// NewWithDefaults creates a new retrier with default configuration
func NewWithDefaults(l *logger.ZapLogger) *Retrier {
	return New(DefaultConfig(), l)
}

// Execute runs fn, retrying transient failures with exponential
// backoff until it succeeds or the retry budget is exhausted.
func (r *Retrier) Execute(ctx context.Context, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("Operation succeeded after retries",
					logger.Int("attempts", attempt+1))
			}
			return nil
		}

		lastErr = err

		if !r.config.RetryableFunc(err) {
			r.logger.Debug("Error is not retryable, stopping",
				logger.Err(err),
				logger.Int("attempt", attempt+1))
			return err
		}

		if attempt == r.config.MaxRetries {
			break
		}

		delay := r.calculateDelay(attempt)
		r.logger.Debug("Operation failed, retrying",
			logger.Err(err),
			logger.Int("attempt", attempt+1),
			logger.Duration("delay", delay),
			logger.Int("max_retries", r.config.MaxRetries))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	r.logger.Error("Operation failed after all retries",
		logger.Err(lastErr),
		logger.Int("total_attempts", r.config.MaxRetries+1))

	return fmt.Errorf("retry limit exceeded after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}

// calculateDelay computes min(base * multiplier^attempt + jitter, cap)
// where jitter is a bounded random fraction (up to 10%) of the
// exponential term.
func (r *Retrier) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.BaseDelay) * math.Pow(r.config.Multiplier, float64(attempt))

	if r.config.Jitter {
		delay += delay * 0.1 * rand.Float64()
	}

	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	return time.Duration(delay)
}
