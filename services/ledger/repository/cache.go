package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finvero/ledgercore/internal/pkg/circuitbreaker"
	"github.com/finvero/ledgercore/internal/pkg/database"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
)

const accountCacheKeyPrefix = "ledger:account:"

// AccountCache caches account snapshots in Redis behind its own
// circuit breaker. It is read acceleration only: every failure
// degrades to a store read and balances are never served stale to the
// posting path.
type AccountCache struct {
	cfg     *models.Config
	redis   *database.RedisClient
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.ZapLogger
}

// NewAccountCache creates a new account cache
func NewAccountCache(cfg *models.Config, redis *database.RedisClient, breaker *circuitbreaker.CircuitBreaker, l *logger.ZapLogger) *AccountCache {
	return &AccountCache{
		cfg:     cfg,
		redis:   redis,
		breaker: breaker,
		logger:  l,
	}
}

// GetAccount returns the cached snapshot or an error on miss/failure
func (c *AccountCache) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account *models.Account
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		raw, err := c.redis.Get(ctx, accountCacheKeyPrefix+id)
		if err != nil {
			return err
		}
		account = &models.Account{}
		if err := json.Unmarshal([]byte(raw), account); err != nil {
			return fmt.Errorf("corrupt cache entry for account %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// SetAccount stores a snapshot with the configured TTL
func (c *AccountCache) SetAccount(ctx context.Context, account *models.Account) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		raw, err := json.Marshal(account)
		if err != nil {
			return fmt.Errorf("failed to marshal account %s: %w", account.ID, err)
		}
		return c.redis.Set(ctx, accountCacheKeyPrefix+account.ID, raw, c.cfg.Redis.AccountTTL)
	})
}

// InvalidateAccount drops the snapshot after a committed mutation
func (c *AccountCache) InvalidateAccount(ctx context.Context, id string) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.redis.Delete(ctx, accountCacheKeyPrefix+id)
	})
}
