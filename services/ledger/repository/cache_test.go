package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvero/ledgercore/internal/pkg/circuitbreaker"
	"github.com/finvero/ledgercore/internal/pkg/database"
	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
)

func setupAccountCache(t *testing.T) (*AccountCache, redismock.ClientMock, *circuitbreaker.CircuitBreaker) {
	t.Helper()
	client, redisMock := redismock.NewClientMock()

	breakerCfg := circuitbreaker.DefaultConfig("cache")
	breakerCfg.FailureThreshold = 3
	breakerCfg.IsFailure = func(err error) bool {
		return !database.IsCacheMiss(err) && ledgererr.IsInfrastructure(err)
	}
	breaker := circuitbreaker.New(breakerCfg, logger.NewTestLogger())

	cfg := &models.Config{}
	cfg.Redis.AccountTTL = time.Minute

	cache := NewAccountCache(cfg, database.NewRedisClientFromExisting(client), breaker, logger.NewTestLogger())
	return cache, redisMock, breaker
}

func TestAccountCache_RoundTrip(t *testing.T) {
	cache, redisMock, _ := setupAccountCache(t)

	account := &models.Account{ID: "acc-1", Balance: decimal.NewFromInt(100), Currency: "IDR"}
	raw, err := json.Marshal(account)
	require.NoError(t, err)

	redisMock.ExpectSet(accountCacheKeyPrefix+"acc-1", raw, time.Minute).SetVal("OK")
	redisMock.ExpectGet(accountCacheKeyPrefix + "acc-1").SetVal(string(raw))
	redisMock.ExpectDel(accountCacheKeyPrefix + "acc-1").SetVal(1)

	require.NoError(t, cache.SetAccount(context.Background(), account))

	got, err := cache.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)
	assert.True(t, got.Balance.Equal(account.Balance))

	require.NoError(t, cache.InvalidateAccount(context.Background(), "acc-1"))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestAccountCache_ColdMissesDoNotTripBreaker(t *testing.T) {
	cache, redisMock, breaker := setupAccountCache(t)

	// Absent keys are Redis answering correctly, so a burst of misses
	// on cold accounts must leave the cache usable.
	for i := 0; i < 5; i++ {
		redisMock.ExpectGet(accountCacheKeyPrefix + "acc-cold").RedisNil()
	}
	for i := 0; i < 5; i++ {
		_, err := cache.GetAccount(context.Background(), "acc-cold")
		require.Error(t, err)
		assert.True(t, database.IsCacheMiss(err))
	}

	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestAccountCache_ConnectionErrorsTripBreaker(t *testing.T) {
	cache, redisMock, breaker := setupAccountCache(t)

	for i := 0; i < 3; i++ {
		redisMock.ExpectGet(accountCacheKeyPrefix + "acc-1").SetErr(errors.New("connection refused"))
	}
	for i := 0; i < 3; i++ {
		_, err := cache.GetAccount(context.Background(), "acc-1")
		require.Error(t, err)
	}
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	// The fourth read is rejected without touching Redis
	_, err := cache.GetAccount(context.Background(), "acc-1")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
