package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
)

// CreateAccount opens a new account. Accounts are created once per
// participant and never physically deleted.
func (uc *LedgerUsecase) CreateAccount(ctx context.Context, req *models.CreateAccountRequest) (*models.Account, error) {
	if !req.Type.IsValid() {
		return nil, ledgererr.Validation(fmt.Errorf("account type %q is not supported", req.Type))
	}
	if req.Currency == "" {
		return nil, ledgererr.Validation(ledgererr.ErrMissingCurrency)
	}
	if req.OwnerID == "" {
		return nil, ledgererr.Validation(fmt.Errorf("owner id is required"))
	}
	if req.InitialBalance.IsNegative() {
		return nil, ledgererr.Validation(fmt.Errorf("initial balance %s: %w",
			req.InitialBalance, ledgererr.ErrNonPositiveAmount))
	}

	now := time.Now()
	account := &models.Account{
		ID:        uuid.New().String(),
		Balance:   req.InitialBalance,
		Currency:  req.Currency,
		Type:      req.Type,
		OwnerID:   req.OwnerID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := uc.storeBreaker.Execute(ctx, func(ctx context.Context) error {
		return uc.accounts.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	if cacheErr := uc.cache.SetAccount(ctx, account); cacheErr != nil {
		uc.logger.Debug("Failed to warm account cache",
			logger.String("account_id", account.ID), logger.Err(cacheErr))
	}

	return account, nil
}

// GetAccount reads an account, trying the cache first. The cache is
// read acceleration only; any cache failure falls through to the store.
func (uc *LedgerUsecase) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if cached, err := uc.cache.GetAccount(ctx, id); err == nil && cached != nil {
		return cached, nil
	}

	var account *models.Account
	err := uc.storeBreaker.Execute(ctx, func(ctx context.Context) error {
		var readErr error
		account, readErr = uc.accounts.GetAccountByID(ctx, id)
		return readErr
	})
	if err != nil {
		return nil, err
	}

	if cacheErr := uc.cache.SetAccount(ctx, account); cacheErr != nil {
		uc.logger.Debug("Failed to populate account cache",
			logger.String("account_id", id), logger.Err(cacheErr))
	}

	return account, nil
}

// UpdateAccountOwner reassigns an account to a new owner using the
// version the caller read. A stale version fails with a conflict the
// caller resolves by re-reading; it is never retried automatically.
func (uc *LedgerUsecase) UpdateAccountOwner(ctx context.Context, id string, expectedVersion int64, ownerID string) error {
	if id == "" {
		return ledgererr.Validation(fmt.Errorf("account id is required"))
	}
	if ownerID == "" {
		return ledgererr.Validation(fmt.Errorf("owner id is required"))
	}
	if expectedVersion < 1 {
		return ledgererr.Validation(fmt.Errorf("expected version %d: versions start at 1", expectedVersion))
	}

	err := uc.storeBreaker.Execute(ctx, func(ctx context.Context) error {
		return uc.accounts.UpdateAccountOwner(ctx, id, expectedVersion, ownerID)
	})
	if err != nil {
		return err
	}

	if cacheErr := uc.cache.InvalidateAccount(ctx, id); cacheErr != nil {
		uc.logger.Debug("Failed to invalidate account cache",
			logger.String("account_id", id), logger.Err(cacheErr))
	}
	return nil
}

// GetBalance returns an account's current balance
func (uc *LedgerUsecase) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := uc.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}
