package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/finvero/ledgercore/internal/pkg/database"
	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/models"
)

// AccountRepository manages account rows outside the posting path
type AccountRepository struct {
	cfg    *models.Config
	db     *sqlx.DB
	logger *logger.ZapLogger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(cfg *models.Config, db *sqlx.DB, l *logger.ZapLogger) *AccountRepository {
	return &AccountRepository{
		cfg:    cfg,
		db:     db,
		logger: l,
	}
}

// CreateAccount inserts a new account row
func (r *AccountRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (
			id, balance, currency, type, owner_id, version, created_at, updated_at
		) VALUES (:id, :balance, :currency, :type, :owner_id, :version, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return classifyStoreError(fmt.Errorf("failed to insert account: %w", err))
	}
	return nil
}

// GetAccountByID reads one account row
func (r *AccountRepository) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, balance, currency, type, owner_id, version, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	account := &models.Account{}
	if err := r.db.GetContext(ctx, account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledgererr.Business(fmt.Errorf("account %s: %w", id, ledgererr.ErrAccountNotFound))
		}
		return nil, classifyStoreError(fmt.Errorf("failed to read account %s: %w", id, err))
	}
	return account, nil
}

// UpdateAccountOwner reassigns an account owner using the optimistic
// lock helper: it never touches balances and fails with a conflict
// error when the row version moved since the caller's read.
func (r *AccountRepository) UpdateAccountOwner(ctx context.Context, id string, expectedVersion int64, ownerID string) error {
	return database.WithOptimisticLock(ctx, r.db, database.EntityAccount, id, expectedVersion,
		func(ctx context.Context, tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, "UPDATE accounts SET owner_id = $1 WHERE id = $2", ownerID, id); err != nil {
				return classifyStoreError(fmt.Errorf("failed to update account owner: %w", err))
			}
			return nil
		})
}
