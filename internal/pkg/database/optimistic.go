package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
)

// Entity enumerates the row kinds the optimistic lock helper can
// update. The set is closed on purpose: dispatch is compile-time
// checked, never looked up by string name.
type Entity int

const (
	EntityAccount Entity = iota
	EntityInventoryItem
)

func (e Entity) table() string {
	switch e {
	case EntityAccount:
		return "accounts"
	case EntityInventoryItem:
		return "inventory_items"
	default:
		return ""
	}
}

// MutateFunc applies the caller's changes inside the same transaction
// that bumps the row version.
type MutateFunc func(ctx context.Context, tx *sqlx.Tx) error

// WithOptimisticLock performs a version-checked read-modify-write on a
// single row. If the row's version differs from expectedVersion the
// helper fails with ErrOptimisticLockConflict, which is distinct from
// a store-level serialization conflict and never retried
// automatically; the caller must re-read and decide. On success the version counter
// is incremented as part of the same atomic update.
func WithOptimisticLock(ctx context.Context, db *sqlx.DB, entity Entity, id string, expectedVersion int64, mutate MutateFunc) error {
	table := entity.table()
	if table == "" {
		return ledgererr.Internal(fmt.Errorf("unknown entity %d", entity))
	}

	tx, err := db.BeginTxx(ctx, TxReadCommitted)
	if err != nil {
		return ledgererr.Transient(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	var current int64
	query := fmt.Sprintf("SELECT version FROM %s WHERE id = $1", table)
	if err := tx.GetContext(ctx, &current, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Business(fmt.Errorf("%s %s: %w", table, id, ledgererr.ErrAccountNotFound))
		}
		return ledgererr.Transient(fmt.Errorf("failed to read version: %w", err))
	}

	if current != expectedVersion {
		return ledgererr.Business(fmt.Errorf("%s %s: expected version %d, found %d: %w",
			table, id, expectedVersion, current, ledgererr.ErrOptimisticLockConflict))
	}

	if err := mutate(ctx, tx); err != nil {
		return err
	}

	update := fmt.Sprintf("UPDATE %s SET version = version + 1, updated_at = NOW() WHERE id = $1 AND version = $2", table)
	res, err := tx.ExecContext(ctx, update, id, expectedVersion)
	if err != nil {
		return ledgererr.Transient(fmt.Errorf("failed to bump version: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return ledgererr.Internal(err)
	}
	if affected == 0 {
		// The row changed between our read and the update
		return ledgererr.Business(fmt.Errorf("%s %s: %w", table, id, ledgererr.ErrOptimisticLockConflict))
	}

	if err := tx.Commit(); err != nil {
		return ledgererr.Transient(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}
