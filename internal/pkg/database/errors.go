package database

import (
	"errors"

	"github.com/jackc/pgconn"
)

// SQLSTATE codes reported by the store for conflicts that are safe to
// retry, and for idempotency-key collisions.
const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateUniqueViolation      = "23505"
)

// IsRetryableConflict reports whether err is a store-reported
// serialization failure or deadlock. Classification relies on the
// SQLSTATE code only, never on message text.
func IsRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlstateSerializationFailure || pgErr.Code == sqlstateDeadlockDetected
}

// IsUniqueViolation reports whether err is a unique-constraint
// violation (used to detect concurrent idempotency-key races).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlstateUniqueViolation
}
