package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableConflict(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	deadlock := &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}

	assert.True(t, IsRetryableConflict(serialization))
	assert.True(t, IsRetryableConflict(deadlock))
	assert.False(t, IsRetryableConflict(unique))
	assert.False(t, IsRetryableConflict(errors.New("could not serialize access")))
	assert.False(t, IsRetryableConflict(nil))

	// Classification survives wrapping
	assert.True(t, IsRetryableConflict(fmt.Errorf("commit: %w", serialization)))
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", unique)))
	assert.False(t, IsUniqueViolation(errors.New("duplicate key value")))
	assert.False(t, IsUniqueViolation(nil))
}
