package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType identifies the kind of ledger participant
type AccountType string

const (
	AccountTypeUser     AccountType = "USER"
	AccountTypeVendor   AccountType = "VENDOR"
	AccountTypePlatform AccountType = "PLATFORM"
	AccountTypeEscrow   AccountType = "ESCROW"
)

// IsValid reports whether the account type is one of the known kinds
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeUser, AccountTypeVendor, AccountTypePlatform, AccountTypeEscrow:
		return true
	}
	return false
}

// Account represents a ledger participant. Balance and Version are
// mutated only by the ledger transaction manager under a row lock.
type Account struct {
	ID        string          `json:"id" db:"id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Currency  string          `json:"currency" db:"currency"`
	Type      AccountType     `json:"type" db:"type"`
	OwnerID   string          `json:"owner_id" db:"owner_id"`
	Version   int64           `json:"version" db:"version"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// CreateAccountRequest represents a request to open a new account
type CreateAccountRequest struct {
	Currency       string          `json:"currency"`
	Type           AccountType     `json:"type"`
	OwnerID        string          `json:"owner_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// UpdateAccountOwnerRequest reassigns an account to a new owner. The
// caller echoes the version it read so a concurrent change is detected
// instead of silently overwritten.
type UpdateAccountOwnerRequest struct {
	OwnerID         string `json:"owner_id"`
	ExpectedVersion int64  `json:"expected_version"`
}
