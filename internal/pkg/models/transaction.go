package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the business meaning of a transaction
type TransactionType string

const (
	TransactionTypePayment          TransactionType = "PAYMENT"
	TransactionTypeRefund           TransactionType = "REFUND"
	TransactionTypeTransfer         TransactionType = "TRANSFER"
	TransactionTypeCreditAdjustment TransactionType = "CREDIT_ADJUSTMENT"
	TransactionTypeDebitAdjustment  TransactionType = "DEBIT_ADJUSTMENT"
	TransactionTypeCommission       TransactionType = "COMMISSION"
	TransactionTypeWithdrawal       TransactionType = "WITHDRAWAL"
)

// IsValid reports whether the transaction type is one of the known kinds
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypePayment, TransactionTypeRefund, TransactionTypeTransfer,
		TransactionTypeCreditAdjustment, TransactionTypeDebitAdjustment,
		TransactionTypeCommission, TransactionTypeWithdrawal:
		return true
	}
	return false
}

// TransactionStatus tracks the lifecycle of a transaction.
// Status is monotonic: once COMPLETED or FAILED it never reverts.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusRolledBack TransactionStatus = "ROLLED_BACK"
)

// EntryType is the direction of a transaction entry
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// Entry represents one leg of a transaction. Amount is always a
// positive magnitude; direction is carried by Type.
type Entry struct {
	ID            string          `json:"id" db:"id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	AccountID     string          `json:"account_id" db:"account_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Type          EntryType       `json:"type" db:"type"`
	Description   string          `json:"description" db:"description"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// FinancialTransaction represents the unit of atomic ledger change
type FinancialTransaction struct {
	ID             string            `json:"id" db:"id"`
	Type           TransactionType   `json:"type" db:"type"`
	Status         TransactionStatus `json:"status" db:"status"`
	Entries        []Entry           `json:"entries"`
	TotalAmount    decimal.Decimal   `json:"total_amount" db:"total_amount"`
	Currency       string            `json:"currency" db:"currency"`
	ReferenceID    string            `json:"reference_id,omitempty" db:"reference_id"`
	ReferenceType  string            `json:"reference_type,omitempty" db:"reference_type"`
	IdempotencyKey string            `json:"idempotency_key,omitempty" db:"idempotency_key"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	ErrorMessage   string            `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	RolledBackAt   *time.Time        `json:"rolled_back_at,omitempty" db:"rolled_back_at"`
}

// EntryRequest is one requested leg of a transaction
type EntryRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        EntryType       `json:"type"`
	Description string          `json:"description,omitempty"`
}

// TransactionRequest represents a request to execute a ledger transaction
type TransactionRequest struct {
	Type           TransactionType   `json:"type"`
	Entries        []EntryRequest    `json:"entries"`
	Currency       string            `json:"currency"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	ReferenceID    string            `json:"reference_id,omitempty"`
	ReferenceType  string            `json:"reference_type,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// TransactionResult is the outcome reported to the caller. For failed
// transactions BalancesBefore equals BalancesAfter for every account,
// proving no effective change was made.
type TransactionResult struct {
	Success        bool                       `json:"success"`
	Transaction    *FinancialTransaction      `json:"transaction,omitempty"`
	ErrorCategory  string                     `json:"error_category,omitempty"`
	ErrorMessage   string                     `json:"error_message,omitempty"`
	BalancesBefore map[string]decimal.Decimal `json:"balances_before,omitempty"`
	BalancesAfter  map[string]decimal.Decimal `json:"balances_after,omitempty"`
}

// TransactionEvent is published to the queue after a transaction is finalized
type TransactionEvent struct {
	TransactionID string            `json:"transaction_id"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	Currency      string            `json:"currency"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}
