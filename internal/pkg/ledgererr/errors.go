package ledgererr

import (
	"errors"
	"fmt"
)

// Category classifies an error for the caller and decides how the
// resilience layers treat it. Only TRANSIENT errors are retried.
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategoryBusiness   Category = "BUSINESS"
	CategoryTransient  Category = "TRANSIENT"
	CategoryDependency Category = "DEPENDENCY"
	CategoryInternal   Category = "INTERNAL"
)

var (
	ErrEmptyEntries           = errors.New("transaction requires at least one entry")
	ErrNonPositiveAmount      = errors.New("entry amount must be positive")
	ErrInvalidEntryType       = errors.New("entry type must be DEBIT or CREDIT")
	ErrInvalidTransactionType = errors.New("unsupported transaction type")
	ErrUnbalancedEntries      = errors.New("debit and credit totals do not balance")
	ErrMissingCurrency        = errors.New("transaction currency is required")

	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrCurrencyMismatch     = errors.New("account currency does not match transaction currency")
	ErrNegativeBalance      = errors.New("committed balance would be negative")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateIdempotency = errors.New("idempotency key already used")

	ErrOptimisticLockConflict = errors.New("optimistic lock conflict: row version changed")
)

// Error carries a category alongside the underlying cause so call
// sites are forced to handle failure explicitly without parsing
// message strings.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a category
func New(category Category, err error) *Error {
	return &Error{Category: category, Err: err}
}

// Newf wraps a formatted error with a category
func Newf(category Category, format string, args ...interface{}) *Error {
	return &Error{Category: category, Err: fmt.Errorf(format, args...)}
}

// Validation wraps err as a validation error
func Validation(err error) *Error { return New(CategoryValidation, err) }

// Business wraps err as a business-rule error
func Business(err error) *Error { return New(CategoryBusiness, err) }

// Transient wraps err as a transient infrastructure error
func Transient(err error) *Error { return New(CategoryTransient, err) }

// Dependency wraps err as a failure of a non-critical dependency
func Dependency(err error) *Error { return New(CategoryDependency, err) }

// Internal wraps err as an unexpected internal error
func Internal(err error) *Error { return New(CategoryInternal, err) }

// CategoryOf extracts the category from err, defaulting to INTERNAL
// for errors that were never classified.
func CategoryOf(err error) Category {
	var le *Error
	if errors.As(err, &le) {
		return le.Category
	}
	return CategoryInternal
}

// IsRetryable reports whether err may be retried by the backoff policy.
// Validation, business and dependency errors propagate immediately.
func IsRetryable(err error) bool {
	return CategoryOf(err) == CategoryTransient
}

// IsInfrastructure reports whether err should count against a circuit
// breaker. Validation and business outcomes are the dependency
// correctly rejecting a request, not evidence that it is unhealthy;
// everything else, including unclassified errors, counts as a failure.
func IsInfrastructure(err error) bool {
	if err == nil {
		return false
	}
	switch CategoryOf(err) {
	case CategoryValidation, CategoryBusiness:
		return false
	default:
		return true
	}
}
