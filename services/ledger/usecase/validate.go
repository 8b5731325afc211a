package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/models"
)

// balanceTolerance is the allowed difference between debit and credit
// totals. Amounts are decimals, so in practice balanced transactions
// compare exactly; the tolerance is part of the stated contract.
var balanceTolerance = decimal.NewFromFloat(0.01)

// VerifyTransactionBalance checks the double-entry invariant for a set
// of entries. It is a pure function, independent of storage, exposed
// for external auditing: the execution path enforces exactly this
// check before opening any store transaction.
func VerifyTransactionBalance(entries []models.EntryRequest) error {
	if len(entries) == 0 {
		return ledgererr.Validation(ledgererr.ErrEmptyEntries)
	}

	var debits, credits decimal.Decimal
	for i, entry := range entries {
		if !entry.Amount.IsPositive() {
			return ledgererr.Validation(fmt.Errorf("entry %d amount %s: %w",
				i, entry.Amount, ledgererr.ErrNonPositiveAmount))
		}
		switch entry.Type {
		case models.EntryTypeDebit:
			debits = debits.Add(entry.Amount)
		case models.EntryTypeCredit:
			credits = credits.Add(entry.Amount)
		default:
			return ledgererr.Validation(fmt.Errorf("entry %d type %q: %w",
				i, entry.Type, ledgererr.ErrInvalidEntryType))
		}
	}

	if debits.Sub(credits).Abs().GreaterThan(balanceTolerance) {
		return ledgererr.Validation(fmt.Errorf("debits %s, credits %s: %w",
			debits, credits, ledgererr.ErrUnbalancedEntries))
	}
	return nil
}

// validateRequest runs every pre-validation check that does not need
// the store: transaction type, currency, entry accounts and the
// double-entry invariant.
func validateRequest(req *models.TransactionRequest) error {
	if !req.Type.IsValid() {
		return ledgererr.Validation(fmt.Errorf("type %q: %w", req.Type, ledgererr.ErrInvalidTransactionType))
	}
	if req.Currency == "" {
		return ledgererr.Validation(ledgererr.ErrMissingCurrency)
	}
	for i, entry := range req.Entries {
		if entry.AccountID == "" {
			return ledgererr.Validation(fmt.Errorf("entry %d: account id is required", i))
		}
	}
	return VerifyTransactionBalance(req.Entries)
}
