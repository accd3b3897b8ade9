package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// Entry is one side of an immutable double-entry record. Entries are only
// ever appended; corrections are new offsetting entries.
type Entry struct {
	ID            string               `db:"id" json:"id"`
	AccountID     string               `db:"account_id" json:"account_id"`
	Direction     types.EntryDirection `db:"direction" json:"direction"`
	Amount        decimal.Decimal      `db:"amount" json:"amount"`
	Currency      string               `db:"currency" json:"currency"`
	TransactionID string               `db:"transaction_id" json:"transaction_id"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
	CreatedBy     string               `db:"created_by" json:"created_by"`
}

func (e *Entry) TableName() string {
	return "ledger_entries"
}

func (e *Entry) Validate() error {
	if e.AccountID == "" {
		return ierr.NewError("account_id is required").
			WithHint("Ledger entry account is required").
			Mark(ierr.ErrValidation)
	}
	if err := e.Direction.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid ledger entry direction").
			Mark(ierr.ErrValidation)
	}
	if e.Amount.IsZero() || e.Amount.IsNegative() {
		return ierr.NewError("invalid entry amount").
			WithHint("Ledger entry amount must be greater than 0").
			WithReportableDetails(map[string]interface{}{
				"amount": e.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if e.TransactionID == "" {
		return ierr.NewError("transaction_id is required").
			WithHint("Ledger entries must link to a transaction").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SignedAmount is the entry amount with its double-entry sign applied:
// credits are positive, debits negative.
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.Direction == types.EntryDirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// SignedSum folds the signed amounts of a set of entries. For every balanced
// transaction the result is zero.
func SignedSum(entries []*Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.SignedAmount())
	}
	return sum
}

// BalancedPair builds the debit/credit pair moving amount from one account to
// another under a single transaction.
func BalancedPair(ctx context.Context, debitAccountID, creditAccountID string, amount decimal.Decimal, currency, transactionID string) []*Entry {
	now := time.Now().UTC()
	return []*Entry{
		{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER_ENTRY),
			AccountID:     debitAccountID,
			Direction:     types.EntryDirectionDebit,
			Amount:        amount,
			Currency:      currency,
			TransactionID: transactionID,
			CreatedAt:     now,
			CreatedBy:     types.GetUserID(ctx),
		},
		{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER_ENTRY),
			AccountID:     creditAccountID,
			Direction:     types.EntryDirectionCredit,
			Amount:        amount,
			Currency:      currency,
			TransactionID: transactionID,
			CreatedAt:     now,
			CreatedBy:     types.GetUserID(ctx),
		},
	}
}
