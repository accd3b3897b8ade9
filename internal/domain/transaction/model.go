package transaction

import (
	"github.com/shopspring/decimal"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// Transaction records one money movement through the core. It is created by
// the wallet service and mutated only by provider-callback handlers or
// explicit capture/release calls, never deleted.
type Transaction struct {
	ID                string                  `db:"id" json:"id"`
	Type              types.TransactionType   `db:"type" json:"type"`
	Status            types.TransactionStatus `db:"status" json:"status"`
	Amount            decimal.Decimal         `db:"amount" json:"amount"`
	Currency          string                  `db:"currency" json:"currency"`
	AccountID         string                  `db:"account_id" json:"account_id"`
	CounterpartyID    *string                 `db:"counterparty_id" json:"counterparty_id,omitempty"`
	Provider          *types.PaymentProvider  `db:"provider" json:"provider,omitempty"`
	ProviderReference *string                 `db:"provider_reference" json:"provider_reference,omitempty"`
	IdempotencyKey    string                  `db:"idempotency_key" json:"idempotency_key"`
	FailureReason     *string                 `db:"failure_reason" json:"failure_reason,omitempty"`
	Metadata          types.Metadata          `db:"metadata" json:"metadata,omitempty"`

	types.BaseModel
}

func (t *Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) Validate() error {
	if err := t.Type.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid transaction type").
			Mark(ierr.ErrValidation)
	}
	if t.Amount.IsZero() || t.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]interface{}{
				"amount": t.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if t.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Transaction currency is required").
			Mark(ierr.ErrValidation)
	}
	if t.AccountID == "" {
		return ierr.NewError("account_id is required").
			WithHint("Transaction account is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether the transaction reached a final state
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}
