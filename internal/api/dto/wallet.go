package dto

import (
	"github.com/shopspring/decimal"

	"github.com/ubi-mobility/payment-core/internal/domain/ledger"
	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	"github.com/ubi-mobility/payment-core/internal/domain/wallet"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
	"github.com/ubi-mobility/payment-core/internal/validator"
)

type CreateAccountRequest struct {
	OwnerID   string          `json:"owner_id" validate:"required"`
	OwnerType types.OwnerType `json:"owner_type" validate:"required"`
	Currency  string          `json:"currency" validate:"required,len=3"`
	Metadata  types.Metadata  `json:"metadata,omitempty"`
}

func (r *CreateAccountRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.OwnerType.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid owner type").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type AccountResponse struct {
	*wallet.Account
}

// CreditRequest moves funds into an account from a counterparty system
// account. Used by callback handlers and admin corrections, not exposed to
// end users directly.
type CreditRequest struct {
	AccountID             string          `json:"account_id" validate:"required"`
	CounterpartyAccountID string          `json:"counterparty_account_id" validate:"required"`
	Amount                decimal.Decimal `json:"amount" validate:"required"`
	Currency              string          `json:"currency" validate:"required,len=3"`
	IdempotencyKey        string          `json:"idempotency_key" validate:"required"`
	Reason                string          `json:"reason,omitempty"`
}

func (r *CreditRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return validateAmount(r.Amount)
}

type DebitRequest struct {
	AccountID             string          `json:"account_id" validate:"required"`
	CounterpartyAccountID string          `json:"counterparty_account_id" validate:"required"`
	Amount                decimal.Decimal `json:"amount" validate:"required"`
	Currency              string          `json:"currency" validate:"required,len=3"`
	IdempotencyKey        string          `json:"idempotency_key" validate:"required"`
	Reason                string          `json:"reason,omitempty"`
}

func (r *DebitRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return validateAmount(r.Amount)
}

type TransferRequest struct {
	FromAccountID  string          `json:"from_account_id" validate:"required"`
	ToAccountID    string          `json:"to_account_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
	Reason         string          `json:"reason,omitempty"`
}

func (r *TransferRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.FromAccountID == r.ToAccountID {
		return ierr.NewError("cannot transfer to the same account").
			WithHint("Source and destination accounts must differ").
			Mark(ierr.ErrInvalidOperation)
	}
	return validateAmount(r.Amount)
}

type HoldRequest struct {
	AccountID      string          `json:"account_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
	Reason         string          `json:"reason,omitempty"`
}

func (r *HoldRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return validateAmount(r.Amount)
}

// CaptureRequest finalizes a hold, moving held funds to the destination
// account.
type CaptureRequest struct {
	HoldID               string `json:"hold_id" validate:"required"`
	DestinationAccountID string `json:"destination_account_id" validate:"required"`
	IdempotencyKey       string `json:"idempotency_key" validate:"required"`
}

func (r *CaptureRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ReleaseRequest struct {
	HoldID         string `json:"hold_id" validate:"required"`
	IdempotencyKey string `json:"idempotency_key" validate:"required"`
	Reason         string `json:"reason,omitempty"`
}

func (r *ReleaseRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type HoldResponse struct {
	*wallet.Hold
	TransactionID string `json:"transaction_id"`
}

type TransactionResponse struct {
	*transaction.Transaction
}

type AccountHistoryResponse struct {
	AccountID    string                     `json:"account_id"`
	Transactions []*transaction.Transaction `json:"transactions"`
	Entries      []*ledger.Entry            `json:"entries"`
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsZero() || amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]interface{}{
				"amount": amount,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
