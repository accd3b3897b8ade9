package dto

import (
	"github.com/shopspring/decimal"

	"github.com/ubi-mobility/payment-core/internal/domain/fraud"
	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
	"github.com/ubi-mobility/payment-core/internal/validator"
)

type InitiatePaymentRequest struct {
	AccountID      string                `json:"account_id" validate:"required"`
	Amount         decimal.Decimal       `json:"amount" validate:"required"`
	Currency       string                `json:"currency" validate:"required,len=3"`
	Provider       types.PaymentProvider `json:"provider" validate:"required"`
	PhoneNumber    string                `json:"phone_number,omitempty"`
	CardToken      string                `json:"card_token,omitempty"`
	CountryCode    string                `json:"country_code,omitempty"`
	IdempotencyKey string                `json:"idempotency_key" validate:"required"`
	Narrative      string                `json:"narrative,omitempty"`
	Metadata       types.Metadata        `json:"metadata,omitempty"`
}

func (r *InitiatePaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.Provider.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment provider").
			Mark(ierr.ErrValidation)
	}
	return validateAmount(r.Amount)
}

// InstrumentID identifies the payment instrument for fraud signals
func (r *InitiatePaymentRequest) InstrumentID() string {
	if r.CardToken != "" {
		return "card:" + r.CardToken
	}
	return "msisdn:" + r.PhoneNumber
}

type InitiatePayoutRequest struct {
	AccountID      string                `json:"account_id" validate:"required"`
	Amount         decimal.Decimal       `json:"amount" validate:"required"`
	Currency       string                `json:"currency" validate:"required,len=3"`
	Provider       types.PaymentProvider `json:"provider" validate:"required"`
	PhoneNumber    string                `json:"phone_number" validate:"required"`
	IdempotencyKey string                `json:"idempotency_key" validate:"required"`
	Narrative      string                `json:"narrative,omitempty"`
}

func (r *InitiatePayoutRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.Provider.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment provider").
			Mark(ierr.ErrValidation)
	}
	return validateAmount(r.Amount)
}

type PaymentResponse struct {
	*transaction.Transaction
	Assessment *fraud.Assessment `json:"fraud_assessment,omitempty"`
}
