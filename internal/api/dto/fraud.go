package dto

import (
	"github.com/shopspring/decimal"

	"github.com/ubi-mobility/payment-core/internal/domain/fraud"
	"github.com/ubi-mobility/payment-core/internal/validator"
)

// FraudCheckRequest is the signal bundle scored by the fraud engine
type FraudCheckRequest struct {
	TransactionID string          `json:"transaction_id" validate:"required"`
	AccountID     string          `json:"account_id" validate:"required"`
	InstrumentID  string          `json:"instrument_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Currency      string          `json:"currency" validate:"required,len=3"`
	CountryCode   string          `json:"country_code,omitempty"`
}

func (r *FraudCheckRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return validateAmount(r.Amount)
}

type FraudReviewQueueResponse struct {
	Assessments []*fraud.Assessment `json:"assessments"`
	Count       int                 `json:"count"`
}
