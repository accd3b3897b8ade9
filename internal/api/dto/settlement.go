package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ubi-mobility/payment-core/internal/domain/settlement"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
	"github.com/ubi-mobility/payment-core/internal/validator"
)

type CreateSettlementRequest struct {
	RecipientID   string                 `json:"recipient_id" validate:"required"`
	RecipientType types.RecipientType    `json:"recipient_type" validate:"required"`
	PeriodStart   time.Time              `json:"period_start" validate:"required"`
	PeriodEnd     time.Time              `json:"period_end" validate:"required"`
	GrossAmount   decimal.Decimal        `json:"gross_amount" validate:"required"`
	Currency      string                 `json:"currency" validate:"required,len=3"`
	PayoutMethod  types.PayoutMethod     `json:"payout_method" validate:"required"`
	Destination   settlement.Destination `json:"destination"`
}

func (r *CreateSettlementRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.RecipientType.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid recipient type").
			Mark(ierr.ErrValidation)
	}
	if err := r.PayoutMethod.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payout method").
			Mark(ierr.ErrValidation)
	}
	return validateAmount(r.GrossAmount)
}

// CommissionBreakdown is the full fee decomposition of a gross amount
type CommissionBreakdown struct {
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	UBICommission decimal.Decimal `json:"ubi_commission"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	SettlementFee decimal.Decimal `json:"settlement_fee"`
	NetAmount     decimal.Decimal `json:"net_amount"`
}

type SettlementResponse struct {
	*settlement.Settlement
}

// SettlementBatchResponse aggregates a batch processing pass; individual
// failures do not abort the batch.
type SettlementBatchResponse struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

type RunSettlementsRequest struct {
	Date     string `json:"date" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
}

func (r *RunSettlementsRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if _, err := r.ParsedDate(); err != nil {
		return ierr.WithError(err).
			WithHint("Date must be in YYYY-MM-DD format").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *RunSettlementsRequest) ParsedDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.Date)
}
