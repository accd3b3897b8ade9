package dto

import (
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/reconciliation"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
	"github.com/ubi-mobility/payment-core/internal/validator"
)

type RunReconciliationRequest struct {
	Provider types.PaymentProvider `json:"provider" validate:"required"`
	Date     string                `json:"date" validate:"required"`
	Currency string                `json:"currency" validate:"required,len=3"`
}

func (r *RunReconciliationRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.Provider.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment provider").
			Mark(ierr.ErrValidation)
	}
	if _, err := r.ParsedDate(); err != nil {
		return ierr.WithError(err).
			WithHint("Date must be in YYYY-MM-DD format").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *RunReconciliationRequest) ParsedDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.Date)
}

type BalanceReconciliationRequest struct {
	Provider types.PaymentProvider `json:"provider" validate:"required"`
	Currency string                `json:"currency" validate:"required,len=3"`
}

func (r *BalanceReconciliationRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.Provider.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment provider").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ReconciliationRunResponse summarizes one reconciliation pass
type ReconciliationRunResponse struct {
	Provider          types.PaymentProvider         `json:"provider"`
	Date              string                        `json:"date"`
	Currency          string                        `json:"currency"`
	RecordsChecked    int                           `json:"records_checked"`
	Matched           int                           `json:"matched"`
	DiscrepanciesNew  int                           `json:"discrepancies_new"`
	AutoResolved      int                           `json:"auto_resolved"`
	Discrepancies     []*reconciliation.Discrepancy `json:"discrepancies,omitempty"`
}

type ResolveDiscrepancyRequest struct {
	Note string `json:"note" validate:"required"`
}

func (r *ResolveDiscrepancyRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type DiscrepancyListResponse struct {
	Discrepancies []*reconciliation.Discrepancy `json:"discrepancies"`
	Count         int                           `json:"count"`
}
