package reconciliation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// Discrepancy is a detected mismatch between internal records and a
// provider's authoritative report. Created by reconciliation runs and
// mutated only through an explicit resolve action with an attributed actor.
type Discrepancy struct {
	ID                 string                    `db:"id" json:"id"`
	Reference          string                    `db:"reference" json:"reference"`
	Provider           types.PaymentProvider     `db:"provider" json:"provider"`
	Type               types.DiscrepancyType     `db:"type" json:"type"`
	Severity           types.DiscrepancySeverity `db:"severity" json:"severity"`
	Status             types.DiscrepancyStatus   `db:"status" json:"status"`
	ProviderReference  string                    `db:"provider_reference" json:"provider_reference"`
	UBIAmount          decimal.Decimal           `db:"ubi_amount" json:"ubi_amount"`
	ProviderAmount     decimal.Decimal           `db:"provider_amount" json:"provider_amount"`
	Currency           string                    `db:"currency" json:"currency"`
	ReconciliationDate time.Time                 `db:"reconciliation_date" json:"reconciliation_date"`
	ResolutionNote     *string                   `db:"resolution_note" json:"resolution_note,omitempty"`
	ResolvedBy         *string                   `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time                `db:"resolved_at" json:"resolved_at,omitempty"`

	types.BaseModel
}

func (d *Discrepancy) TableName() string {
	return "reconciliation_discrepancies"
}

func (d *Discrepancy) Validate() error {
	if err := d.Type.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid discrepancy type").
			Mark(ierr.ErrValidation)
	}
	if err := d.Provider.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid discrepancy provider").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Difference is the absolute currency difference between both sides
func (d *Discrepancy) Difference() decimal.Decimal {
	return d.UBIAmount.Sub(d.ProviderAmount).Abs()
}

// StatementRecord is one row of a provider's settlement/transaction report
type StatementRecord struct {
	ProviderReference string
	Amount            decimal.Decimal
	Currency          string
	Status            types.ProviderStatus
	TransactionDate   time.Time
}

// StatementSource fetches a provider's authoritative view for a period.
// Implementations sit on top of provider report APIs or SFTP drops.
type StatementSource interface {
	FetchStatement(ctx context.Context, provider types.PaymentProvider, date time.Time, currency string) ([]StatementRecord, error)
	FetchBalance(ctx context.Context, provider types.PaymentProvider, currency string) (decimal.Decimal, error)
}
