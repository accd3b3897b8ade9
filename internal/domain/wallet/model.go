package wallet

import (
	"github.com/shopspring/decimal"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// Account is an internal wallet account with three balance components.
// Available must never go negative; every held amount is backed by an
// active Hold record.
type Account struct {
	ID        string          `db:"id" json:"id"`
	OwnerID   string          `db:"owner_id" json:"owner_id"`
	OwnerType types.OwnerType `db:"owner_type" json:"owner_type"`
	Currency  string          `db:"currency" json:"currency"`
	Available decimal.Decimal `db:"available" json:"available"`
	Pending   decimal.Decimal `db:"pending" json:"pending"`
	Held      decimal.Decimal `db:"held" json:"held"`
	// Metadata carries owner payout details (phone number, bank account)
	// consumed by the settlement batch jobs.
	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`

	types.BaseModel
}

func (a *Account) TableName() string {
	return "wallet_accounts"
}

func (a *Account) Validate() error {
	if a.OwnerID == "" {
		return ierr.NewError("owner_id is required").
			WithHint("Account owner is required").
			Mark(ierr.ErrValidation)
	}
	if err := a.OwnerType.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid account owner type").
			Mark(ierr.ErrValidation)
	}
	if a.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Account currency is required").
			Mark(ierr.ErrValidation)
	}
	if a.Available.IsNegative() {
		return ierr.NewError("available balance is negative").
			WithHint("Available balance must never go negative").
			WithReportableDetails(map[string]interface{}{
				"account_id": a.ID,
				"available":  a.Available,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if a.Held.IsNegative() {
		return ierr.NewError("held balance is negative").
			WithHint("Held balance must never go negative").
			WithReportableDetails(map[string]interface{}{
				"account_id": a.ID,
				"held":       a.Held,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

// Hold is a provisional earmarking of funds moving them from available to
// held balance pending capture or release.
type Hold struct {
	ID            string           `db:"id" json:"id"`
	AccountID     string           `db:"account_id" json:"account_id"`
	Amount        decimal.Decimal  `db:"amount" json:"amount"`
	Currency      string           `db:"currency" json:"currency"`
	Status        types.HoldStatus `db:"status" json:"status"`
	TransactionID string           `db:"transaction_id" json:"transaction_id"`

	types.BaseModel
}

func (h *Hold) TableName() string {
	return "wallet_holds"
}

func (h *Hold) Validate() error {
	if h.AccountID == "" {
		return ierr.NewError("account_id is required").
			WithHint("Hold account is required").
			Mark(ierr.ErrValidation)
	}
	if h.Amount.IsZero() || h.Amount.IsNegative() {
		return ierr.NewError("invalid hold amount").
			WithHint("Hold amount must be greater than 0").
			WithReportableDetails(map[string]interface{}{
				"amount": h.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
