package settlement

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// Destination holds payout destination details. Bank fields are required for
// bank transfers, phone + provider for mobile money.
type Destination struct {
	BankName          string                `json:"bank_name,omitempty"`
	BankAccountNumber string                `json:"bank_account_number,omitempty"`
	BankAccountName   string                `json:"bank_account_name,omitempty"`
	PhoneNumber       string                `json:"phone_number,omitempty"`
	Provider          types.PaymentProvider `json:"provider,omitempty"`
}

func (d *Destination) Scan(value interface{}) error {
	if value == nil {
		*d = Destination{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	return json.Unmarshal(bytes, d)
}

func (d Destination) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Settlement is a scheduled, commission-adjusted payout to a recipient for
// accumulated earnings over a period. One settlement per recipient per period.
type Settlement struct {
	ID                string                 `db:"id" json:"id"`
	Reference         string                 `db:"reference" json:"reference"`
	RecipientID       string                 `db:"recipient_id" json:"recipient_id"`
	RecipientType     types.RecipientType    `db:"recipient_type" json:"recipient_type"`
	PeriodStart       time.Time              `db:"period_start" json:"period_start"`
	PeriodEnd         time.Time              `db:"period_end" json:"period_end"`
	GrossAmount       decimal.Decimal        `db:"gross_amount" json:"gross_amount"`
	UBICommission     decimal.Decimal        `db:"ubi_commission" json:"ubi_commission"`
	PlatformFee       decimal.Decimal        `db:"platform_fee" json:"platform_fee"`
	SettlementFee     decimal.Decimal        `db:"settlement_fee" json:"settlement_fee"`
	NetAmount         decimal.Decimal        `db:"net_amount" json:"net_amount"`
	Currency          string                 `db:"currency" json:"currency"`
	PayoutMethod      types.PayoutMethod     `db:"payout_method" json:"payout_method"`
	Destination       Destination            `db:"destination" json:"destination"`
	Status            types.SettlementStatus `db:"status" json:"status"`
	RetryCount        int                    `db:"retry_count" json:"retry_count"`
	FailureReason     *string                `db:"failure_reason" json:"failure_reason,omitempty"`
	ProviderReference *string                `db:"provider_reference" json:"provider_reference,omitempty"`

	types.BaseModel
}

func (s *Settlement) TableName() string {
	return "settlements"
}

func (s *Settlement) Validate() error {
	if s.RecipientID == "" {
		return ierr.NewError("recipient_id is required").
			WithHint("Settlement recipient is required").
			Mark(ierr.ErrValidation)
	}
	if err := s.RecipientType.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid recipient type").
			Mark(ierr.ErrValidation)
	}
	if err := s.PayoutMethod.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payout method").
			Mark(ierr.ErrValidation)
	}
	if s.GrossAmount.IsZero() || s.GrossAmount.IsNegative() {
		return ierr.NewError("invalid gross amount").
			WithHint("Gross amount must be greater than 0").
			WithReportableDetails(map[string]interface{}{
				"gross_amount": s.GrossAmount,
			}).
			Mark(ierr.ErrValidation)
	}
	if !s.PeriodEnd.After(s.PeriodStart) {
		return ierr.NewError("invalid settlement period").
			WithHint("Period end must be after period start").
			Mark(ierr.ErrValidation)
	}
	return s.ValidateDestination()
}

// ValidateDestination checks destination details against the payout method
func (s *Settlement) ValidateDestination() error {
	switch s.PayoutMethod {
	case types.PayoutMethodBankTransfer:
		if s.Destination.BankName == "" || s.Destination.BankAccountNumber == "" || s.Destination.BankAccountName == "" {
			return ierr.NewError("incomplete bank details").
				WithHint("Bank transfers require bank name, account number and account name").
				Mark(ierr.ErrValidation)
		}
	case types.PayoutMethodMobileMoney:
		if s.Destination.PhoneNumber == "" {
			return ierr.NewError("phone number is required").
				WithHint("Mobile money payouts require a phone number").
				Mark(ierr.ErrValidation)
		}
		if err := s.Destination.Provider.Validate(); err != nil {
			return ierr.WithError(err).
				WithHint("Mobile money payouts require a valid provider").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
