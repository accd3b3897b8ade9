package types

import (
	"fmt"

	"github.com/samber/lo"
)

// RecipientType determines the commission schedule applied to a settlement
type RecipientType string

const (
	RecipientTypeDriver     RecipientType = "DRIVER"
	RecipientTypeRestaurant RecipientType = "RESTAURANT"
	RecipientTypeMerchant   RecipientType = "MERCHANT"
	RecipientTypePartner    RecipientType = "PARTNER"
)

func (t RecipientType) String() string {
	return string(t)
}

func (t RecipientType) Validate() error {
	allowed := []RecipientType{
		RecipientTypeDriver,
		RecipientTypeRestaurant,
		RecipientTypeMerchant,
		RecipientTypePartner,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid recipient type: %s", t)
	}
	return nil
}

// SettlementStatus is the lifecycle of a settlement
type SettlementStatus string

const (
	SettlementStatusPending    SettlementStatus = "pending"
	SettlementStatusProcessing SettlementStatus = "processing"
	SettlementStatusCompleted  SettlementStatus = "completed"
	SettlementStatusFailed     SettlementStatus = "failed"
)

func (s SettlementStatus) String() string {
	return string(s)
}

func (s SettlementStatus) Validate() error {
	allowed := []SettlementStatus{
		SettlementStatusPending,
		SettlementStatusProcessing,
		SettlementStatusCompleted,
		SettlementStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid settlement status: %s", s)
	}
	return nil
}

// PayoutMethod is how settled funds reach the recipient
type PayoutMethod string

const (
	PayoutMethodBankTransfer PayoutMethod = "BANK_TRANSFER"
	PayoutMethodMobileMoney  PayoutMethod = "MOBILE_MONEY"
)

func (m PayoutMethod) String() string {
	return string(m)
}

func (m PayoutMethod) Validate() error {
	allowed := []PayoutMethod{
		PayoutMethodBankTransfer,
		PayoutMethodMobileMoney,
	}
	if !lo.Contains(allowed, m) {
		return fmt.Errorf("invalid payout method: %s", m)
	}
	return nil
}
