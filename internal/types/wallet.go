package types

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ClearingAccountID is the internal system account tracking funds held at an
// external provider. One per provider, e.g. acc_system_clearing_mpesa.
func ClearingAccountID(provider PaymentProvider) string {
	return "acc_system_clearing_" + strings.ToLower(string(provider))
}

// OwnerType identifies who an internal wallet account belongs to
type OwnerType string

const (
	OwnerTypeUser       OwnerType = "USER"
	OwnerTypeDriver     OwnerType = "DRIVER"
	OwnerTypeRestaurant OwnerType = "RESTAURANT"
	OwnerTypeMerchant   OwnerType = "MERCHANT"
	OwnerTypePartner    OwnerType = "PARTNER"
	// OwnerTypeSystem covers provider clearing, escrow and revenue accounts
	OwnerTypeSystem OwnerType = "SYSTEM"
)

func (t OwnerType) String() string {
	return string(t)
}

func (t OwnerType) Validate() error {
	allowed := []OwnerType{
		OwnerTypeUser,
		OwnerTypeDriver,
		OwnerTypeRestaurant,
		OwnerTypeMerchant,
		OwnerTypePartner,
		OwnerTypeSystem,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid owner type: %s", t)
	}
	return nil
}

// HoldStatus is the lifecycle of an earmarked amount on a wallet account
type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "ACTIVE"
	HoldStatusCaptured HoldStatus = "CAPTURED"
	HoldStatusReleased HoldStatus = "RELEASED"
)

func (s HoldStatus) String() string {
	return string(s)
}

func (s HoldStatus) Validate() error {
	allowed := []HoldStatus{
		HoldStatusActive,
		HoldStatusCaptured,
		HoldStatusReleased,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid hold status: %s", s)
	}
	return nil
}
