package types

import (
	"fmt"

	"github.com/samber/lo"
)

// DiscrepancyType classifies a mismatch between internal and provider records
type DiscrepancyType string

const (
	DiscrepancyTypeMissingInSystem   DiscrepancyType = "MISSING_IN_SYSTEM"
	DiscrepancyTypeMissingInProvider DiscrepancyType = "MISSING_IN_PROVIDER"
	DiscrepancyTypeAmountMismatch    DiscrepancyType = "AMOUNT_MISMATCH"
	DiscrepancyTypeStatusMismatch    DiscrepancyType = "STATUS_MISMATCH"
	DiscrepancyTypeBalanceMismatch   DiscrepancyType = "BALANCE_MISMATCH"
)

func (t DiscrepancyType) String() string {
	return string(t)
}

func (t DiscrepancyType) Validate() error {
	allowed := []DiscrepancyType{
		DiscrepancyTypeMissingInSystem,
		DiscrepancyTypeMissingInProvider,
		DiscrepancyTypeAmountMismatch,
		DiscrepancyTypeStatusMismatch,
		DiscrepancyTypeBalanceMismatch,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid discrepancy type: %s", t)
	}
	return nil
}

// DiscrepancySeverity is a function of the absolute currency difference
type DiscrepancySeverity string

const (
	DiscrepancySeverityLow      DiscrepancySeverity = "LOW"
	DiscrepancySeverityMedium   DiscrepancySeverity = "MEDIUM"
	DiscrepancySeverityHigh     DiscrepancySeverity = "HIGH"
	DiscrepancySeverityCritical DiscrepancySeverity = "CRITICAL"
)

func (s DiscrepancySeverity) String() string {
	return string(s)
}

// DiscrepancyStatus is the review state of a discrepancy
type DiscrepancyStatus string

const (
	DiscrepancyStatusPending  DiscrepancyStatus = "pending"
	DiscrepancyStatusResolved DiscrepancyStatus = "resolved"
	DiscrepancyStatusIgnored  DiscrepancyStatus = "ignored"
)

func (s DiscrepancyStatus) String() string {
	return string(s)
}
