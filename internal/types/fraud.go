package types

import (
	"fmt"

	"github.com/samber/lo"
)

// RiskLevel is the decision band a fraud risk score falls into
type RiskLevel string

const (
	RiskLevelAllow  RiskLevel = "ALLOW"
	RiskLevelReview RiskLevel = "REVIEW"
	RiskLevelBlock  RiskLevel = "BLOCK"
)

func (l RiskLevel) String() string {
	return string(l)
}

func (l RiskLevel) Validate() error {
	allowed := []RiskLevel{
		RiskLevelAllow,
		RiskLevelReview,
		RiskLevelBlock,
	}
	if !lo.Contains(allowed, l) {
		return fmt.Errorf("invalid risk level: %s", l)
	}
	return nil
}
