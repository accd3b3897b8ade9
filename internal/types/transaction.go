package types

import (
	"fmt"

	"github.com/samber/lo"
)

// TransactionType represents the business meaning of a money movement
type TransactionType string

const (
	TransactionTypeTopup    TransactionType = "TOPUP"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypePayment  TransactionType = "PAYMENT"
	TransactionTypePayout   TransactionType = "PAYOUT"
	TransactionTypeRefund   TransactionType = "REFUND"
)

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) Validate() error {
	allowed := []TransactionType{
		TransactionTypeTopup,
		TransactionTypeTransfer,
		TransactionTypePayment,
		TransactionTypePayout,
		TransactionTypeRefund,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid transaction type: %s", t)
	}
	return nil
}

// TransactionStatus represents the lifecycle state of a transaction.
// PENDING payments may pass through HELD before capture or release.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusHeld      TransactionStatus = "HELD"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

func (s TransactionStatus) String() string {
	return string(s)
}

func (s TransactionStatus) Validate() error {
	allowed := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusHeld,
		TransactionStatusCompleted,
		TransactionStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid transaction status: %s", s)
	}
	return nil
}

// IsTerminal reports whether no further status transitions are allowed
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}
