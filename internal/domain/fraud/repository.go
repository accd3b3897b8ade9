package fraud

import (
	"context"

	"github.com/ubi-mobility/payment-core/internal/types"
)

type Repository interface {
	Create(ctx context.Context, assessment *Assessment) error
	GetByTransaction(ctx context.Context, transactionID string) (*Assessment, error)
	// ListByLevel feeds the manual review queue for REVIEW verdicts
	ListByLevel(ctx context.Context, level types.RiskLevel, limit int) ([]*Assessment, error)
}
