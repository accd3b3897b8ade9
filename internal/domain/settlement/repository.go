package settlement

import (
	"context"
	"time"

	"github.com/ubi-mobility/payment-core/internal/types"
)

type Repository interface {
	Create(ctx context.Context, settlement *Settlement) error
	Get(ctx context.Context, id string) (*Settlement, error)
	Update(ctx context.Context, settlement *Settlement) error
	// ClaimProcessing atomically moves a settlement into processing so the
	// payout is dispatched by at most one processor. Claimable states:
	// pending or failed with retry budget left, and processing runs whose
	// last update predates staleBefore. Refused claims are marked
	// ErrInvalidOperation.
	ClaimProcessing(ctx context.Context, id string, maxRetries int, staleBefore time.Time) (*Settlement, error)
	ListByStatus(ctx context.Context, status types.SettlementStatus, limit int) ([]*Settlement, error)
	// ExistsForPeriod makes batch jobs idempotent: at most one settlement
	// per recipient per period.
	ExistsForPeriod(ctx context.Context, recipientID string, periodStart, periodEnd time.Time) (bool, error)
}
