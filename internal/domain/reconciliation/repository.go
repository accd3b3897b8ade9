package reconciliation

import (
	"context"
	"time"

	"github.com/ubi-mobility/payment-core/internal/types"
)

type Repository interface {
	Create(ctx context.Context, discrepancy *Discrepancy) error
	Get(ctx context.Context, id string) (*Discrepancy, error)
	Update(ctx context.Context, discrepancy *Discrepancy) error
	ListPending(ctx context.Context, provider types.PaymentProvider, limit int) ([]*Discrepancy, error)
	// ExistsForReference makes reconciliation reruns idempotent: a
	// discrepancy is keyed by provider, period and provider reference.
	ExistsForReference(ctx context.Context, provider types.PaymentProvider, date time.Time, providerReference string, discrepancyType types.DiscrepancyType) (bool, error)
}
