package transaction

import (
	"context"
	"time"

	"github.com/ubi-mobility/payment-core/internal/types"
)

type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	GetByProviderReference(ctx context.Context, provider types.PaymentProvider, reference string) (*Transaction, error)
	Update(ctx context.Context, txn *Transaction) error
	// FinalizeTerminal writes txn only while the stored row is still
	// non-terminal and reports whether this call performed the flip. A false
	// result means another writer already settled the transaction.
	FinalizeTerminal(ctx context.Context, txn *Transaction) (bool, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*Transaction, error)
	// ListCompletedByProvider returns completed transactions dispatched to a
	// provider within a period; the reconciliation engine matches these
	// against the provider statement.
	ListCompletedByProvider(ctx context.Context, provider types.PaymentProvider, currency string, from, to time.Time) ([]*Transaction, error)
}
