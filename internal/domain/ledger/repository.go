package ledger

import (
	"context"
	"time"
)

// Repository is the append-only store of ledger entries. There is no update
// or delete path.
type Repository interface {
	// Append writes a set of entries atomically. Callers are responsible for
	// passing a balanced set per transaction.
	Append(ctx context.Context, entries []*Entry) error
	ListByTransaction(ctx context.Context, transactionID string) ([]*Entry, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*Entry, error)
	ListByAccountBetween(ctx context.Context, accountID string, from, to time.Time) ([]*Entry, error)
}
