package idempotency

import (
	"context"
	"time"
)

// Repository is the abstract key-value contract behind the at-most-once
// guarantee. InsertIfAbsent must be atomic regardless of backend: of two
// concurrent callers with the same key exactly one inserts; the loser
// receives the winner's record.
type Repository interface {
	// InsertIfAbsent writes the record if the key is unused and reports
	// whether the insert happened. When it did not, the existing record is
	// returned.
	InsertIfAbsent(ctx context.Context, record *Record) (*Record, bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	// Complete stores the serialized response for a key and marks it completed
	Complete(ctx context.Context, key string, response []byte) error
	// Release removes an in-progress record after a failed execution so the
	// caller may retry with the same key.
	Release(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, before time.Time) error
}
