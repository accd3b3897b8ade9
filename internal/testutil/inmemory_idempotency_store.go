package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/idempotency"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
)

// InMemoryIdempotencyStore mirrors the atomic insert-if-absent semantics of
// the SQL implementation.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		records: make(map[string]*idempotency.Record),
	}
}

func (r *InMemoryIdempotencyStore) InsertIfAbsent(ctx context.Context, record *idempotency.Record) (*idempotency.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.records[record.Key]; exists {
		copied := *existing
		return &copied, false, nil
	}
	copied := *record
	r.records[record.Key] = &copied
	stored := copied
	return &stored, true, nil
}

func (r *InMemoryIdempotencyStore) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[key]
	if !exists {
		return nil, ierr.NewError("idempotency record not found").Mark(ierr.ErrNotFound)
	}
	copied := *record
	return &copied, nil
}

func (r *InMemoryIdempotencyStore) Complete(ctx context.Context, key string, response []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[key]
	if !exists {
		return ierr.NewError("idempotency record not found").Mark(ierr.ErrNotFound)
	}
	record.Status = idempotency.RecordStatusCompleted
	record.Response = response
	return nil
}

func (r *InMemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[key]
	if exists && record.Status == idempotency.RecordStatusInProgress {
		delete(r.records, key)
	}
	return nil
}

func (r *InMemoryIdempotencyStore) DeleteExpired(ctx context.Context, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, record := range r.records {
		if record.ExpiresAt.Before(before) {
			delete(r.records, key)
		}
	}
	return nil
}
