package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/ledger"
)

// InMemoryLedgerStore is an append-only slice of entries
type InMemoryLedgerStore struct {
	mu      sync.RWMutex
	entries []*ledger.Entry
}

func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{entries: make([]*ledger.Entry, 0)}
}

func (r *InMemoryLedgerStore) Append(ctx context.Context, entries []*ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
		copied := *entry
		r.entries = append(r.entries, &copied)
	}
	return nil
}

func (r *InMemoryLedgerStore) ListByTransaction(ctx context.Context, transactionID string) ([]*ledger.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ledger.Entry, 0)
	for _, entry := range r.entries {
		if entry.TransactionID == transactionID {
			copied := *entry
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *InMemoryLedgerStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ledger.Entry, 0)
	for _, entry := range r.entries {
		if entry.AccountID == accountID {
			copied := *entry
			result = append(result, &copied)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (r *InMemoryLedgerStore) ListByAccountBetween(ctx context.Context, accountID string, from, to time.Time) ([]*ledger.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ledger.Entry, 0)
	for _, entry := range r.entries {
		if entry.AccountID == accountID && !entry.CreatedAt.Before(from) && entry.CreatedAt.Before(to) {
			copied := *entry
			result = append(result, &copied)
		}
	}
	return result, nil
}

// AllEntries returns everything appended so far, for zero-sum assertions
func (r *InMemoryLedgerStore) AllEntries() []*ledger.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ledger.Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		copied := *entry
		result = append(result, &copied)
	}
	return result
}
