package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type InMemoryTransactionStore struct {
	mu           sync.RWMutex
	transactions map[string]*transaction.Transaction
}

func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{
		transactions: make(map[string]*transaction.Transaction),
	}
}

func (r *InMemoryTransactionStore) Create(ctx context.Context, txn *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[txn.ID]; exists {
		return ierr.NewError("transaction already exists").Mark(ierr.ErrAlreadyExists)
	}
	copied := *txn
	r.transactions[txn.ID] = &copied
	return nil
}

func (r *InMemoryTransactionStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	txn, exists := r.transactions[id]
	if !exists {
		return nil, ierr.NewError("transaction not found").Mark(ierr.ErrNotFound)
	}
	copied := *txn
	return &copied, nil
}

func (r *InMemoryTransactionStore) GetByProviderReference(ctx context.Context, provider types.PaymentProvider, reference string) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, txn := range r.transactions {
		if txn.Provider != nil && *txn.Provider == provider &&
			txn.ProviderReference != nil && *txn.ProviderReference == reference {
			copied := *txn
			return &copied, nil
		}
	}
	return nil, ierr.NewError("transaction not found").Mark(ierr.ErrNotFound)
}

func (r *InMemoryTransactionStore) Update(ctx context.Context, txn *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[txn.ID]; !exists {
		return ierr.NewError("transaction not found").Mark(ierr.ErrNotFound)
	}
	copied := *txn
	r.transactions[txn.ID] = &copied
	return nil
}

func (r *InMemoryTransactionStore) FinalizeTerminal(ctx context.Context, txn *transaction.Transaction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.transactions[txn.ID]
	if !exists {
		return false, ierr.NewError("transaction not found").Mark(ierr.ErrNotFound)
	}
	if stored.IsTerminal() {
		return false, nil
	}
	copied := *txn
	r.transactions[txn.ID] = &copied
	return true, nil
}

func (r *InMemoryTransactionStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*transaction.Transaction, 0)
	for _, txn := range r.transactions {
		if txn.AccountID == accountID {
			copied := *txn
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *InMemoryTransactionStore) ListCompletedByProvider(ctx context.Context, provider types.PaymentProvider, currency string, from, to time.Time) ([]*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*transaction.Transaction, 0)
	for _, txn := range r.transactions {
		if txn.Provider == nil || *txn.Provider != provider {
			continue
		}
		if txn.Status != types.TransactionStatusCompleted || txn.Currency != currency {
			continue
		}
		if txn.CreatedAt.Before(from) || !txn.CreatedAt.Before(to) {
			continue
		}
		copied := *txn
		result = append(result, &copied)
	}
	return result, nil
}
