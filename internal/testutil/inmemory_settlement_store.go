package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/settlement"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type InMemorySettlementStore struct {
	mu          sync.RWMutex
	settlements map[string]*settlement.Settlement
}

func NewInMemorySettlementStore() *InMemorySettlementStore {
	return &InMemorySettlementStore{
		settlements: make(map[string]*settlement.Settlement),
	}
}

func (r *InMemorySettlementStore) Create(ctx context.Context, stl *settlement.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.settlements[stl.ID]; exists {
		return ierr.NewError("settlement already exists").Mark(ierr.ErrAlreadyExists)
	}
	copied := *stl
	r.settlements[stl.ID] = &copied
	return nil
}

func (r *InMemorySettlementStore) Get(ctx context.Context, id string) (*settlement.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stl, exists := r.settlements[id]
	if !exists {
		return nil, ierr.NewError("settlement not found").Mark(ierr.ErrNotFound)
	}
	copied := *stl
	return &copied, nil
}

func (r *InMemorySettlementStore) Update(ctx context.Context, stl *settlement.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.settlements[stl.ID]; !exists {
		return ierr.NewError("settlement not found").Mark(ierr.ErrNotFound)
	}
	copied := *stl
	r.settlements[stl.ID] = &copied
	return nil
}

func (r *InMemorySettlementStore) ClaimProcessing(ctx context.Context, id string, maxRetries int, staleBefore time.Time) (*settlement.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stl, exists := r.settlements[id]
	if !exists {
		return nil, ierr.NewError("settlement not found").Mark(ierr.ErrNotFound)
	}

	retriable := (stl.Status == types.SettlementStatusPending || stl.Status == types.SettlementStatusFailed) &&
		stl.RetryCount < maxRetries
	stale := stl.Status == types.SettlementStatusProcessing && stl.UpdatedAt.Before(staleBefore)
	if !retriable && !stale {
		return nil, ierr.NewError("settlement cannot be claimed").Mark(ierr.ErrInvalidOperation)
	}

	stl.Status = types.SettlementStatusProcessing
	stl.UpdatedAt = time.Now().UTC()
	copied := *stl
	return &copied, nil
}

func (r *InMemorySettlementStore) ListByStatus(ctx context.Context, status types.SettlementStatus, limit int) ([]*settlement.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*settlement.Settlement, 0)
	for _, stl := range r.settlements {
		if stl.Status == status {
			copied := *stl
			result = append(result, &copied)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (r *InMemorySettlementStore) ExistsForPeriod(ctx context.Context, recipientID string, periodStart, periodEnd time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, stl := range r.settlements {
		if stl.RecipientID == recipientID && stl.PeriodStart.Equal(periodStart) && stl.PeriodEnd.Equal(periodEnd) {
			return true, nil
		}
	}
	return false, nil
}
