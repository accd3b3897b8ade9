package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/ubi-mobility/payment-core/internal/domain/fraud"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type InMemoryFraudStore struct {
	mu          sync.RWMutex
	assessments map[string]*fraud.Assessment
}

func NewInMemoryFraudStore() *InMemoryFraudStore {
	return &InMemoryFraudStore{
		assessments: make(map[string]*fraud.Assessment),
	}
}

func (r *InMemoryFraudStore) Create(ctx context.Context, assessment *fraud.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assessments[assessment.ID]; exists {
		return ierr.NewError("assessment already exists").Mark(ierr.ErrAlreadyExists)
	}
	copied := *assessment
	r.assessments[assessment.ID] = &copied
	return nil
}

func (r *InMemoryFraudStore) GetByTransaction(ctx context.Context, transactionID string) (*fraud.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, assessment := range r.assessments {
		if assessment.TransactionID == transactionID {
			copied := *assessment
			return &copied, nil
		}
	}
	return nil, ierr.NewError("assessment not found").Mark(ierr.ErrNotFound)
}

func (r *InMemoryFraudStore) ListByLevel(ctx context.Context, level types.RiskLevel, limit int) ([]*fraud.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*fraud.Assessment, 0)
	for _, assessment := range r.assessments {
		if assessment.RiskLevel == level {
			copied := *assessment
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
