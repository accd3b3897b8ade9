package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ubi-mobility/payment-core/internal/domain/reconciliation"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type InMemoryReconciliationStore struct {
	mu            sync.RWMutex
	discrepancies map[string]*reconciliation.Discrepancy
}

func NewInMemoryReconciliationStore() *InMemoryReconciliationStore {
	return &InMemoryReconciliationStore{
		discrepancies: make(map[string]*reconciliation.Discrepancy),
	}
}

func referenceKey(provider types.PaymentProvider, date time.Time, providerReference string, discrepancyType types.DiscrepancyType) string {
	return fmt.Sprintf("%s:%s:%s:%s", provider, date.Format("2006-01-02"), providerReference, discrepancyType)
}

func (r *InMemoryReconciliationStore) Create(ctx context.Context, discrepancy *reconciliation.Discrepancy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := referenceKey(discrepancy.Provider, discrepancy.ReconciliationDate, discrepancy.ProviderReference, discrepancy.Type)
	for _, existing := range r.discrepancies {
		if referenceKey(existing.Provider, existing.ReconciliationDate, existing.ProviderReference, existing.Type) == key {
			return ierr.NewError("discrepancy already recorded").Mark(ierr.ErrAlreadyExists)
		}
	}
	copied := *discrepancy
	r.discrepancies[discrepancy.ID] = &copied
	return nil
}

func (r *InMemoryReconciliationStore) Get(ctx context.Context, id string) (*reconciliation.Discrepancy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	discrepancy, exists := r.discrepancies[id]
	if !exists {
		return nil, ierr.NewError("discrepancy not found").Mark(ierr.ErrNotFound)
	}
	copied := *discrepancy
	return &copied, nil
}

func (r *InMemoryReconciliationStore) Update(ctx context.Context, discrepancy *reconciliation.Discrepancy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.discrepancies[discrepancy.ID]; !exists {
		return ierr.NewError("discrepancy not found").Mark(ierr.ErrNotFound)
	}
	copied := *discrepancy
	r.discrepancies[discrepancy.ID] = &copied
	return nil
}

func (r *InMemoryReconciliationStore) ListPending(ctx context.Context, provider types.PaymentProvider, limit int) ([]*reconciliation.Discrepancy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*reconciliation.Discrepancy, 0)
	for _, discrepancy := range r.discrepancies {
		if discrepancy.Status != types.DiscrepancyStatusPending {
			continue
		}
		if provider != "" && discrepancy.Provider != provider {
			continue
		}
		copied := *discrepancy
		result = append(result, &copied)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *InMemoryReconciliationStore) ExistsForReference(ctx context.Context, provider types.PaymentProvider, date time.Time, providerReference string, discrepancyType types.DiscrepancyType) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := referenceKey(provider, date, providerReference, discrepancyType)
	for _, existing := range r.discrepancies {
		if referenceKey(existing.Provider, existing.ReconciliationDate, existing.ProviderReference, existing.Type) == key {
			return true, nil
		}
	}
	return false, nil
}

// InMemoryStatementSource serves canned statements and balances keyed by
// provider, date and currency.
type InMemoryStatementSource struct {
	mu         sync.RWMutex
	statements map[string][]reconciliation.StatementRecord
	balances   map[string]decimal.Decimal
}

func NewInMemoryStatementSource() *InMemoryStatementSource {
	return &InMemoryStatementSource{
		statements: make(map[string][]reconciliation.StatementRecord),
		balances:   make(map[string]decimal.Decimal),
	}
}

func statementKey(provider types.PaymentProvider, date time.Time, currency string) string {
	return fmt.Sprintf("%s:%s:%s", provider, date.Format("2006-01-02"), currency)
}

func (s *InMemoryStatementSource) SetStatement(provider types.PaymentProvider, date time.Time, currency string, records []reconciliation.StatementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements[statementKey(provider, date, currency)] = records
}

func (s *InMemoryStatementSource) SetBalance(provider types.PaymentProvider, currency string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[string(provider)+":"+currency] = balance
}

func (s *InMemoryStatementSource) FetchStatement(ctx context.Context, provider types.PaymentProvider, date time.Time, currency string) ([]reconciliation.StatementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statements[statementKey(provider, date, currency)], nil
}

func (s *InMemoryStatementSource) FetchBalance(ctx context.Context, provider types.PaymentProvider, currency string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, ok := s.balances[string(provider)+":"+currency]
	if !ok {
		return decimal.Zero, ierr.NewError("no balance configured").Mark(ierr.ErrProviderError)
	}
	return balance, nil
}
