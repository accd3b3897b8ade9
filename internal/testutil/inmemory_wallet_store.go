package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/wallet"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// InMemoryWalletStore keeps accounts and holds in maps. Reads return copies
// so a service mutation is only visible after an explicit update call, the
// same way the SQL implementation behaves.
type InMemoryWalletStore struct {
	mu       sync.RWMutex
	accounts map[string]*wallet.Account
	holds    map[string]*wallet.Hold
}

func NewInMemoryWalletStore() *InMemoryWalletStore {
	return &InMemoryWalletStore{
		accounts: make(map[string]*wallet.Account),
		holds:    make(map[string]*wallet.Hold),
	}
}

func (r *InMemoryWalletStore) CreateAccount(ctx context.Context, account *wallet.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; exists {
		return ierr.NewError("account already exists").Mark(ierr.ErrAlreadyExists)
	}
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *InMemoryWalletStore) GetAccount(ctx context.Context, id string) (*wallet.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, ierr.NewError("account not found").Mark(ierr.ErrNotFound)
	}
	copied := *account
	return &copied, nil
}

func (r *InMemoryWalletStore) GetAccountForUpdate(ctx context.Context, id string) (*wallet.Account, error) {
	return r.GetAccount(ctx, id)
}

func (r *InMemoryWalletStore) GetAccountByOwner(ctx context.Context, ownerID string, currency string) (*wallet.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.OwnerID == ownerID && account.Currency == currency {
			copied := *account
			return &copied, nil
		}
	}
	return nil, ierr.NewError("account not found").Mark(ierr.ErrNotFound)
}

func (r *InMemoryWalletStore) ListAccountsByOwnerType(ctx context.Context, ownerType types.OwnerType, currency string) ([]*wallet.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*wallet.Account, 0)
	for _, account := range r.accounts {
		if account.OwnerType == ownerType && account.Currency == currency {
			copied := *account
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *InMemoryWalletStore) UpdateBalances(ctx context.Context, account *wallet.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.accounts[account.ID]
	if !exists {
		return ierr.NewError("account not found").Mark(ierr.ErrNotFound)
	}
	stored.Available = account.Available
	stored.Pending = account.Pending
	stored.Held = account.Held
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryWalletStore) CreateHold(ctx context.Context, hold *wallet.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.holds[hold.ID]; exists {
		return ierr.NewError("hold already exists").Mark(ierr.ErrAlreadyExists)
	}
	copied := *hold
	r.holds[hold.ID] = &copied
	return nil
}

func (r *InMemoryWalletStore) GetHold(ctx context.Context, id string) (*wallet.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hold, exists := r.holds[id]
	if !exists {
		return nil, ierr.NewError("hold not found").Mark(ierr.ErrNotFound)
	}
	copied := *hold
	return &copied, nil
}

func (r *InMemoryWalletStore) UpdateHoldStatus(ctx context.Context, id string, status types.HoldStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hold, exists := r.holds[id]
	if !exists {
		return ierr.NewError("hold not found").Mark(ierr.ErrNotFound)
	}
	hold.Status = status
	hold.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryWalletStore) ListActiveHolds(ctx context.Context, accountID string) ([]*wallet.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*wallet.Hold, 0)
	for _, hold := range r.holds {
		if hold.AccountID == accountID && hold.Status == types.HoldStatusActive {
			copied := *hold
			result = append(result, &copied)
		}
	}
	return result, nil
}
