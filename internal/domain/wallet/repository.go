package wallet

import (
	"context"

	"github.com/ubi-mobility/payment-core/internal/types"
)

// Repository provides access to wallet accounts and holds. Implementations
// must make GetAccountForUpdate take a row-level lock so that concurrent
// mutations on the same account are serialized.
type Repository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	// GetAccountForUpdate locks the account row for the duration of the
	// surrounding transaction.
	GetAccountForUpdate(ctx context.Context, id string) (*Account, error)
	GetAccountByOwner(ctx context.Context, ownerID string, currency string) (*Account, error)
	ListAccountsByOwnerType(ctx context.Context, ownerType types.OwnerType, currency string) ([]*Account, error)
	UpdateBalances(ctx context.Context, account *Account) error

	CreateHold(ctx context.Context, hold *Hold) error
	GetHold(ctx context.Context, id string) (*Hold, error)
	UpdateHoldStatus(ctx context.Context, id string, status types.HoldStatus) error
	ListActiveHolds(ctx context.Context, accountID string) ([]*Hold, error)
}
