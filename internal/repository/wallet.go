package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/ubi-mobility/payment-core/internal/domain/wallet"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type walletRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewWalletRepository(client postgres.IClient, logger *logger.Logger) wallet.Repository {
	return &walletRepository{client: client, logger: logger}
}

func (r *walletRepository) CreateAccount(ctx context.Context, account *wallet.Account) error {
	query := `
		INSERT INTO wallet_accounts (
			id, owner_id, owner_type, currency, available, pending, held, metadata,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :owner_id, :owner_type, :currency, :available, :pending, :held, :metadata,
			:created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, account)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An account already exists for this owner and currency").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create wallet account").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *walletRepository) GetAccount(ctx context.Context, id string) (*wallet.Account, error) {
	var account wallet.Account
	err := r.client.GetQuerier(ctx).GetContext(ctx, &account,
		`SELECT * FROM wallet_accounts WHERE id = $1`, id)
	if err != nil {
		return nil, mapGetError(err, "wallet account")
	}
	return &account, nil
}

// GetAccountForUpdate locks the account row for the remainder of the
// enclosing transaction. Callers must be inside client.WithTx.
func (r *walletRepository) GetAccountForUpdate(ctx context.Context, id string) (*wallet.Account, error) {
	var account wallet.Account
	err := r.client.GetQuerier(ctx).GetContext(ctx, &account,
		`SELECT * FROM wallet_accounts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, mapGetError(err, "wallet account")
	}
	return &account, nil
}

func (r *walletRepository) GetAccountByOwner(ctx context.Context, ownerID string, currency string) (*wallet.Account, error) {
	var account wallet.Account
	err := r.client.GetQuerier(ctx).GetContext(ctx, &account,
		`SELECT * FROM wallet_accounts WHERE owner_id = $1 AND currency = $2`, ownerID, currency)
	if err != nil {
		return nil, mapGetError(err, "wallet account")
	}
	return &account, nil
}

func (r *walletRepository) ListAccountsByOwnerType(ctx context.Context, ownerType types.OwnerType, currency string) ([]*wallet.Account, error) {
	var accounts []*wallet.Account
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &accounts,
		`SELECT * FROM wallet_accounts WHERE owner_type = $1 AND currency = $2 ORDER BY id`,
		ownerType, currency)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list wallet accounts").
			Mark(ierr.ErrDatabase)
	}
	return accounts, nil
}

func (r *walletRepository) UpdateBalances(ctx context.Context, account *wallet.Account) error {
	query := `
		UPDATE wallet_accounts SET
			available = :available,
			pending = :pending,
			held = :held,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	result, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, account)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update wallet balances").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(result, "wallet account")
}

func (r *walletRepository) CreateHold(ctx context.Context, hold *wallet.Hold) error {
	query := `
		INSERT INTO wallet_holds (
			id, account_id, amount, currency, status, transaction_id,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :account_id, :amount, :currency, :status, :transaction_id,
			:created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, hold)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create hold").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *walletRepository) GetHold(ctx context.Context, id string) (*wallet.Hold, error) {
	var hold wallet.Hold
	err := r.client.GetQuerier(ctx).GetContext(ctx, &hold,
		`SELECT * FROM wallet_holds WHERE id = $1`, id)
	if err != nil {
		return nil, mapGetError(err, "hold")
	}
	return &hold, nil
}

func (r *walletRepository) UpdateHoldStatus(ctx context.Context, id string, status types.HoldStatus) error {
	result, err := r.client.GetQuerier(ctx).ExecContext(ctx,
		`UPDATE wallet_holds SET status = $1, updated_at = $2, updated_by = $3 WHERE id = $4`,
		status, time.Now().UTC(), types.GetUserID(ctx), id)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update hold").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(result, "hold")
}

func (r *walletRepository) ListActiveHolds(ctx context.Context, accountID string) ([]*wallet.Hold, error) {
	var holds []*wallet.Hold
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &holds,
		`SELECT * FROM wallet_holds WHERE account_id = $1 AND status = $2 ORDER BY created_at`,
		accountID, types.HoldStatusActive)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list holds").
			Mark(ierr.ErrDatabase)
	}
	return holds, nil
}

func mapGetError(err error, entity string) error {
	if err == sql.ErrNoRows {
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			Mark(ierr.ErrNotFound)
	}
	return ierr.WithError(err).
		WithHintf("Failed to fetch %s", entity).
		Mark(ierr.ErrDatabase)
}

func requireRowAffected(result sql.Result, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewErrorf("%s not found", entity).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ierr.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
