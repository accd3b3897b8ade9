package repository

import (
	"context"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/ledger"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
)

type ledgerRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewLedgerRepository(client postgres.IClient, logger *logger.Logger) ledger.Repository {
	return &ledgerRepository{client: client, logger: logger}
}

// Append inserts a set of entries in one statement. Entries for a transaction
// always land together or not at all.
func (r *ledgerRepository) Append(ctx context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO ledger_entries (
			id, account_id, transaction_id, direction, amount, currency,
			created_at, created_by
		) VALUES (
			:id, :account_id, :transaction_id, :direction, :amount, :currency,
			:created_at, :created_by
		)`

	for _, entry := range entries {
		if _, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, entry); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to append ledger entries").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *ledgerRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &entries,
		`SELECT * FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at, id`,
		transactionID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list ledger entries").
			Mark(ierr.ErrDatabase)
	}
	return entries, nil
}

func (r *ledgerRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &entries,
		`SELECT * FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list ledger entries").
			Mark(ierr.ErrDatabase)
	}
	return entries, nil
}

func (r *ledgerRepository) ListByAccountBetween(ctx context.Context, accountID string, from, to time.Time) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &entries,
		`SELECT * FROM ledger_entries
		 WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at, id`,
		accountID, from, to)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list ledger entries").
			Mark(ierr.ErrDatabase)
	}
	return entries, nil
}
