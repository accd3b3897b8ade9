package repository

import (
	"context"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type transactionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewTransactionRepository(client postgres.IClient, logger *logger.Logger) transaction.Repository {
	return &transactionRepository{client: client, logger: logger}
}

func (r *transactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, type, status, amount, currency, account_id, counterparty_id,
			provider, provider_reference, idempotency_key, failure_reason, metadata,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :type, :status, :amount, :currency, :account_id, :counterparty_id,
			:provider, :provider_reference, :idempotency_key, :failure_reason, :metadata,
			:created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, txn)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A transaction with this idempotency key already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := r.client.GetQuerier(ctx).GetContext(ctx, &txn,
		`SELECT * FROM transactions WHERE id = $1`, id)
	if err != nil {
		return nil, mapGetError(err, "transaction")
	}
	return &txn, nil
}

func (r *transactionRepository) GetByProviderReference(ctx context.Context, provider types.PaymentProvider, reference string) (*transaction.Transaction, error) {
	var txn transaction.Transaction
	err := r.client.GetQuerier(ctx).GetContext(ctx, &txn,
		`SELECT * FROM transactions WHERE provider = $1 AND provider_reference = $2`,
		provider, reference)
	if err != nil {
		return nil, mapGetError(err, "transaction")
	}
	return &txn, nil
}

func (r *transactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		UPDATE transactions SET
			status = :status,
			provider_reference = :provider_reference,
			failure_reason = :failure_reason,
			metadata = :metadata,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	result, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, txn)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update transaction").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(result, "transaction")
}

func (r *transactionRepository) FinalizeTerminal(ctx context.Context, txn *transaction.Transaction) (bool, error) {
	query := `
		UPDATE transactions SET
			status = :status,
			provider_reference = :provider_reference,
			failure_reason = :failure_reason,
			metadata = :metadata,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND status NOT IN ('COMPLETED', 'FAILED')`

	result, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, txn)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to finalize transaction").
			Mark(ierr.ErrDatabase)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return rows > 0, nil
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &txns,
		`SELECT * FROM transactions WHERE account_id = $1 OR counterparty_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list transactions").
			Mark(ierr.ErrDatabase)
	}
	return txns, nil
}

func (r *transactionRepository) ListCompletedByProvider(ctx context.Context, provider types.PaymentProvider, currency string, from, to time.Time) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &txns,
		`SELECT * FROM transactions
		 WHERE provider = $1 AND currency = $2 AND status = $3
		   AND created_at >= $4 AND created_at < $5
		 ORDER BY created_at`,
		provider, currency, types.TransactionStatusCompleted, from, to)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list transactions for reconciliation").
			Mark(ierr.ErrDatabase)
	}
	return txns, nil
}
