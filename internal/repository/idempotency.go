package repository

import (
	"context"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/idempotency"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
)

type idempotencyRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewIdempotencyRepository(client postgres.IClient, logger *logger.Logger) idempotency.Repository {
	return &idempotencyRepository{client: client, logger: logger}
}

// InsertIfAbsent relies on ON CONFLICT DO NOTHING so exactly one of any
// number of concurrent callers wins the key.
func (r *idempotencyRepository) InsertIfAbsent(ctx context.Context, record *idempotency.Record) (*idempotency.Record, bool, error) {
	query := `
		INSERT INTO idempotency_records (key, status, response, created_at, expires_at)
		VALUES (:key, :status, :response, :created_at, :expires_at)
		ON CONFLICT (key) DO NOTHING`

	result, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, record)
	if err != nil {
		return nil, false, ierr.WithError(err).
			WithHint("Failed to insert idempotency record").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if rows == 1 {
		return record, true, nil
	}

	existing, err := r.Get(ctx, record.Key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	var record idempotency.Record
	err := r.client.GetQuerier(ctx).GetContext(ctx, &record,
		`SELECT * FROM idempotency_records WHERE key = $1`, key)
	if err != nil {
		return nil, mapGetError(err, "idempotency record")
	}
	return &record, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, response []byte) error {
	result, err := r.client.GetQuerier(ctx).ExecContext(ctx,
		`UPDATE idempotency_records SET status = $1, response = $2 WHERE key = $3`,
		idempotency.RecordStatusCompleted, response, key)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to complete idempotency record").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(result, "idempotency record")
}

func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	_, err := r.client.GetQuerier(ctx).ExecContext(ctx,
		`DELETE FROM idempotency_records WHERE key = $1 AND status = $2`,
		key, idempotency.RecordStatusInProgress)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to release idempotency record").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context, before time.Time) error {
	_, err := r.client.GetQuerier(ctx).ExecContext(ctx,
		`DELETE FROM idempotency_records WHERE expires_at < $1`, before)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to purge expired idempotency records").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
