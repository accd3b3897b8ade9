package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/settlement"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type settlementRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewSettlementRepository(client postgres.IClient, logger *logger.Logger) settlement.Repository {
	return &settlementRepository{client: client, logger: logger}
}

func (r *settlementRepository) Create(ctx context.Context, s *settlement.Settlement) error {
	query := `
		INSERT INTO settlements (
			id, reference, recipient_id, recipient_type, period_start, period_end,
			gross_amount, ubi_commission, platform_fee, settlement_fee, net_amount,
			currency, payout_method, destination, status, retry_count,
			failure_reason, provider_reference,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :reference, :recipient_id, :recipient_type, :period_start, :period_end,
			:gross_amount, :ubi_commission, :platform_fee, :settlement_fee, :net_amount,
			:currency, :payout_method, :destination, :status, :retry_count,
			:failure_reason, :provider_reference,
			:created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, s)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A settlement already exists for this recipient and period").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create settlement").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *settlementRepository) Get(ctx context.Context, id string) (*settlement.Settlement, error) {
	var s settlement.Settlement
	err := r.client.GetQuerier(ctx).GetContext(ctx, &s,
		`SELECT * FROM settlements WHERE id = $1`, id)
	if err != nil {
		return nil, mapGetError(err, "settlement")
	}
	return &s, nil
}

func (r *settlementRepository) Update(ctx context.Context, s *settlement.Settlement) error {
	query := `
		UPDATE settlements SET
			status = :status,
			retry_count = :retry_count,
			failure_reason = :failure_reason,
			provider_reference = :provider_reference,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	result, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, s)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update settlement").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(result, "settlement")
}

func (r *settlementRepository) ClaimProcessing(ctx context.Context, id string, maxRetries int, staleBefore time.Time) (*settlement.Settlement, error) {
	var s settlement.Settlement
	err := r.client.GetQuerier(ctx).GetContext(ctx, &s, `
		UPDATE settlements
		SET status = $2, updated_at = $3
		WHERE id = $1
		  AND (
			(status IN ($4, $5) AND retry_count < $6)
			OR (status = $2 AND updated_at < $7)
		  )
		RETURNING *`,
		id, types.SettlementStatusProcessing, time.Now().UTC(),
		types.SettlementStatusPending, types.SettlementStatusFailed,
		maxRetries, staleBefore)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.WithError(err).
				WithHint("The settlement cannot be claimed for processing").
				Mark(ierr.ErrInvalidOperation)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to claim settlement").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *settlementRepository) ListByStatus(ctx context.Context, status types.SettlementStatus, limit int) ([]*settlement.Settlement, error) {
	var settlements []*settlement.Settlement
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &settlements,
		`SELECT * FROM settlements WHERE status = $1 ORDER BY created_at LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list settlements").
			Mark(ierr.ErrDatabase)
	}
	return settlements, nil
}

func (r *settlementRepository) ExistsForPeriod(ctx context.Context, recipientID string, periodStart, periodEnd time.Time) (bool, error) {
	var count int
	err := r.client.GetQuerier(ctx).GetContext(ctx, &count,
		`SELECT COUNT(1) FROM settlements
		 WHERE recipient_id = $1 AND period_start = $2 AND period_end = $3`,
		recipientID, periodStart, periodEnd)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check settlement existence").
			Mark(ierr.ErrDatabase)
	}
	return count > 0, nil
}
