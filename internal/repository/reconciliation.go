package repository

import (
	"context"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/reconciliation"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type reconciliationRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewReconciliationRepository(client postgres.IClient, logger *logger.Logger) reconciliation.Repository {
	return &reconciliationRepository{client: client, logger: logger}
}

func (r *reconciliationRepository) Create(ctx context.Context, discrepancy *reconciliation.Discrepancy) error {
	query := `
		INSERT INTO reconciliation_discrepancies (
			id, reference, provider, type, severity, status, provider_reference,
			ubi_amount, provider_amount, currency, reconciliation_date,
			resolution_note, resolved_by, resolved_at,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :reference, :provider, :type, :severity, :status, :provider_reference,
			:ubi_amount, :provider_amount, :currency, :reconciliation_date,
			:resolution_note, :resolved_by, :resolved_at,
			:created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, discrepancy)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("This discrepancy was already recorded for the period").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record discrepancy").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *reconciliationRepository) Get(ctx context.Context, id string) (*reconciliation.Discrepancy, error) {
	var discrepancy reconciliation.Discrepancy
	err := r.client.GetQuerier(ctx).GetContext(ctx, &discrepancy,
		`SELECT * FROM reconciliation_discrepancies WHERE id = $1`, id)
	if err != nil {
		return nil, mapGetError(err, "discrepancy")
	}
	return &discrepancy, nil
}

func (r *reconciliationRepository) Update(ctx context.Context, discrepancy *reconciliation.Discrepancy) error {
	query := `
		UPDATE reconciliation_discrepancies SET
			status = :status,
			resolution_note = :resolution_note,
			resolved_by = :resolved_by,
			resolved_at = :resolved_at,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	result, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, discrepancy)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update discrepancy").
			Mark(ierr.ErrDatabase)
	}
	return requireRowAffected(result, "discrepancy")
}

func (r *reconciliationRepository) ListPending(ctx context.Context, provider types.PaymentProvider, limit int) ([]*reconciliation.Discrepancy, error) {
	var discrepancies []*reconciliation.Discrepancy
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &discrepancies,
		`SELECT * FROM reconciliation_discrepancies WHERE provider = $1 AND status = $2
		 ORDER BY created_at DESC LIMIT $3`,
		provider, types.DiscrepancyStatusPending, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list discrepancies").
			Mark(ierr.ErrDatabase)
	}
	return discrepancies, nil
}

func (r *reconciliationRepository) ExistsForReference(ctx context.Context, provider types.PaymentProvider, date time.Time, providerReference string, discrepancyType types.DiscrepancyType) (bool, error) {
	var count int
	err := r.client.GetQuerier(ctx).GetContext(ctx, &count,
		`SELECT COUNT(1) FROM reconciliation_discrepancies
		 WHERE provider = $1 AND reconciliation_date = $2
		   AND provider_reference = $3 AND type = $4`,
		provider, date, providerReference, discrepancyType)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check discrepancy existence").
			Mark(ierr.ErrDatabase)
	}
	return count > 0, nil
}
