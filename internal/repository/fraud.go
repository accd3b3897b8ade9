package repository

import (
	"context"

	"github.com/ubi-mobility/payment-core/internal/domain/fraud"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type fraudRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewFraudRepository(client postgres.IClient, logger *logger.Logger) fraud.Repository {
	return &fraudRepository{client: client, logger: logger}
}

func (r *fraudRepository) Create(ctx context.Context, assessment *fraud.Assessment) error {
	query := `
		INSERT INTO fraud_assessments (
			id, transaction_id, risk_score, risk_level, triggers, created_at
		) VALUES (
			:id, :transaction_id, :risk_score, :risk_level, :triggers, :created_at
		)`

	_, err := r.client.GetQuerier(ctx).NamedExecContext(ctx, query, assessment)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record fraud assessment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *fraudRepository) GetByTransaction(ctx context.Context, transactionID string) (*fraud.Assessment, error) {
	var assessment fraud.Assessment
	err := r.client.GetQuerier(ctx).GetContext(ctx, &assessment,
		`SELECT * FROM fraud_assessments WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return nil, mapGetError(err, "fraud assessment")
	}
	return &assessment, nil
}

func (r *fraudRepository) ListByLevel(ctx context.Context, level types.RiskLevel, limit int) ([]*fraud.Assessment, error) {
	var assessments []*fraud.Assessment
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &assessments,
		`SELECT * FROM fraud_assessments WHERE risk_level = $1 ORDER BY created_at DESC LIMIT $2`,
		level, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list fraud assessments").
			Mark(ierr.ErrDatabase)
	}
	return assessments, nil
}
