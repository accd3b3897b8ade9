package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ubi-mobility/payment-core/internal/config"
	"github.com/ubi-mobility/payment-core/internal/domain/reconciliation"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/httpclient"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// statementSource fetches authoritative transaction reports and balances
// from provider report APIs. Fetches are idempotent GETs, so they ride on
// the retryable client.
type statementSource struct {
	providers config.ProvidersConfig
	client    httpclient.Client
	logger    *logger.Logger
}

func NewStatementSource(providers config.ProvidersConfig, client httpclient.Client, logger *logger.Logger) reconciliation.StatementSource {
	return &statementSource{providers: providers, client: client, logger: logger}
}

type statementRow struct {
	Reference       string `json:"reference"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	TransactionDate string `json:"transaction_date"`
}

type statementResponse struct {
	Records []statementRow `json:"records"`
}

type balanceResponse struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

func (s *statementSource) FetchStatement(ctx context.Context, provider types.PaymentProvider, date time.Time, currency string) ([]reconciliation.StatementRecord, error) {
	cfg, ok := s.providers.Get(provider)
	if !ok {
		return nil, ierr.NewError("unsupported payment provider").
			WithHint("No configuration exists for this provider").
			Mark(ierr.ErrValidation)
	}

	resp, err := s.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL: fmt.Sprintf("%s/reports/v1/statements?date=%s&currency=%s",
			cfg.BaseURL, date.Format("2006-01-02"), currency),
		Headers: map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch provider statement").
			WithReportableDetails(map[string]interface{}{
				"provider": provider,
				"date":     date.Format("2006-01-02"),
			}).
			Mark(ierr.ErrProviderError)
	}

	var out statementResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode provider statement").
			Mark(ierr.ErrProviderError)
	}

	records := make([]reconciliation.StatementRecord, 0, len(out.Records))
	for _, row := range out.Records {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			s.logger.Warnw("skipping statement row with invalid amount",
				"provider", provider, "reference", row.Reference, "amount", row.Amount)
			continue
		}
		txnDate, _ := time.Parse(time.RFC3339, row.TransactionDate)
		records = append(records, reconciliation.StatementRecord{
			ProviderReference: row.Reference,
			Amount:            amount,
			Currency:          row.Currency,
			Status:            normalizeStatementStatus(row.Status),
			TransactionDate:   txnDate,
		})
	}
	return records, nil
}

func (s *statementSource) FetchBalance(ctx context.Context, provider types.PaymentProvider, currency string) (decimal.Decimal, error) {
	cfg, ok := s.providers.Get(provider)
	if !ok {
		return decimal.Zero, ierr.NewError("unsupported payment provider").
			WithHint("No configuration exists for this provider").
			Mark(ierr.ErrValidation)
	}

	resp, err := s.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/reports/v1/balance?currency=%s", cfg.BaseURL, currency),
		Headers: map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		},
	})
	if err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to fetch provider balance").
			Mark(ierr.ErrProviderError)
	}

	var out balanceResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to decode provider balance").
			Mark(ierr.ErrProviderError)
	}

	balance, err := decimal.NewFromString(out.Balance)
	if err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Provider reported a non-numeric balance").
			Mark(ierr.ErrProviderError)
	}
	return balance, nil
}

func normalizeStatementStatus(status string) types.ProviderStatus {
	if lo.Contains([]string{"SUCCESS", "SUCCESSFUL", "COMPLETED", "TS"}, status) {
		return types.ProviderStatusSucceeded
	}
	if lo.Contains([]string{"FAILED", "REJECTED", "TF"}, status) {
		return types.ProviderStatusFailed
	}
	return types.ProviderStatusPending
}
