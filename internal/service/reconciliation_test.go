package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/domain/reconciliation"
	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/testutil"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type ReconciliationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ReconciliationService
	date    time.Time
}

func TestReconciliationService(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceSuite))
}

func (s *ReconciliationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewReconciliationService(newTestParams(&s.BaseServiceTestSuite))
	s.date = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
}

func (s *ReconciliationServiceSuite) seedCompletedTransaction(providerRef string, amount decimal.Decimal) *transaction.Transaction {
	providerName := types.PaymentProviderMpesa
	txn := &transaction.Transaction{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		Type:              types.TransactionTypeTopup,
		Status:            types.TransactionStatusCompleted,
		Amount:            amount,
		Currency:          "KES",
		AccountID:         "acc_user",
		Provider:          &providerName,
		ProviderReference: &providerRef,
		IdempotencyKey:    "recon-" + providerRef,
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	txn.CreatedAt = s.date.Add(6 * time.Hour)
	s.Require().NoError(s.GetStores().TransactionRepo.Create(s.GetContext(), txn))
	return txn
}

func (s *ReconciliationServiceSuite) record(ref string, amount decimal.Decimal, status types.ProviderStatus) reconciliation.StatementRecord {
	return reconciliation.StatementRecord{
		ProviderReference: ref,
		Amount:            amount,
		Currency:          "KES",
		Status:            status,
		TransactionDate:   s.date.Add(6 * time.Hour),
	}
}

func (s *ReconciliationServiceSuite) runDaily() *dto.ReconciliationRunResponse {
	resp, err := s.service.RunDailyReconciliation(s.GetContext(), &dto.RunReconciliationRequest{
		Provider: types.PaymentProviderMpesa,
		Date:     "2026-08-28",
		Currency: "KES",
	})
	s.Require().NoError(err)
	return resp
}

func (s *ReconciliationServiceSuite) TestCleanRunMatchesEverything() {
	s.seedCompletedTransaction("mp-1", decimal.NewFromInt(1000))
	s.seedCompletedTransaction("mp-2", decimal.NewFromInt(2500))
	s.GetStatementSource().SetStatement(types.PaymentProviderMpesa, s.date, "KES", []reconciliation.StatementRecord{
		s.record("mp-1", decimal.NewFromInt(1000), types.ProviderStatusSucceeded),
		s.record("mp-2", decimal.NewFromInt(2500), types.ProviderStatusSucceeded),
	})

	resp := s.runDaily()
	s.Equal(2, resp.RecordsChecked)
	s.Equal(2, resp.Matched)
	s.Zero(resp.DiscrepanciesNew)
}

func (s *ReconciliationServiceSuite) TestDiscrepancyClassification() {
	s.seedCompletedTransaction("mp-amount", decimal.NewFromInt(5000))
	s.seedCompletedTransaction("mp-status", decimal.NewFromInt(2000))
	s.seedCompletedTransaction("mp-ours-only", decimal.NewFromInt(3000))
	s.GetStatementSource().SetStatement(types.PaymentProviderMpesa, s.date, "KES", []reconciliation.StatementRecord{
		s.record("mp-amount", decimal.NewFromInt(4500), types.ProviderStatusSucceeded),
		s.record("mp-status", decimal.NewFromInt(2000), types.ProviderStatusFailed),
		s.record("mp-theirs-only", decimal.NewFromInt(7000), types.ProviderStatusSucceeded),
	})

	resp := s.runDaily()
	s.Equal(4, resp.DiscrepanciesNew)

	byType := make(map[types.DiscrepancyType]*reconciliation.Discrepancy)
	for _, d := range resp.Discrepancies {
		byType[d.Type] = d
	}
	s.Contains(byType, types.DiscrepancyTypeAmountMismatch)
	s.Contains(byType, types.DiscrepancyTypeStatusMismatch)
	s.Contains(byType, types.DiscrepancyTypeMissingInSystem)
	s.Contains(byType, types.DiscrepancyTypeMissingInProvider)

	s.Equal("mp-theirs-only", byType[types.DiscrepancyTypeMissingInSystem].ProviderReference)
	s.Equal("mp-ours-only", byType[types.DiscrepancyTypeMissingInProvider].ProviderReference)
	s.True(byType[types.DiscrepancyTypeAmountMismatch].Difference().Equal(decimal.NewFromInt(500)))
}

func (s *ReconciliationServiceSuite) TestTinyAmountMismatchAutoResolved() {
	s.seedCompletedTransaction("mp-rounding", decimal.NewFromFloat(1000.5))
	s.GetStatementSource().SetStatement(types.PaymentProviderMpesa, s.date, "KES", []reconciliation.StatementRecord{
		s.record("mp-rounding", decimal.NewFromInt(1000), types.ProviderStatusSucceeded),
	})

	resp := s.runDaily()
	s.Equal(1, resp.DiscrepanciesNew)
	s.Equal(1, resp.AutoResolved)
	s.Equal(types.DiscrepancyStatusResolved, resp.Discrepancies[0].Status)
	s.Require().NotNil(resp.Discrepancies[0].ResolvedBy)
	s.Equal(types.SystemActor, *resp.Discrepancies[0].ResolvedBy)
}

func (s *ReconciliationServiceSuite) TestRerunSkipsRecordedDiscrepancies() {
	s.seedCompletedTransaction("mp-amount", decimal.NewFromInt(5000))
	s.GetStatementSource().SetStatement(types.PaymentProviderMpesa, s.date, "KES", []reconciliation.StatementRecord{
		s.record("mp-amount", decimal.NewFromInt(4000), types.ProviderStatusSucceeded),
	})

	first := s.runDaily()
	s.Equal(1, first.DiscrepanciesNew)

	second := s.runDaily()
	s.Zero(second.DiscrepanciesNew)
}

func (s *ReconciliationServiceSuite) TestSeverityBands() {
	s.seedCompletedTransaction("mp-critical", decimal.NewFromInt(50000))
	s.GetStatementSource().SetStatement(types.PaymentProviderMpesa, s.date, "KES", []reconciliation.StatementRecord{
		s.record("mp-critical", decimal.NewFromInt(30000), types.ProviderStatusSucceeded),
	})

	resp := s.runDaily()
	s.Require().Len(resp.Discrepancies, 1)
	s.Equal(types.DiscrepancySeverityCritical, resp.Discrepancies[0].Severity)
}

func (s *ReconciliationServiceSuite) TestBalanceReconciliation() {
	seedAccount(&s.BaseServiceTestSuite, types.ClearingAccountID(types.PaymentProviderMpesa), "system", types.OwnerTypeSystem, "KES", decimal.NewFromInt(100000))

	// within tolerance: matched, nothing recorded
	s.GetStatementSource().SetBalance(types.PaymentProviderMpesa, "KES", decimal.NewFromInt(100050))
	resp, err := s.service.RunBalanceReconciliation(s.GetContext(), &dto.BalanceReconciliationRequest{
		Provider: types.PaymentProviderMpesa,
		Currency: "KES",
	})
	s.NoError(err)
	s.Equal(1, resp.Matched)
	s.Zero(resp.DiscrepanciesNew)

	// a real gap becomes a balance mismatch discrepancy
	s.GetStatementSource().SetBalance(types.PaymentProviderMpesa, "KES", decimal.NewFromInt(90000))
	resp, err = s.service.RunBalanceReconciliation(s.GetContext(), &dto.BalanceReconciliationRequest{
		Provider: types.PaymentProviderMpesa,
		Currency: "KES",
	})
	s.NoError(err)
	s.Equal(1, resp.DiscrepanciesNew)
	s.Require().Len(resp.Discrepancies, 1)
	s.Equal(types.DiscrepancyTypeBalanceMismatch, resp.Discrepancies[0].Type)
	s.Equal("balance:KES", resp.Discrepancies[0].ProviderReference)
}

func (s *ReconciliationServiceSuite) TestResolveDiscrepancy() {
	s.seedCompletedTransaction("mp-amount", decimal.NewFromInt(5000))
	s.GetStatementSource().SetStatement(types.PaymentProviderMpesa, s.date, "KES", []reconciliation.StatementRecord{
		s.record("mp-amount", decimal.NewFromInt(4000), types.ProviderStatusSucceeded),
	})
	resp := s.runDaily()
	s.Require().Len(resp.Discrepancies, 1)
	id := resp.Discrepancies[0].ID

	// a note and a human actor are both required
	_, err := s.service.ResolveDiscrepancy(s.GetContext(), id, "", "ops-jane")
	s.True(ierr.IsValidation(err))
	_, err = s.service.ResolveDiscrepancy(s.GetContext(), id, "provider confirmed refund", types.SystemActor)
	s.True(ierr.IsValidation(err))

	resolved, err := s.service.ResolveDiscrepancy(s.GetContext(), id, "provider confirmed refund", "ops-jane")
	s.NoError(err)
	s.Equal(types.DiscrepancyStatusResolved, resolved.Status)
	s.Equal("ops-jane", *resolved.ResolvedBy)

	// only pending discrepancies can be resolved
	_, err = s.service.ResolveDiscrepancy(s.GetContext(), id, "again", "ops-jane")
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ReconciliationServiceSuite) TestListPendingFiltersProvider() {
	s.seedCompletedTransaction("mp-amount", decimal.NewFromInt(5000))
	s.GetStatementSource().SetStatement(types.PaymentProviderMpesa, s.date, "KES", []reconciliation.StatementRecord{
		s.record("mp-amount", decimal.NewFromInt(4000), types.ProviderStatusSucceeded),
	})
	s.runDaily()

	listed, err := s.service.ListPending(s.GetContext(), types.PaymentProviderMpesa, 10)
	s.NoError(err)
	s.Equal(1, listed.Count)

	other, err := s.service.ListPending(s.GetContext(), types.PaymentProviderAirtel, 10)
	s.NoError(err)
	s.Zero(other.Count)
}
