package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/domain/reconciliation"
	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// ReconciliationService compares internal records against provider
// statements and balances. Runs are idempotent per provider and period;
// discrepancies are only ever resolved through an attributed resolve action.
type ReconciliationService interface {
	RunDailyReconciliation(ctx context.Context, req *dto.RunReconciliationRequest) (*dto.ReconciliationRunResponse, error)
	RunBalanceReconciliation(ctx context.Context, req *dto.BalanceReconciliationRequest) (*dto.ReconciliationRunResponse, error)
	ResolveDiscrepancy(ctx context.Context, id, note, actor string) (*reconciliation.Discrepancy, error)
	ListPending(ctx context.Context, provider types.PaymentProvider, limit int) (*dto.DiscrepancyListResponse, error)
}

type reconciliationService struct {
	ServiceParams
}

func NewReconciliationService(params ServiceParams) ReconciliationService {
	return &reconciliationService{ServiceParams: params}
}

func (s *reconciliationService) RunDailyReconciliation(ctx context.Context, req *dto.RunReconciliationRequest) (*dto.ReconciliationRunResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := req.ParsedDate()
	from := date
	to := date.Add(24 * time.Hour)

	statement, err := s.StatementSource.FetchStatement(ctx, req.Provider, date, req.Currency)
	if err != nil {
		return nil, err
	}
	txns, err := s.TransactionRepo.ListCompletedByProvider(ctx, req.Provider, req.Currency, from, to)
	if err != nil {
		return nil, err
	}

	byRef := make(map[string]*transaction.Transaction, len(txns))
	for _, txn := range txns {
		if txn.ProviderReference != nil {
			byRef[*txn.ProviderReference] = txn
		}
	}
	seen := make(map[string]bool, len(statement))

	result := &dto.ReconciliationRunResponse{
		Provider: req.Provider,
		Date:     req.Date,
		Currency: req.Currency,
	}

	type unit struct {
		discrepancyType types.DiscrepancyType
		reference       string
		ubiAmount       decimal.Decimal
		providerAmount  decimal.Decimal
	}
	units := make([]unit, 0)

	for _, record := range statement {
		seen[record.ProviderReference] = true
		result.RecordsChecked++

		txn, ok := byRef[record.ProviderReference]
		if !ok {
			// the provider settled money this system has no completed record of
			units = append(units, unit{
				discrepancyType: types.DiscrepancyTypeMissingInSystem,
				reference:       record.ProviderReference,
				providerAmount:  record.Amount,
			})
			continue
		}

		switch {
		case record.Status != types.ProviderStatusSucceeded:
			units = append(units, unit{
				discrepancyType: types.DiscrepancyTypeStatusMismatch,
				reference:       record.ProviderReference,
				ubiAmount:       txn.Amount,
				providerAmount:  record.Amount,
			})
		case !record.Amount.Equal(txn.Amount):
			units = append(units, unit{
				discrepancyType: types.DiscrepancyTypeAmountMismatch,
				reference:       record.ProviderReference,
				ubiAmount:       txn.Amount,
				providerAmount:  record.Amount,
			})
		default:
			result.Matched++
		}
	}

	for ref, txn := range byRef {
		if !seen[ref] {
			units = append(units, unit{
				discrepancyType: types.DiscrepancyTypeMissingInProvider,
				reference:       ref,
				ubiAmount:       txn.Amount,
			})
		}
	}

	var mu sync.Mutex
	var created, autoResolved int

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(s.Config.Reconciliation.BatchWorkers).
		WithCancelOnError()

	for _, u := range units {
		u := u
		p.Go(func(ctx context.Context) error {
			unitCtx, cancel := context.WithTimeout(ctx, s.Config.Reconciliation.UnitTimeout())
			defer cancel()

			discrepancy, resolved, err := s.recordDiscrepancy(unitCtx, req.Provider, date, req.Currency, u.discrepancyType, u.reference, u.ubiAmount, u.providerAmount)
			if err != nil {
				return err
			}
			if discrepancy == nil {
				return nil
			}

			mu.Lock()
			created++
			if resolved {
				autoResolved++
			}
			result.Discrepancies = append(result.Discrepancies, discrepancy)
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	result.DiscrepanciesNew = created
	result.AutoResolved = autoResolved

	s.Logger.Infow("reconciliation run finished",
		"provider", req.Provider, "date", req.Date,
		"checked", result.RecordsChecked, "matched", result.Matched,
		"discrepancies", created, "auto_resolved", autoResolved)
	return result, nil
}

// recordDiscrepancy persists one discrepancy unless the rerun already
// recorded it. Returns nil when skipped.
func (s *reconciliationService) recordDiscrepancy(
	ctx context.Context,
	providerName types.PaymentProvider,
	date time.Time,
	currency string,
	discrepancyType types.DiscrepancyType,
	providerReference string,
	ubiAmount, providerAmount decimal.Decimal,
) (*reconciliation.Discrepancy, bool, error) {
	exists, err := s.ReconciliationRepo.ExistsForReference(ctx, providerName, date, providerReference, discrepancyType)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, nil
	}

	discrepancy := &reconciliation.Discrepancy{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DISCREPANCY),
		Reference:          types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_DISCREPANCY),
		Provider:           providerName,
		Type:               discrepancyType,
		Status:             types.DiscrepancyStatusPending,
		ProviderReference:  providerReference,
		UBIAmount:          ubiAmount,
		ProviderAmount:     providerAmount,
		Currency:           currency,
		ReconciliationDate: date,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	discrepancy.Severity = s.severityFor(discrepancy.Difference())

	autoResolved := false
	if discrepancy.Difference().LessThanOrEqual(decimal.NewFromFloat(s.Config.Reconciliation.AutoResolveThreshold)) &&
		discrepancyType == types.DiscrepancyTypeAmountMismatch {
		note := "auto-resolved: difference within tolerance"
		actor := types.SystemActor
		now := time.Now().UTC()
		discrepancy.Status = types.DiscrepancyStatusResolved
		discrepancy.ResolutionNote = &note
		discrepancy.ResolvedBy = &actor
		discrepancy.ResolvedAt = &now
		autoResolved = true
	}

	if err := s.ReconciliationRepo.Create(ctx, discrepancy); err != nil {
		if ierr.IsAlreadyExists(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if discrepancy.Severity == types.DiscrepancySeverityCritical {
		s.Logger.Errorw("CRITICAL discrepancy detected",
			"discrepancy_id", discrepancy.ID,
			"reference", discrepancy.Reference,
			"provider", providerName,
			"type", discrepancyType,
			"difference", discrepancy.Difference(),
			"currency", currency)
	}
	return discrepancy, autoResolved, nil
}

func (s *reconciliationService) RunBalanceReconciliation(ctx context.Context, req *dto.BalanceReconciliationRequest) (*dto.ReconciliationRunResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	providerBalance, err := s.StatementSource.FetchBalance(ctx, req.Provider, req.Currency)
	if err != nil {
		return nil, err
	}
	clearing, err := s.WalletRepo.GetAccount(ctx, types.ClearingAccountID(req.Provider))
	if err != nil {
		return nil, err
	}
	tracked := clearing.Available

	result := &dto.ReconciliationRunResponse{
		Provider:       req.Provider,
		Date:           time.Now().UTC().Format("2006-01-02"),
		Currency:       req.Currency,
		RecordsChecked: 1,
	}

	diff := tracked.Sub(providerBalance).Abs()
	tolerance := providerBalance.Abs().
		Mul(decimal.NewFromFloat(s.Config.Reconciliation.BalanceTolerancePercent)).
		Div(decimal.NewFromInt(100))
	if diff.LessThanOrEqual(tolerance) {
		result.Matched = 1
		return result, nil
	}

	date, _ := time.Parse("2006-01-02", result.Date)
	discrepancy, _, err := s.recordDiscrepancy(ctx, req.Provider, date, req.Currency,
		types.DiscrepancyTypeBalanceMismatch, "balance:"+req.Currency, tracked, providerBalance)
	if err != nil {
		return nil, err
	}
	if discrepancy != nil {
		result.DiscrepanciesNew = 1
		result.Discrepancies = []*reconciliation.Discrepancy{discrepancy}
	}
	return result, nil
}

func (s *reconciliationService) ResolveDiscrepancy(ctx context.Context, id, note, actor string) (*reconciliation.Discrepancy, error) {
	if note == "" {
		return nil, ierr.NewError("resolution note is required").
			WithHint("Resolving a discrepancy requires a note").
			Mark(ierr.ErrValidation)
	}
	if actor == "" || actor == types.SystemActor {
		return nil, ierr.NewError("resolution actor is required").
			WithHint("Discrepancies must be resolved by an identified operator").
			Mark(ierr.ErrValidation)
	}

	discrepancy, err := s.ReconciliationRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if discrepancy.Status != types.DiscrepancyStatusPending {
		return nil, ierr.NewError("discrepancy is not pending").
			WithHint("Only pending discrepancies can be resolved").
			WithReportableDetails(map[string]interface{}{
				"discrepancy_id": id,
				"status":         discrepancy.Status,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	discrepancy.Status = types.DiscrepancyStatusResolved
	discrepancy.ResolutionNote = &note
	discrepancy.ResolvedBy = &actor
	discrepancy.ResolvedAt = &now
	discrepancy.UpdatedAt = now
	discrepancy.UpdatedBy = actor
	if err := s.ReconciliationRepo.Update(ctx, discrepancy); err != nil {
		return nil, err
	}

	s.Logger.Infow("discrepancy resolved",
		"discrepancy_id", id, "resolved_by", actor)
	return discrepancy, nil
}

func (s *reconciliationService) ListPending(ctx context.Context, provider types.PaymentProvider, limit int) (*dto.DiscrepancyListResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	discrepancies, err := s.ReconciliationRepo.ListPending(ctx, provider, limit)
	if err != nil {
		return nil, err
	}
	return &dto.DiscrepancyListResponse{
		Discrepancies: discrepancies,
		Count:         len(discrepancies),
	}, nil
}

// severityFor maps an absolute difference onto the configured severity bands
func (s *reconciliationService) severityFor(difference decimal.Decimal) types.DiscrepancySeverity {
	cfg := s.Config.Reconciliation
	diff := difference.InexactFloat64()
	switch {
	case diff >= cfg.SeverityCriticalCutoff:
		return types.DiscrepancySeverityCritical
	case diff >= cfg.SeverityHighCutoff:
		return types.DiscrepancySeverityHigh
	case diff >= cfg.SeverityMediumCutoff:
		return types.DiscrepancySeverityMedium
	default:
		return types.DiscrepancySeverityLow
	}
}
