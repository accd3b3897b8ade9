package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/domain/settlement"
	"github.com/ubi-mobility/payment-core/internal/domain/wallet"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/provider"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// SettlementService pays out accumulated recipient earnings net of
// commission. One settlement per recipient per period; the commission split
// is written to the ledger when the settlement is created, the net payout
// when it completes.
type SettlementService interface {
	CalculateCommission(gross decimal.Decimal, recipientType types.RecipientType) (*dto.CommissionBreakdown, error)
	CreateSettlement(ctx context.Context, req *dto.CreateSettlementRequest) (*dto.SettlementResponse, error)
	GetSettlement(ctx context.Context, id string) (*dto.SettlementResponse, error)
	ProcessSettlement(ctx context.Context, id string) (*dto.SettlementResponse, error)
	ProcessSettlementBatch(ctx context.Context, limit int) (*dto.SettlementBatchResponse, error)
	RunDailySettlements(ctx context.Context, req *dto.RunSettlementsRequest) (*dto.SettlementBatchResponse, error)
	RunWeeklySettlements(ctx context.Context, req *dto.RunSettlementsRequest) (*dto.SettlementBatchResponse, error)
}

type settlementService struct {
	ServiceParams
}

func NewSettlementService(params ServiceParams) SettlementService {
	return &settlementService{ServiceParams: params}
}

func (s *settlementService) CalculateCommission(gross decimal.Decimal, recipientType types.RecipientType) (*dto.CommissionBreakdown, error) {
	if gross.IsZero() || gross.IsNegative() {
		return nil, ierr.NewError("invalid gross amount").
			WithHint("Gross amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	rate, ok := s.Config.Settlement.CommissionRate(recipientType)
	if !ok {
		return nil, ierr.NewError("no commission rate configured").
			WithHint("No commission schedule exists for this recipient type").
			WithReportableDetails(map[string]interface{}{
				"recipient_type": recipientType,
			}).
			Mark(ierr.ErrValidation)
	}

	cfg := s.Config.Settlement
	commission := gross.Mul(rate)
	platformFee := commission.Mul(decimal.NewFromFloat(cfg.PlatformFeeRate))
	settlementFee := gross.Mul(decimal.NewFromFloat(cfg.SettlementFeeRate)).
		Add(decimal.NewFromFloat(cfg.SettlementFeeFlat))
	minFee := decimal.NewFromFloat(cfg.MinSettlementFee)
	if settlementFee.LessThan(minFee) {
		settlementFee = minFee
	}
	net := gross.Sub(commission).Sub(platformFee).Sub(settlementFee)

	return &dto.CommissionBreakdown{
		GrossAmount:   gross,
		UBICommission: commission,
		PlatformFee:   platformFee,
		SettlementFee: settlementFee,
		NetAmount:     net,
	}, nil
}

func (s *settlementService) CreateSettlement(ctx context.Context, req *dto.CreateSettlementRequest) (*dto.SettlementResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.Config.SupportsCurrency(req.Currency) {
		return nil, unsupportedCurrency(req.Currency)
	}
	// checked before any balance or ledger mutation
	if req.GrossAmount.LessThan(decimal.NewFromFloat(s.Config.Settlement.MinSettlementAmount)) {
		return nil, ierr.NewError("gross amount below settlement minimum").
			WithHint("The amount does not meet the minimum settlement threshold").
			WithReportableDetails(map[string]interface{}{
				"gross_amount": req.GrossAmount,
				"minimum":      s.Config.Settlement.MinSettlementAmount,
			}).
			Mark(ierr.ErrValidation)
	}

	breakdown, err := s.CalculateCommission(req.GrossAmount, req.RecipientType)
	if err != nil {
		return nil, err
	}
	if breakdown.NetAmount.IsNegative() || breakdown.NetAmount.IsZero() {
		return nil, ierr.NewError("net amount is not positive").
			WithHint("Commission and fees exceed the gross amount").
			WithReportableDetails(map[string]interface{}{
				"gross_amount": req.GrossAmount,
				"net_amount":   breakdown.NetAmount,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	stl := &settlement.Settlement{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SETTLEMENT),
		Reference:     types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_SETTLEMENT),
		RecipientID:   req.RecipientID,
		RecipientType: req.RecipientType,
		PeriodStart:   req.PeriodStart,
		PeriodEnd:     req.PeriodEnd,
		GrossAmount:   breakdown.GrossAmount,
		UBICommission: breakdown.UBICommission,
		PlatformFee:   breakdown.PlatformFee,
		SettlementFee: breakdown.SettlementFee,
		NetAmount:     breakdown.NetAmount,
		Currency:      req.Currency,
		PayoutMethod:  req.PayoutMethod,
		Destination:   req.Destination,
		Status:        types.SettlementStatusPending,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	if err := stl.Validate(); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		exists, err := s.SettlementRepo.ExistsForPeriod(ctx, req.RecipientID, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}
		if exists {
			return ierr.NewError("settlement already exists for period").
				WithHint("At most one settlement per recipient per period").
				WithReportableDetails(map[string]interface{}{
					"recipient_id": req.RecipientID,
					"period_start": req.PeriodStart,
					"period_end":   req.PeriodEnd,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		if err := s.SettlementRepo.Create(ctx, stl); err != nil {
			return err
		}

		account, err := s.WalletRepo.GetAccountByOwner(ctx, req.RecipientID, req.Currency)
		if err != nil {
			return err
		}

		wallets := &walletService{ServiceParams: s.ServiceParams}
		// gross earnings move to escrow, then the commission split carves
		// the platform's share out of escrow; net stays in escrow until the
		// payout settles
		if _, err := wallets.move(ctx, moveParams{
			FromAccountID:  account.ID,
			ToAccountID:    s.Config.Settlement.EscrowAccountID,
			Amount:         stl.GrossAmount,
			Currency:       stl.Currency,
			Type:           types.TransactionTypeTransfer,
			IdempotencyKey: fmt.Sprintf("stl:%s:gross", stl.ID),
			Reason:         "settlement gross to escrow " + stl.Reference,
		}); err != nil {
			return err
		}
		commissionTotal := stl.GrossAmount.Sub(stl.NetAmount)
		if _, err := wallets.move(ctx, moveParams{
			FromAccountID:  s.Config.Settlement.EscrowAccountID,
			ToAccountID:    s.Config.Settlement.CommissionAccountID,
			Amount:         commissionTotal,
			Currency:       stl.Currency,
			Type:           types.TransactionTypeTransfer,
			IdempotencyKey: fmt.Sprintf("stl:%s:commission", stl.ID),
			Reason:         "settlement commission " + stl.Reference,
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("settlement created",
		"settlement_id", stl.ID, "reference", stl.Reference,
		"recipient_id", stl.RecipientID, "net_amount", stl.NetAmount)
	return &dto.SettlementResponse{Settlement: stl}, nil
}

func (s *settlementService) GetSettlement(ctx context.Context, id string) (*dto.SettlementResponse, error) {
	stl, err := s.SettlementRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.SettlementResponse{Settlement: stl}, nil
}

func (s *settlementService) ProcessSettlement(ctx context.Context, id string) (*dto.SettlementResponse, error) {
	// the atomic claim is what keeps a concurrent processor (admin call
	// racing the cron batch) from dispatching the same payout twice
	staleBefore := time.Now().UTC().Add(-s.Config.Settlement.StaleClaimAge())
	stl, err := s.SettlementRepo.ClaimProcessing(ctx, id, s.Config.Settlement.MaxRetries, staleBefore)
	if err != nil {
		if !ierr.IsInvalidOperation(err) {
			return nil, err
		}
		return s.refusedClaim(ctx, id)
	}

	adapter, preq, err := s.payoutRequest(stl)
	if err != nil {
		return nil, s.markSettlementFailed(ctx, stl, err.Error())
	}

	resp, err := provider.InitiateWithRetry(ctx, adapter, preq, s.Config.Retry, s.Logger)
	if err != nil {
		return nil, s.markSettlementFailed(ctx, stl, err.Error())
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		wallets := &walletService{ServiceParams: s.ServiceParams}
		// net leaves escrow for the payout network
		if _, err := wallets.move(ctx, moveParams{
			FromAccountID:  s.Config.Settlement.EscrowAccountID,
			ToAccountID:    types.ClearingAccountID(adapter.Name()),
			Amount:         stl.NetAmount,
			Currency:       stl.Currency,
			Type:           types.TransactionTypePayout,
			IdempotencyKey: fmt.Sprintf("stl:%s:payout", stl.ID),
			Reason:         "settlement payout " + stl.Reference,
		}); err != nil {
			return err
		}

		stl.Status = types.SettlementStatusCompleted
		stl.ProviderReference = &resp.ProviderReference
		stl.UpdatedAt = time.Now().UTC()
		stl.UpdatedBy = types.GetUserID(ctx)
		return s.SettlementRepo.Update(ctx, stl)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("settlement completed",
		"settlement_id", stl.ID, "reference", stl.Reference,
		"provider_reference", resp.ProviderReference)
	return &dto.SettlementResponse{Settlement: stl}, nil
}

// refusedClaim classifies a settlement the claim refused: completed
// settlements replay idempotently, live processing runs and exhausted retry
// budgets are errors.
func (s *settlementService) refusedClaim(ctx context.Context, id string) (*dto.SettlementResponse, error) {
	stl, err := s.SettlementRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch stl.Status {
	case types.SettlementStatusCompleted:
		return &dto.SettlementResponse{Settlement: stl}, nil
	case types.SettlementStatusProcessing:
		return nil, ierr.NewError("settlement is already processing").
			WithHint("The settlement is being processed").
			Mark(ierr.ErrInvalidOperation)
	}
	return nil, ierr.NewError("settlement retry budget exhausted").
		WithHint("The settlement exceeded the maximum number of payout attempts").
		WithReportableDetails(map[string]interface{}{
			"settlement_id": stl.ID,
			"retry_count":   stl.RetryCount,
			"max_retries":   s.Config.Settlement.MaxRetries,
		}).
		Mark(ierr.ErrMaxRetriesExceeded)
}

// payoutRequest resolves the adapter and request for a settlement's payout
// destination. Bank transfers route through the card network's transfer API.
func (s *settlementService) payoutRequest(stl *settlement.Settlement) (provider.Adapter, *provider.Request, error) {
	providerName := types.PaymentProviderFlutterwave
	if stl.PayoutMethod == types.PayoutMethodMobileMoney {
		providerName = stl.Destination.Provider
	}

	adapter, err := s.ProviderRegistry.GetFor(providerName, types.ProviderRequestTypePayout)
	if err != nil {
		return nil, nil, err
	}
	return adapter, &provider.Request{
		Type:        types.ProviderRequestTypePayout,
		Amount:      stl.NetAmount,
		Currency:    stl.Currency,
		Reference:   stl.ID,
		PhoneNumber: stl.Destination.PhoneNumber,
		Narrative:   "settlement " + stl.Reference,
	}, nil
}

func (s *settlementService) markSettlementFailed(ctx context.Context, stl *settlement.Settlement, reason string) error {
	stl.Status = types.SettlementStatusFailed
	stl.RetryCount++
	stl.FailureReason = &reason
	stl.UpdatedAt = time.Now().UTC()
	stl.UpdatedBy = types.GetUserID(ctx)
	if err := s.SettlementRepo.Update(ctx, stl); err != nil {
		s.Logger.Errorw("failed to mark settlement failed",
			"settlement_id", stl.ID, "error", err)
	}
	return ierr.NewError("settlement payout failed").
		WithHint(reason).
		WithReportableDetails(map[string]interface{}{
			"settlement_id": stl.ID,
			"retry_count":   stl.RetryCount,
		}).
		Mark(ierr.ErrPaymentFailed)
}

// ProcessSettlementBatch pays out pending settlements with bounded
// parallelism; individual failures are counted, never abort the batch.
func (s *settlementService) ProcessSettlementBatch(ctx context.Context, limit int) (*dto.SettlementBatchResponse, error) {
	if limit <= 0 {
		limit = 100
	}
	pending, err := s.SettlementRepo.ListByStatus(ctx, types.SettlementStatusPending, limit)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := &dto.SettlementBatchResponse{}

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(s.Config.Settlement.BatchWorkers)

	for _, stl := range pending {
		stl := stl
		p.Go(func(ctx context.Context) error {
			unitCtx, cancel := context.WithTimeout(ctx, s.Config.Settlement.UnitTimeout())
			defer cancel()

			_, err := s.ProcessSettlement(unitCtx, stl.ID)

			mu.Lock()
			defer mu.Unlock()
			result.Processed++
			if err != nil {
				result.Failed++
				result.FailedIDs = append(result.FailedIDs, stl.ID)
				s.Logger.Errorw("settlement failed in batch",
					"settlement_id", stl.ID, "error", err)
			} else {
				result.Succeeded++
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	s.Logger.Infow("settlement batch finished",
		"processed", result.Processed, "succeeded", result.Succeeded,
		"failed", result.Failed)
	return result, nil
}

// RunDailySettlements creates settlements for every eligible recipient over
// the given day. Safe to re-run: recipients already settled for the period
// are skipped.
func (s *settlementService) RunDailySettlements(ctx context.Context, req *dto.RunSettlementsRequest) (*dto.SettlementBatchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := req.ParsedDate()
	return s.createForPeriod(ctx, date, date.Add(24*time.Hour), req.Currency)
}

// RunWeeklySettlements covers the seven days ending on the given date
func (s *settlementService) RunWeeklySettlements(ctx context.Context, req *dto.RunSettlementsRequest) (*dto.SettlementBatchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := req.ParsedDate()
	return s.createForPeriod(ctx, date.AddDate(0, 0, -6), date.Add(24*time.Hour), req.Currency)
}

func (s *settlementService) createForPeriod(ctx context.Context, periodStart, periodEnd time.Time, currency string) (*dto.SettlementBatchResponse, error) {
	result := &dto.SettlementBatchResponse{}
	minAmount := decimal.NewFromFloat(s.Config.Settlement.MinSettlementAmount)

	recipientOwnerTypes := map[types.OwnerType]types.RecipientType{
		types.OwnerTypeDriver:     types.RecipientTypeDriver,
		types.OwnerTypeRestaurant: types.RecipientTypeRestaurant,
		types.OwnerTypeMerchant:   types.RecipientTypeMerchant,
		types.OwnerTypePartner:    types.RecipientTypePartner,
	}

	for ownerType, recipientType := range recipientOwnerTypes {
		accounts, err := s.WalletRepo.ListAccountsByOwnerType(ctx, ownerType, currency)
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			result.Processed++
			if account.Available.LessThan(minAmount) {
				result.Skipped++
				continue
			}

			payoutMethod, destination, ok := destinationFromAccount(account)
			if !ok {
				result.Skipped++
				s.Logger.Warnw("skipping settlement for account without payout details",
					"account_id", account.ID, "owner_id", account.OwnerID)
				continue
			}

			_, err := s.CreateSettlement(ctx, &dto.CreateSettlementRequest{
				RecipientID:   account.OwnerID,
				RecipientType: recipientType,
				PeriodStart:   periodStart,
				PeriodEnd:     periodEnd,
				GrossAmount:   account.Available,
				Currency:      currency,
				PayoutMethod:  payoutMethod,
				Destination:   destination,
			})
			if err != nil {
				if ierr.IsAlreadyExists(err) {
					result.Skipped++
					continue
				}
				result.Failed++
				result.FailedIDs = append(result.FailedIDs, account.OwnerID)
				s.Logger.Errorw("failed to create settlement",
					"owner_id", account.OwnerID, "error", err)
				continue
			}
			result.Succeeded++
		}
	}

	s.Logger.Infow("settlement creation run finished",
		"period_start", periodStart, "period_end", periodEnd,
		"created", result.Succeeded, "skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

// destinationFromAccount reads the payout destination recorded in the
// account metadata
func destinationFromAccount(account *wallet.Account) (types.PayoutMethod, settlement.Destination, bool) {
	method := types.PayoutMethod(account.Metadata["payout_method"])
	switch method {
	case types.PayoutMethodMobileMoney:
		dest := settlement.Destination{
			PhoneNumber: account.Metadata["phone_number"],
			Provider:    types.PaymentProvider(account.Metadata["payout_provider"]),
		}
		if dest.PhoneNumber == "" || dest.Provider.Validate() != nil {
			return "", settlement.Destination{}, false
		}
		return method, dest, true
	case types.PayoutMethodBankTransfer:
		dest := settlement.Destination{
			BankName:          account.Metadata["bank_name"],
			BankAccountNumber: account.Metadata["bank_account_number"],
			BankAccountName:   account.Metadata["bank_account_name"],
		}
		if dest.BankName == "" || dest.BankAccountNumber == "" || dest.BankAccountName == "" {
			return "", settlement.Destination{}, false
		}
		return method, dest, true
	}
	return "", settlement.Destination{}, false
}
