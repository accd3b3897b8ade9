package service

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/domain/settlement"
	"github.com/ubi-mobility/payment-core/internal/domain/wallet"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/testutil"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type SettlementServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SettlementService
	adapter *testutil.StubAdapter
	params  ServiceParams
}

func TestSettlementService(t *testing.T) {
	suite.Run(t, new(SettlementServiceSuite))
}

func (s *SettlementServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.adapter = testutil.NewStubAdapter(types.PaymentProviderMpesa)
	s.adapter.InitiateResponse.Status = types.ProviderStatusSucceeded
	s.params = newTestParams(&s.BaseServiceTestSuite, s.adapter)
	s.service = NewSettlementService(s.params)

	cfg := s.GetConfig().Settlement
	seedAccount(&s.BaseServiceTestSuite, cfg.EscrowAccountID, "system", types.OwnerTypeSystem, "KES", decimal.Zero)
	seedAccount(&s.BaseServiceTestSuite, cfg.CommissionAccountID, "system", types.OwnerTypeSystem, "KES", decimal.Zero)
	seedAccount(&s.BaseServiceTestSuite, types.ClearingAccountID(types.PaymentProviderMpesa), "system", types.OwnerTypeSystem, "KES", decimal.Zero)
}

func (s *SettlementServiceSuite) mobileDestination() settlement.Destination {
	return settlement.Destination{
		PhoneNumber: "254712345678",
		Provider:    types.PaymentProviderMpesa,
	}
}

func (s *SettlementServiceSuite) createSettlementFor(gross decimal.Decimal) *dto.SettlementResponse {
	seedAccount(&s.BaseServiceTestSuite, "acc_driver", "driver-1", types.OwnerTypeDriver, "KES", gross)

	resp, err := s.service.CreateSettlement(s.GetContext(), &dto.CreateSettlementRequest{
		RecipientID:   "driver-1",
		RecipientType: types.RecipientTypeDriver,
		PeriodStart:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		GrossAmount:   gross,
		Currency:      "KES",
		PayoutMethod:  types.PayoutMethodMobileMoney,
		Destination:   s.mobileDestination(),
	})
	s.Require().NoError(err)
	return resp
}

func (s *SettlementServiceSuite) TestCommissionVectors() {
	cases := []struct {
		gross         float64
		recipientType types.RecipientType
		net           float64
	}{
		{100000, types.RecipientTypeRestaurant, 78400},
		{50000, types.RecipientTypeMerchant, 48075},
		{25000, types.RecipientTypeDriver, 20837.5},
		{200000, types.RecipientTypePartner, 177900},
	}

	for _, tc := range cases {
		breakdown, err := s.service.CalculateCommission(decimal.NewFromFloat(tc.gross), tc.recipientType)
		s.NoError(err)
		s.True(breakdown.NetAmount.Equal(decimal.NewFromFloat(tc.net)),
			"recipient %s gross %v: expected net %v, got %v",
			tc.recipientType, tc.gross, tc.net, breakdown.NetAmount)

		total := breakdown.UBICommission.
			Add(breakdown.PlatformFee).
			Add(breakdown.SettlementFee).
			Add(breakdown.NetAmount)
		s.True(total.Equal(breakdown.GrossAmount))
	}
}

func (s *SettlementServiceSuite) TestCommissionMinimumFee() {
	// 0.5% of 2000 is 10, plus the flat 100 stays above the floor; a tiny
	// gross falls back to the minimum settlement fee
	breakdown, err := s.service.CalculateCommission(decimal.NewFromInt(2000), types.RecipientTypeDriver)
	s.NoError(err)
	s.True(breakdown.SettlementFee.Equal(decimal.NewFromInt(110)))
}

func (s *SettlementServiceSuite) TestCommissionUnknownRecipientType() {
	_, err := s.service.CalculateCommission(decimal.NewFromInt(1000), types.RecipientType("COURIER"))
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SettlementServiceSuite) TestCreateSettlementSplitsCommission() {
	resp := s.createSettlementFor(decimal.NewFromInt(25000))

	s.Equal(types.SettlementStatusPending, resp.Status)
	s.True(resp.NetAmount.Equal(decimal.NewFromFloat(20837.5)))

	cfg := s.GetConfig().Settlement
	driver, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), "acc_driver")
	escrow, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), cfg.EscrowAccountID)
	commission, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), cfg.CommissionAccountID)

	// gross left the recipient, net waits in escrow, the platform share
	// landed on the commission account
	s.True(driver.Available.IsZero())
	s.True(escrow.Available.Equal(decimal.NewFromFloat(20837.5)))
	s.True(commission.Available.Equal(decimal.NewFromFloat(4162.5)))
}

func (s *SettlementServiceSuite) TestCreateSettlementBelowMinimumLeavesNothingBehind() {
	seedAccount(&s.BaseServiceTestSuite, "acc_driver", "driver-1", types.OwnerTypeDriver, "KES", decimal.NewFromInt(500))

	_, err := s.service.CreateSettlement(s.GetContext(), &dto.CreateSettlementRequest{
		RecipientID:   "driver-1",
		RecipientType: types.RecipientTypeDriver,
		PeriodStart:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		GrossAmount:   decimal.NewFromInt(500),
		Currency:      "KES",
		PayoutMethod:  types.PayoutMethodMobileMoney,
		Destination:   s.mobileDestination(),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	// rejected before any balance or ledger mutation
	driver, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), "acc_driver")
	s.True(driver.Available.Equal(decimal.NewFromInt(500)))
	entries, _ := s.GetStores().LedgerRepo.ListByAccount(s.GetContext(), "acc_driver", 10)
	s.Empty(entries)
}

func (s *SettlementServiceSuite) TestCreateSettlementOncePerPeriod() {
	s.createSettlementFor(decimal.NewFromInt(25000))

	seedAccount(&s.BaseServiceTestSuite, "acc_driver_2", "driver-1", types.OwnerTypeUser, "UGX", decimal.Zero)
	_, err := s.service.CreateSettlement(s.GetContext(), &dto.CreateSettlementRequest{
		RecipientID:   "driver-1",
		RecipientType: types.RecipientTypeDriver,
		PeriodStart:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		GrossAmount:   decimal.NewFromInt(25000),
		Currency:      "KES",
		PayoutMethod:  types.PayoutMethodMobileMoney,
		Destination:   s.mobileDestination(),
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SettlementServiceSuite) TestCreateSettlementIncompleteBankDetails() {
	seedAccount(&s.BaseServiceTestSuite, "acc_driver", "driver-1", types.OwnerTypeDriver, "KES", decimal.NewFromInt(25000))

	_, err := s.service.CreateSettlement(s.GetContext(), &dto.CreateSettlementRequest{
		RecipientID:   "driver-1",
		RecipientType: types.RecipientTypeDriver,
		PeriodStart:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		GrossAmount:   decimal.NewFromInt(25000),
		Currency:      "KES",
		PayoutMethod:  types.PayoutMethodBankTransfer,
		Destination:   settlement.Destination{BankName: "Equity"},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SettlementServiceSuite) TestProcessSettlementPaysOutNet() {
	created := s.createSettlementFor(decimal.NewFromInt(25000))

	resp, err := s.service.ProcessSettlement(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.SettlementStatusCompleted, resp.Status)
	s.NotNil(resp.ProviderReference)
	s.Equal(1, s.adapter.InitiateCount())

	cfg := s.GetConfig().Settlement
	escrow, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), cfg.EscrowAccountID)
	clearing, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), types.ClearingAccountID(types.PaymentProviderMpesa))
	s.True(escrow.Available.IsZero())
	s.True(clearing.Available.Equal(decimal.NewFromFloat(20837.5)))

	// processing a completed settlement is a no-op
	again, err := s.service.ProcessSettlement(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.SettlementStatusCompleted, again.Status)
	s.Equal(1, s.adapter.InitiateCount())
}

func (s *SettlementServiceSuite) TestProcessSettlementFailureIncrementsRetry() {
	created := s.createSettlementFor(decimal.NewFromInt(25000))
	s.adapter.InitiateErr = ierr.NewError("network down").Mark(ierr.ErrPaymentFailed)

	_, err := s.service.ProcessSettlement(s.GetContext(), created.ID)
	s.Error(err)

	stored, _ := s.GetStores().SettlementRepo.Get(s.GetContext(), created.ID)
	s.Equal(types.SettlementStatusFailed, stored.Status)
	s.Equal(1, stored.RetryCount)
	s.NotNil(stored.FailureReason)
}

func (s *SettlementServiceSuite) TestProcessSettlementExhaustedRetriesStaysFailed() {
	created := s.createSettlementFor(decimal.NewFromInt(25000))

	stored, _ := s.GetStores().SettlementRepo.Get(s.GetContext(), created.ID)
	stored.Status = types.SettlementStatusFailed
	stored.RetryCount = s.GetConfig().Settlement.MaxRetries
	s.Require().NoError(s.GetStores().SettlementRepo.Update(s.GetContext(), stored))

	_, err := s.service.ProcessSettlement(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsMaxRetriesExceeded(err))
	s.Equal(0, s.adapter.InitiateCount())

	after, _ := s.GetStores().SettlementRepo.Get(s.GetContext(), created.ID)
	s.Equal(types.SettlementStatusFailed, after.Status)
}

func (s *SettlementServiceSuite) TestProcessSettlementConcurrentClaimsPayOnce() {
	created := s.createSettlementFor(decimal.NewFromInt(25000))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.ProcessSettlement(s.GetContext(), created.ID)
		}()
	}
	wg.Wait()

	// one processor claims the settlement and dispatches the payout; the
	// rest either replay the completed result or report it as in flight
	s.Equal(1, s.adapter.InitiateCount())
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.True(ierr.IsInvalidOperation(err))
		}
	}
	s.GreaterOrEqual(succeeded, 1)

	cfg := s.GetConfig().Settlement
	escrow, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), cfg.EscrowAccountID)
	clearing, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), types.ClearingAccountID(types.PaymentProviderMpesa))
	s.True(escrow.Available.IsZero())
	s.True(clearing.Available.Equal(decimal.NewFromFloat(20837.5)))

	after, _ := s.GetStores().SettlementRepo.Get(s.GetContext(), created.ID)
	s.Equal(types.SettlementStatusCompleted, after.Status)
}

func (s *SettlementServiceSuite) TestProcessSettlementReclaimsStaleRun() {
	created := s.createSettlementFor(decimal.NewFromInt(25000))

	stored, _ := s.GetStores().SettlementRepo.Get(s.GetContext(), created.ID)
	stored.Status = types.SettlementStatusProcessing
	s.Require().NoError(s.GetStores().SettlementRepo.Update(s.GetContext(), stored))

	// a live processing run cannot be taken over
	_, err := s.service.ProcessSettlement(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal(0, s.adapter.InitiateCount())

	// a run that stalled past the stale-claim age is picked up again
	stored.UpdatedAt = time.Now().UTC().Add(-2 * s.GetConfig().Settlement.StaleClaimAge())
	s.Require().NoError(s.GetStores().SettlementRepo.Update(s.GetContext(), stored))

	resp, err := s.service.ProcessSettlement(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.SettlementStatusCompleted, resp.Status)
	s.Equal(1, s.adapter.InitiateCount())
}

func (s *SettlementServiceSuite) TestProcessBatchContinuesPastFailures() {
	first := s.createSettlementFor(decimal.NewFromInt(25000))

	// a second settlement with an unregistered payout provider fails while
	// the first still completes
	seedAccount(&s.BaseServiceTestSuite, "acc_rest", "rest-1", types.OwnerTypeRestaurant, "KES", decimal.NewFromInt(100000))
	second, err := s.service.CreateSettlement(s.GetContext(), &dto.CreateSettlementRequest{
		RecipientID:   "rest-1",
		RecipientType: types.RecipientTypeRestaurant,
		PeriodStart:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		GrossAmount:   decimal.NewFromInt(100000),
		Currency:      "KES",
		PayoutMethod:  types.PayoutMethodMobileMoney,
		Destination: settlement.Destination{
			PhoneNumber: "256772000000",
			Provider:    types.PaymentProviderMTNMomo,
		},
	})
	s.Require().NoError(err)

	resp, err := s.service.ProcessSettlementBatch(s.GetContext(), 10)
	s.NoError(err)
	s.Equal(2, resp.Processed)
	s.Equal(1, resp.Succeeded)
	s.Equal(1, resp.Failed)
	s.Contains(resp.FailedIDs, second.ID)

	firstAfter, _ := s.GetStores().SettlementRepo.Get(s.GetContext(), first.ID)
	s.Equal(types.SettlementStatusCompleted, firstAfter.Status)
}

func (s *SettlementServiceSuite) TestRunDailySettlements() {
	err := s.GetStores().WalletRepo.CreateAccount(s.GetContext(), &wallet.Account{
		ID:        "acc_driver",
		OwnerID:   "driver-1",
		OwnerType: types.OwnerTypeDriver,
		Currency:  "KES",
		Available: decimal.NewFromInt(25000),
		Metadata: types.Metadata{
			"payout_method":   string(types.PayoutMethodMobileMoney),
			"phone_number":    "254712345678",
			"payout_provider": string(types.PaymentProviderMpesa),
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
	s.Require().NoError(err)

	// below-minimum and detail-less accounts are skipped
	seedAccount(&s.BaseServiceTestSuite, "acc_small", "driver-2", types.OwnerTypeDriver, "KES", decimal.NewFromInt(100))
	seedAccount(&s.BaseServiceTestSuite, "acc_nodest", "driver-3", types.OwnerTypeDriver, "KES", decimal.NewFromInt(30000))

	resp, err := s.service.RunDailySettlements(s.GetContext(), &dto.RunSettlementsRequest{
		Date:     "2026-08-28",
		Currency: "KES",
	})
	s.NoError(err)
	s.Equal(1, resp.Succeeded)
	s.Equal(2, resp.Skipped)
	s.Equal(0, resp.Failed)

	// rerunning the same day creates nothing new
	again, err := s.service.RunDailySettlements(s.GetContext(), &dto.RunSettlementsRequest{
		Date:     "2026-08-28",
		Currency: "KES",
	})
	s.NoError(err)
	s.Equal(0, again.Succeeded)
}
