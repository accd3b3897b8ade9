package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/testutil"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PaymentService
	adapter *testutil.StubAdapter
	params  ServiceParams
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.adapter = testutil.NewStubAdapter(types.PaymentProviderMpesa)
	s.params = newTestParams(&s.BaseServiceTestSuite, s.adapter)
	s.service = NewPaymentService(s.params)
}

func (s *PaymentServiceSuite) paymentRequest(key string, amount decimal.Decimal) *dto.InitiatePaymentRequest {
	return &dto.InitiatePaymentRequest{
		AccountID:      "acc_user",
		Amount:         amount,
		Currency:       "KES",
		Provider:       types.PaymentProviderMpesa,
		PhoneNumber:    "254712345678",
		IdempotencyKey: key,
	}
}

func (s *PaymentServiceSuite) TestInitiatePaymentDispatchesProvider() {
	resp, err := s.service.InitiatePayment(s.GetContext(), s.paymentRequest("pay-1", decimal.NewFromInt(1000)))
	s.NoError(err)
	s.Equal(types.TransactionTypePayment, resp.Type)
	s.Equal(types.TransactionStatusPending, resp.Status)
	s.Require().NotNil(resp.ProviderReference)
	s.Equal("ref-MPESA", *resp.ProviderReference)
	s.NotNil(resp.Assessment)

	s.Require().Equal(1, s.adapter.InitiateCount())
	dispatched := s.adapter.InitiateRequests[0]
	s.Equal(types.ProviderRequestTypeCollection, dispatched.Type)
	s.Equal(resp.ID, dispatched.Reference)
	s.Equal("254712345678", dispatched.PhoneNumber)
}

func (s *PaymentServiceSuite) TestInitiatePaymentIdempotentReplay() {
	req := s.paymentRequest("pay-replay", decimal.NewFromInt(1000))

	first, err := s.service.InitiatePayment(s.GetContext(), req)
	s.NoError(err)
	second, err := s.service.InitiatePayment(s.GetContext(), req)
	s.NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(1, s.adapter.InitiateCount())
}

func (s *PaymentServiceSuite) TestBlockedPaymentNeverDispatched() {
	// a stricter block threshold turns the high-amount plus new-instrument
	// combination into an outright block
	cfg := *s.GetConfig()
	cfg.Fraud.BlockThreshold = 30
	params := s.params
	params.Config = &cfg
	service := NewPaymentService(params)

	amount := decimal.NewFromFloat(cfg.Fraud.HighAmountThreshold)
	_, err := service.InitiatePayment(s.GetContext(), s.paymentRequest("pay-blocked", amount))
	s.Error(err)
	s.True(ierr.IsFraudBlocked(err))
	s.Equal(0, s.adapter.InitiateCount())

	blocked, err := s.GetStores().FraudRepo.ListByLevel(s.GetContext(), types.RiskLevelBlock, 10)
	s.NoError(err)
	s.Require().Len(blocked, 1)

	txn, err := s.GetStores().TransactionRepo.Get(s.GetContext(), blocked[0].TransactionID)
	s.NoError(err)
	s.Equal(types.TransactionStatusFailed, txn.Status)
}

func (s *PaymentServiceSuite) TestUnknownProviderRejected() {
	req := s.paymentRequest("pay-unknown", decimal.NewFromInt(1000))
	req.Provider = types.PaymentProviderMTNMomo

	_, err := s.service.InitiatePayment(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestInitiatePayoutReservesFunds() {
	account := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(1000))

	resp, err := s.service.InitiatePayout(s.GetContext(), &dto.InitiatePayoutRequest{
		AccountID:      account.ID,
		Amount:         decimal.NewFromInt(400),
		Currency:       "KES",
		Provider:       types.PaymentProviderMpesa,
		PhoneNumber:    "254712345678",
		IdempotencyKey: "payout-1",
	})
	s.NoError(err)
	s.Equal(types.TransactionTypePayout, resp.Type)
	s.Equal(types.TransactionStatusPending, resp.Status)

	after, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), account.ID)
	s.True(after.Available.Equal(decimal.NewFromInt(600)))
	s.True(after.Pending.Equal(decimal.NewFromInt(400)))
}

func (s *PaymentServiceSuite) TestInitiatePayoutInsufficientBalance() {
	account := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(100))

	_, err := s.service.InitiatePayout(s.GetContext(), &dto.InitiatePayoutRequest{
		AccountID:      account.ID,
		Amount:         decimal.NewFromInt(500),
		Currency:       "KES",
		Provider:       types.PaymentProviderMpesa,
		PhoneNumber:    "254712345678",
		IdempotencyKey: "payout-poor",
	})
	s.Error(err)
	s.True(ierr.IsInsufficientBalance(err))
	s.Equal(0, s.adapter.InitiateCount())

	after, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), account.ID)
	s.True(after.Available.Equal(decimal.NewFromInt(100)))
	s.True(after.Pending.IsZero())
}

func (s *PaymentServiceSuite) TestPayoutProviderFailureRevertsReservation() {
	account := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(1000))
	s.adapter.InitiateErr = ierr.NewError("payout rejected").Mark(ierr.ErrPaymentFailed)

	_, err := s.service.InitiatePayout(s.GetContext(), &dto.InitiatePayoutRequest{
		AccountID:      account.ID,
		Amount:         decimal.NewFromInt(400),
		Currency:       "KES",
		Provider:       types.PaymentProviderMpesa,
		PhoneNumber:    "254712345678",
		IdempotencyKey: "payout-fail",
	})
	s.Error(err)

	after, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), account.ID)
	s.True(after.Available.Equal(decimal.NewFromInt(1000)))
	s.True(after.Pending.IsZero())

	txns, err := s.GetStores().TransactionRepo.ListByAccount(s.GetContext(), account.ID, 10)
	s.NoError(err)
	s.Require().Len(txns, 1)
	s.Equal(types.TransactionStatusFailed, txns[0].Status)
}

func (s *PaymentServiceSuite) TestSyncPaymentStatusAppliesOutcome() {
	account := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.Zero)
	seedAccount(&s.BaseServiceTestSuite, types.ClearingAccountID(types.PaymentProviderMpesa), "system", types.OwnerTypeSystem, "KES", decimal.Zero)

	resp, err := s.service.InitiatePayment(s.GetContext(), s.paymentRequest("pay-sync", decimal.NewFromInt(1000)))
	s.Require().NoError(err)

	// the provider still reports pending: nothing settles
	synced, err := s.service.SyncPaymentStatus(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(types.TransactionStatusPending, synced.Status)

	s.adapter.StatusResponse = types.ProviderStatusSucceeded
	synced, err = s.service.SyncPaymentStatus(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(types.TransactionStatusCompleted, synced.Status)

	after, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), account.ID)
	s.True(after.Available.Equal(decimal.NewFromInt(1000)))
}
