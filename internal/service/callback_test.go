package service

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ubi-mobility/payment-core/internal/domain/ledger"
	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/provider"
	"github.com/ubi-mobility/payment-core/internal/testutil"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type CallbackServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CallbackService
	adapter *testutil.StubAdapter
}

func TestCallbackService(t *testing.T) {
	suite.Run(t, new(CallbackServiceSuite))
}

func (s *CallbackServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.adapter = testutil.NewStubAdapter(types.PaymentProviderMpesa)
	s.service = NewCallbackService(newTestParams(&s.BaseServiceTestSuite, s.adapter))

	seedAccount(&s.BaseServiceTestSuite, types.ClearingAccountID(types.PaymentProviderMpesa), "system", types.OwnerTypeSystem, "KES", decimal.Zero)
}

func (s *CallbackServiceSuite) seedPendingTransaction(txnType types.TransactionType, amount decimal.Decimal) *transaction.Transaction {
	providerName := types.PaymentProviderMpesa
	providerRef := "mp-001"
	txn := &transaction.Transaction{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		Type:              txnType,
		Status:            types.TransactionStatusPending,
		Amount:            amount,
		Currency:          "KES",
		AccountID:         "acc_user",
		Provider:          &providerName,
		ProviderReference: &providerRef,
		IdempotencyKey:    "cb-" + string(txnType),
		BaseModel:         types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().TransactionRepo.Create(s.GetContext(), txn))
	return txn
}

func (s *CallbackServiceSuite) callback() *provider.Callback {
	return &provider.Callback{
		Payload:   []byte(`{"status":"ok"}`),
		Signature: "sig",
		SourceIP:  "196.201.214.200",
	}
}

func (s *CallbackServiceSuite) TestSuccessCallbackCompletesTopup() {
	seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.Zero)
	txn := s.seedPendingTransaction(types.TransactionTypeTopup, decimal.NewFromInt(1000))

	s.adapter.ParsedEvent = &provider.CallbackEvent{
		Reference: txn.ID,
		Status:    types.ProviderStatusSucceeded,
	}
	err := s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback())
	s.NoError(err)

	after, _ := s.GetStores().TransactionRepo.Get(s.GetContext(), txn.ID)
	s.Equal(types.TransactionStatusCompleted, after.Status)

	account, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), "acc_user")
	clearing, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), types.ClearingAccountID(types.PaymentProviderMpesa))
	s.True(account.Available.Equal(decimal.NewFromInt(1000)))
	s.True(clearing.Available.Equal(decimal.NewFromInt(-1000)))

	entries, _ := s.GetStores().LedgerRepo.ListByTransaction(s.GetContext(), txn.ID)
	s.Len(entries, 2)
	s.True(ledger.SignedSum(entries).IsZero())
}

func (s *CallbackServiceSuite) TestInvalidSignatureLeavesEverythingUntouched() {
	seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.Zero)
	txn := s.seedPendingTransaction(types.TransactionTypeTopup, decimal.NewFromInt(1000))

	s.adapter.VerifyErr = ierr.NewError("signature mismatch").Mark(ierr.ErrSignatureInvalid)
	s.adapter.ParsedEvent = &provider.CallbackEvent{
		Reference: txn.ID,
		Status:    types.ProviderStatusSucceeded,
	}
	err := s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback())
	s.Error(err)

	after, _ := s.GetStores().TransactionRepo.Get(s.GetContext(), txn.ID)
	s.Equal(types.TransactionStatusPending, after.Status)
	account, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), "acc_user")
	s.True(account.Available.IsZero())
}

func (s *CallbackServiceSuite) TestReplayOnTerminalTransactionDiscarded() {
	seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.Zero)
	txn := s.seedPendingTransaction(types.TransactionTypeTopup, decimal.NewFromInt(1000))

	s.adapter.ParsedEvent = &provider.CallbackEvent{
		Reference: txn.ID,
		Status:    types.ProviderStatusSucceeded,
	}
	s.Require().NoError(s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback()))

	// the duplicate is acknowledged without a second credit
	err := s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback())
	s.NoError(err)

	account, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), "acc_user")
	s.True(account.Available.Equal(decimal.NewFromInt(1000)))
	entries, _ := s.GetStores().LedgerRepo.ListByTransaction(s.GetContext(), txn.ID)
	s.Len(entries, 2)
}

func (s *CallbackServiceSuite) TestConcurrentDuplicateDeliveriesCreditOnce() {
	seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.Zero)
	txn := s.seedPendingTransaction(types.TransactionTypeTopup, decimal.NewFromInt(1000))

	s.adapter.ParsedEvent = &provider.CallbackEvent{
		Reference: txn.ID,
		Status:    types.ProviderStatusSucceeded,
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback())
		}()
	}
	wg.Wait()

	// every delivery is acknowledged, exactly one settles
	for _, err := range errs {
		s.NoError(err)
	}

	account, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), "acc_user")
	clearing, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), types.ClearingAccountID(types.PaymentProviderMpesa))
	s.True(account.Available.Equal(decimal.NewFromInt(1000)))
	s.True(clearing.Available.Equal(decimal.NewFromInt(-1000)))

	entries, _ := s.GetStores().LedgerRepo.ListByTransaction(s.GetContext(), txn.ID)
	s.Len(entries, 2)
	s.True(ledger.SignedSum(entries).IsZero())

	after, _ := s.GetStores().TransactionRepo.Get(s.GetContext(), txn.ID)
	s.Equal(types.TransactionStatusCompleted, after.Status)
}

func (s *CallbackServiceSuite) TestConcurrentPayoutFailuresRefundOnce() {
	account := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(600))
	account.Pending = decimal.NewFromInt(400)
	s.Require().NoError(s.GetStores().WalletRepo.UpdateBalances(s.GetContext(), account))

	txn := s.seedPendingTransaction(types.TransactionTypePayout, decimal.NewFromInt(400))

	s.adapter.ParsedEvent = &provider.CallbackEvent{
		Reference:     txn.ID,
		Status:        types.ProviderStatusFailed,
		FailureReason: "insufficient float",
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}

	refreshed, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), account.ID)
	s.True(refreshed.Available.Equal(decimal.NewFromInt(1000)))
	s.True(refreshed.Pending.IsZero())
}

func (s *CallbackServiceSuite) TestPendingCallbackIgnored() {
	seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.Zero)
	txn := s.seedPendingTransaction(types.TransactionTypeTopup, decimal.NewFromInt(1000))

	s.adapter.ParsedEvent = &provider.CallbackEvent{
		Reference: txn.ID,
		Status:    types.ProviderStatusPending,
	}
	err := s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback())
	s.NoError(err)

	after, _ := s.GetStores().TransactionRepo.Get(s.GetContext(), txn.ID)
	s.Equal(types.TransactionStatusPending, after.Status)
}

func (s *CallbackServiceSuite) TestPayoutFailureReturnsReservedFunds() {
	account := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(600))
	account.Pending = decimal.NewFromInt(400)
	s.Require().NoError(s.GetStores().WalletRepo.UpdateBalances(s.GetContext(), account))

	txn := s.seedPendingTransaction(types.TransactionTypePayout, decimal.NewFromInt(400))

	s.adapter.ParsedEvent = &provider.CallbackEvent{
		Reference:     txn.ID,
		Status:        types.ProviderStatusFailed,
		FailureReason: "insufficient float",
	}
	err := s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback())
	s.NoError(err)

	after, _ := s.GetStores().TransactionRepo.Get(s.GetContext(), txn.ID)
	s.Equal(types.TransactionStatusFailed, after.Status)
	s.Equal("insufficient float", *after.FailureReason)

	refreshed, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), account.ID)
	s.True(refreshed.Available.Equal(decimal.NewFromInt(1000)))
	s.True(refreshed.Pending.IsZero())
}

func (s *CallbackServiceSuite) TestResolveByProviderReference() {
	seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.Zero)
	txn := s.seedPendingTransaction(types.TransactionTypeTopup, decimal.NewFromInt(1000))

	s.adapter.ParsedEvent = &provider.CallbackEvent{
		ProviderReference: *txn.ProviderReference,
		Status:            types.ProviderStatusSucceeded,
	}
	err := s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback())
	s.NoError(err)

	after, _ := s.GetStores().TransactionRepo.Get(s.GetContext(), txn.ID)
	s.Equal(types.TransactionStatusCompleted, after.Status)
}

func (s *CallbackServiceSuite) TestCallbackForUnknownTransaction() {
	s.adapter.ParsedEvent = &provider.CallbackEvent{
		Reference: "txn_unknown",
		Status:    types.ProviderStatusSucceeded,
	}
	err := s.service.ProcessCallback(s.GetContext(), types.PaymentProviderMpesa, s.callback())
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
