package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/domain/ledger"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/testutil"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type WalletServiceSuite struct {
	testutil.BaseServiceTestSuite
	service WalletService
	params  ServiceParams
}

func TestWalletService(t *testing.T) {
	suite.Run(t, new(WalletServiceSuite))
}

func (s *WalletServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestParams(&s.BaseServiceTestSuite)
	s.service = NewWalletService(s.params)
}

func (s *WalletServiceSuite) TestCreateAccount() {
	resp, err := s.service.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		OwnerID:   "user-1",
		OwnerType: types.OwnerTypeUser,
		Currency:  "KES",
	})
	s.NoError(err)
	s.Equal("user-1", resp.OwnerID)
	s.True(resp.Available.IsZero())
	s.True(resp.Pending.IsZero())
	s.True(resp.Held.IsZero())

	fetched, err := s.service.GetAccount(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(resp.ID, fetched.ID)
}

func (s *WalletServiceSuite) TestCreateAccountUnsupportedCurrency() {
	_, err := s.service.CreateAccount(s.GetContext(), &dto.CreateAccountRequest{
		OwnerID:   "user-1",
		OwnerType: types.OwnerTypeUser,
		Currency:  "EUR",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WalletServiceSuite) TestTransferMovesBalancesAndWritesBalancedLedger() {
	from := seedAccount(&s.BaseServiceTestSuite, "acc_from", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(1000))
	to := seedAccount(&s.BaseServiceTestSuite, "acc_to", "user-2", types.OwnerTypeUser, "KES", decimal.Zero)

	resp, err := s.service.Transfer(s.GetContext(), &dto.TransferRequest{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.NewFromInt(250),
		Currency:       "KES",
		IdempotencyKey: "xfer-1",
	})
	s.NoError(err)
	s.Equal(types.TransactionStatusCompleted, resp.Status)

	fromAfter, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), from.ID)
	toAfter, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), to.ID)
	s.True(fromAfter.Available.Equal(decimal.NewFromInt(750)))
	s.True(toAfter.Available.Equal(decimal.NewFromInt(250)))

	entries, err := s.GetStores().LedgerRepo.ListByTransaction(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Len(entries, 2)
	s.True(ledger.SignedSum(entries).IsZero())
}

func (s *WalletServiceSuite) TestTransferInsufficientBalance() {
	from := seedAccount(&s.BaseServiceTestSuite, "acc_from", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(100))
	to := seedAccount(&s.BaseServiceTestSuite, "acc_to", "user-2", types.OwnerTypeUser, "KES", decimal.Zero)

	_, err := s.service.Transfer(s.GetContext(), &dto.TransferRequest{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.NewFromInt(500),
		Currency:       "KES",
		IdempotencyKey: "xfer-insufficient",
	})
	s.Error(err)
	s.True(ierr.IsInsufficientBalance(err))

	// nothing moved and no ledger entries were written
	fromAfter, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), from.ID)
	s.True(fromAfter.Available.Equal(decimal.NewFromInt(100)))
	entries, _ := s.GetStores().LedgerRepo.ListByAccount(s.GetContext(), from.ID, 10)
	s.Empty(entries)
}

func (s *WalletServiceSuite) TestSystemAccountMayGoNegative() {
	clearing := seedAccount(&s.BaseServiceTestSuite, "acc_system_clearing_mpesa", "system", types.OwnerTypeSystem, "KES", decimal.Zero)
	user := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.Zero)

	_, err := s.service.Credit(s.GetContext(), &dto.CreditRequest{
		AccountID:             user.ID,
		CounterpartyAccountID: clearing.ID,
		Amount:                decimal.NewFromInt(400),
		Currency:              "KES",
		IdempotencyKey:        "credit-1",
	})
	s.NoError(err)

	clearingAfter, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), clearing.ID)
	s.True(clearingAfter.Available.Equal(decimal.NewFromInt(-400)))
}

func (s *WalletServiceSuite) TestIdempotentReplayHasOneEffect() {
	from := seedAccount(&s.BaseServiceTestSuite, "acc_from", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(1000))
	to := seedAccount(&s.BaseServiceTestSuite, "acc_to", "user-2", types.OwnerTypeUser, "KES", decimal.Zero)

	req := &dto.TransferRequest{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.NewFromInt(100),
		Currency:       "KES",
		IdempotencyKey: "xfer-replay",
	}

	first, err := s.service.Transfer(s.GetContext(), req)
	s.NoError(err)
	second, err := s.service.Transfer(s.GetContext(), req)
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	// the replay returned the stored result without moving money again
	fromAfter, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), from.ID)
	s.True(fromAfter.Available.Equal(decimal.NewFromInt(900)))
}

func (s *WalletServiceSuite) TestMissingIdempotencyKeyRejected() {
	from := seedAccount(&s.BaseServiceTestSuite, "acc_from", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(1000))
	to := seedAccount(&s.BaseServiceTestSuite, "acc_to", "user-2", types.OwnerTypeUser, "KES", decimal.Zero)

	_, err := s.service.Transfer(s.GetContext(), &dto.TransferRequest{
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        decimal.NewFromInt(100),
		Currency:      "KES",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WalletServiceSuite) TestCurrencyMismatchRejected() {
	from := seedAccount(&s.BaseServiceTestSuite, "acc_from", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(1000))
	to := seedAccount(&s.BaseServiceTestSuite, "acc_to", "user-2", types.OwnerTypeUser, "UGX", decimal.Zero)

	_, err := s.service.Transfer(s.GetContext(), &dto.TransferRequest{
		FromAccountID:  from.ID,
		ToAccountID:    to.ID,
		Amount:         decimal.NewFromInt(100),
		Currency:       "KES",
		IdempotencyKey: "xfer-ccy",
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *WalletServiceSuite) TestHoldCaptureLifecycle() {
	account := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(1000))
	dest := seedAccount(&s.BaseServiceTestSuite, "acc_dest", "driver-1", types.OwnerTypeDriver, "KES", decimal.Zero)

	holdResp, err := s.service.Hold(s.GetContext(), &dto.HoldRequest{
		AccountID:      account.ID,
		Amount:         decimal.NewFromInt(300),
		Currency:       "KES",
		IdempotencyKey: "hold-1",
	})
	s.NoError(err)
	s.Equal(types.HoldStatusActive, holdResp.Hold.Status)

	// funds shifted from available to held, no ledger entries yet
	afterHold, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), account.ID)
	s.True(afterHold.Available.Equal(decimal.NewFromInt(700)))
	s.True(afterHold.Held.Equal(decimal.NewFromInt(300)))
	entries, _ := s.GetStores().LedgerRepo.ListByTransaction(s.GetContext(), holdResp.TransactionID)
	s.Empty(entries)

	captureResp, err := s.service.Capture(s.GetContext(), &dto.CaptureRequest{
		HoldID:               holdResp.Hold.ID,
		DestinationAccountID: dest.ID,
		IdempotencyKey:       "capture-1",
	})
	s.NoError(err)
	s.Equal(types.TransactionStatusCompleted, captureResp.Status)

	afterCapture, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), account.ID)
	destAfter, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), dest.ID)
	s.True(afterCapture.Held.IsZero())
	s.True(destAfter.Available.Equal(decimal.NewFromInt(300)))

	entries, _ = s.GetStores().LedgerRepo.ListByTransaction(s.GetContext(), holdResp.TransactionID)
	s.Len(entries, 2)
	s.True(ledger.SignedSum(entries).IsZero())

	// a captured hold cannot be captured or released again
	_, err = s.service.Capture(s.GetContext(), &dto.CaptureRequest{
		HoldID:               holdResp.Hold.ID,
		DestinationAccountID: dest.ID,
		IdempotencyKey:       "capture-2",
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *WalletServiceSuite) TestHoldReleaseReturnsFunds() {
	account := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(500))

	holdResp, err := s.service.Hold(s.GetContext(), &dto.HoldRequest{
		AccountID:      account.ID,
		Amount:         decimal.NewFromInt(200),
		Currency:       "KES",
		IdempotencyKey: "hold-rel",
	})
	s.NoError(err)

	released, err := s.service.Release(s.GetContext(), &dto.ReleaseRequest{
		HoldID:         holdResp.Hold.ID,
		IdempotencyKey: "release-1",
		Reason:         "order cancelled",
	})
	s.NoError(err)
	s.Equal(types.HoldStatusReleased, released.Hold.Status)

	after, _ := s.GetStores().WalletRepo.GetAccount(s.GetContext(), account.ID)
	s.True(after.Available.Equal(decimal.NewFromInt(500)))
	s.True(after.Held.IsZero())

	txn, err := s.GetStores().TransactionRepo.Get(s.GetContext(), holdResp.TransactionID)
	s.NoError(err)
	s.Equal(types.TransactionStatusFailed, txn.Status)
	s.Equal("order cancelled", *txn.FailureReason)
}

func (s *WalletServiceSuite) TestHoldInsufficientAvailable() {
	account := seedAccount(&s.BaseServiceTestSuite, "acc_user", "user-1", types.OwnerTypeUser, "KES", decimal.NewFromInt(100))

	_, err := s.service.Hold(s.GetContext(), &dto.HoldRequest{
		AccountID:      account.ID,
		Amount:         decimal.NewFromInt(101),
		Currency:       "KES",
		IdempotencyKey: "hold-too-big",
	})
	s.Error(err)
	s.True(ierr.IsInsufficientBalance(err))
}
