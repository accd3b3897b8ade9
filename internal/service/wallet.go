package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/domain/ledger"
	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	"github.com/ubi-mobility/payment-core/internal/domain/wallet"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// WalletService owns internal money movement: balances only change here or
// in the callback service, always inside one DB transaction with balanced
// ledger entries.
type WalletService interface {
	CreateAccount(ctx context.Context, req *dto.CreateAccountRequest) (*dto.AccountResponse, error)
	GetAccount(ctx context.Context, id string) (*dto.AccountResponse, error)
	GetAccountByOwner(ctx context.Context, ownerID, currency string) (*dto.AccountResponse, error)
	GetHistory(ctx context.Context, accountID string, limit int) (*dto.AccountHistoryResponse, error)

	Credit(ctx context.Context, req *dto.CreditRequest) (*dto.TransactionResponse, error)
	Debit(ctx context.Context, req *dto.DebitRequest) (*dto.TransactionResponse, error)
	Transfer(ctx context.Context, req *dto.TransferRequest) (*dto.TransactionResponse, error)
	TopUp(ctx context.Context, req *dto.InitiatePaymentRequest) (*dto.PaymentResponse, error)

	Hold(ctx context.Context, req *dto.HoldRequest) (*dto.HoldResponse, error)
	Capture(ctx context.Context, req *dto.CaptureRequest) (*dto.TransactionResponse, error)
	Release(ctx context.Context, req *dto.ReleaseRequest) (*dto.HoldResponse, error)
}

type walletService struct {
	ServiceParams
}

func NewWalletService(params ServiceParams) WalletService {
	return &walletService{ServiceParams: params}
}

func (s *walletService) CreateAccount(ctx context.Context, req *dto.CreateAccountRequest) (*dto.AccountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.Config.SupportsCurrency(req.Currency) {
		return nil, unsupportedCurrency(req.Currency)
	}

	account := &wallet.Account{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET_ACCOUNT),
		OwnerID:   req.OwnerID,
		OwnerType: req.OwnerType,
		Currency:  req.Currency,
		Available: decimal.Zero,
		Pending:   decimal.Zero,
		Held:      decimal.Zero,
		Metadata:  req.Metadata,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.WalletRepo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.Logger.Infow("created wallet account",
		"account_id", account.ID, "owner_id", account.OwnerID, "currency", account.Currency)
	return &dto.AccountResponse{Account: account}, nil
}

func (s *walletService) GetAccount(ctx context.Context, id string) (*dto.AccountResponse, error) {
	account, err := s.WalletRepo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.AccountResponse{Account: account}, nil
}

func (s *walletService) GetAccountByOwner(ctx context.Context, ownerID, currency string) (*dto.AccountResponse, error) {
	account, err := s.WalletRepo.GetAccountByOwner(ctx, ownerID, currency)
	if err != nil {
		return nil, err
	}
	return &dto.AccountResponse{Account: account}, nil
}

func (s *walletService) GetHistory(ctx context.Context, accountID string, limit int) (*dto.AccountHistoryResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	txns, err := s.TransactionRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}
	entries, err := s.LedgerRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}
	return &dto.AccountHistoryResponse{
		AccountID:    accountID,
		Transactions: txns,
		Entries:      entries,
	}, nil
}

func (s *walletService) Credit(ctx context.Context, req *dto.CreditRequest) (*dto.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return runIdempotent(ctx, s.ServiceParams, req.IdempotencyKey, func(ctx context.Context) (*dto.TransactionResponse, error) {
		return s.move(ctx, moveParams{
			FromAccountID:  req.CounterpartyAccountID,
			ToAccountID:    req.AccountID,
			Amount:         req.Amount,
			Currency:       req.Currency,
			Type:           types.TransactionTypeTransfer,
			IdempotencyKey: req.IdempotencyKey,
			Reason:         req.Reason,
		})
	})
}

func (s *walletService) Debit(ctx context.Context, req *dto.DebitRequest) (*dto.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return runIdempotent(ctx, s.ServiceParams, req.IdempotencyKey, func(ctx context.Context) (*dto.TransactionResponse, error) {
		return s.move(ctx, moveParams{
			FromAccountID:  req.AccountID,
			ToAccountID:    req.CounterpartyAccountID,
			Amount:         req.Amount,
			Currency:       req.Currency,
			Type:           types.TransactionTypeTransfer,
			IdempotencyKey: req.IdempotencyKey,
			Reason:         req.Reason,
		})
	})
}

func (s *walletService) Transfer(ctx context.Context, req *dto.TransferRequest) (*dto.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return runIdempotent(ctx, s.ServiceParams, req.IdempotencyKey, func(ctx context.Context) (*dto.TransactionResponse, error) {
		return s.move(ctx, moveParams{
			FromAccountID:  req.FromAccountID,
			ToAccountID:    req.ToAccountID,
			Amount:         req.Amount,
			Currency:       req.Currency,
			Type:           types.TransactionTypeTransfer,
			IdempotencyKey: req.IdempotencyKey,
			Reason:         req.Reason,
		})
	})
}

// TopUp funds a wallet from an external provider. It is a payment initiation
// with the transaction typed as TOPUP; the wallet is credited only once the
// provider confirms via callback.
func (s *walletService) TopUp(ctx context.Context, req *dto.InitiatePaymentRequest) (*dto.PaymentResponse, error) {
	payments := NewPaymentService(s.ServiceParams)
	return payments.(*paymentService).initiate(ctx, req, types.TransactionTypeTopup)
}

type moveParams struct {
	FromAccountID  string
	ToAccountID    string
	Amount         decimal.Decimal
	Currency       string
	Type           types.TransactionType
	IdempotencyKey string
	Reason         string
}

// move atomically debits one account and credits another, writing the
// transaction record and the balanced ledger pair in the same DB transaction.
func (s *walletService) move(ctx context.Context, p moveParams) (*dto.TransactionResponse, error) {
	var txn *transaction.Transaction

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		from, to, err := lockPair(ctx, s.WalletRepo, p.FromAccountID, p.ToAccountID)
		if err != nil {
			return err
		}
		if err := checkCurrency(from, p.Currency); err != nil {
			return err
		}
		if err := checkCurrency(to, p.Currency); err != nil {
			return err
		}
		if err := checkSufficientBalance(from, p.Amount); err != nil {
			return err
		}

		txn = &transaction.Transaction{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
			Type:           p.Type,
			Status:         types.TransactionStatusCompleted,
			Amount:         p.Amount,
			Currency:       p.Currency,
			AccountID:      p.FromAccountID,
			CounterpartyID: &p.ToAccountID,
			IdempotencyKey: p.IdempotencyKey,
			BaseModel:      types.GetDefaultBaseModel(ctx),
		}
		if p.Reason != "" {
			txn.Metadata = types.Metadata{"reason": p.Reason}
		}
		if err := txn.Validate(); err != nil {
			return err
		}
		if err := s.TransactionRepo.Create(ctx, txn); err != nil {
			return err
		}

		entries := ledger.BalancedPair(ctx, from.ID, to.ID, p.Amount, p.Currency, txn.ID)
		if err := s.LedgerRepo.Append(ctx, entries); err != nil {
			return err
		}

		from.Available = from.Available.Sub(p.Amount)
		to.Available = to.Available.Add(p.Amount)
		if err := s.WalletRepo.UpdateBalances(ctx, from); err != nil {
			return err
		}
		return s.WalletRepo.UpdateBalances(ctx, to)
	})
	if err != nil {
		return nil, err
	}
	return &dto.TransactionResponse{Transaction: txn}, nil
}

func (s *walletService) Hold(ctx context.Context, req *dto.HoldRequest) (*dto.HoldResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return runIdempotent(ctx, s.ServiceParams, req.IdempotencyKey, func(ctx context.Context) (*dto.HoldResponse, error) {
		var hold *wallet.Hold
		var txn *transaction.Transaction

		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			account, err := s.WalletRepo.GetAccountForUpdate(ctx, req.AccountID)
			if err != nil {
				return err
			}
			if err := checkCurrency(account, req.Currency); err != nil {
				return err
			}
			if err := checkSufficientBalance(account, req.Amount); err != nil {
				return err
			}

			txn = &transaction.Transaction{
				ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
				Type:           types.TransactionTypePayment,
				Status:         types.TransactionStatusHeld,
				Amount:         req.Amount,
				Currency:       req.Currency,
				AccountID:      req.AccountID,
				IdempotencyKey: req.IdempotencyKey,
				BaseModel:      types.GetDefaultBaseModel(ctx),
			}
			if req.Reason != "" {
				txn.Metadata = types.Metadata{"reason": req.Reason}
			}
			if err := s.TransactionRepo.Create(ctx, txn); err != nil {
				return err
			}

			hold = &wallet.Hold{
				ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET_HOLD),
				AccountID:     account.ID,
				Amount:        req.Amount,
				Currency:      req.Currency,
				Status:        types.HoldStatusActive,
				TransactionID: txn.ID,
				BaseModel:     types.GetDefaultBaseModel(ctx),
			}
			if err := hold.Validate(); err != nil {
				return err
			}
			if err := s.WalletRepo.CreateHold(ctx, hold); err != nil {
				return err
			}

			// funds stay on the account until capture, only the balance
			// component changes
			account.Available = account.Available.Sub(req.Amount)
			account.Held = account.Held.Add(req.Amount)
			return s.WalletRepo.UpdateBalances(ctx, account)
		})
		if err != nil {
			return nil, err
		}
		return &dto.HoldResponse{Hold: hold, TransactionID: txn.ID}, nil
	})
}

func (s *walletService) Capture(ctx context.Context, req *dto.CaptureRequest) (*dto.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return runIdempotent(ctx, s.ServiceParams, req.IdempotencyKey, func(ctx context.Context) (*dto.TransactionResponse, error) {
		var txn *transaction.Transaction

		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			hold, err := s.WalletRepo.GetHold(ctx, req.HoldID)
			if err != nil {
				return err
			}
			if hold.Status != types.HoldStatusActive {
				return holdNotActive(hold)
			}

			source, dest, err := lockPair(ctx, s.WalletRepo, hold.AccountID, req.DestinationAccountID)
			if err != nil {
				return err
			}
			if err := checkCurrency(dest, hold.Currency); err != nil {
				return err
			}

			txn, err = s.TransactionRepo.Get(ctx, hold.TransactionID)
			if err != nil {
				return err
			}

			entries := ledger.BalancedPair(ctx, source.ID, dest.ID, hold.Amount, hold.Currency, txn.ID)
			if err := s.LedgerRepo.Append(ctx, entries); err != nil {
				return err
			}

			source.Held = source.Held.Sub(hold.Amount)
			dest.Available = dest.Available.Add(hold.Amount)
			if err := s.WalletRepo.UpdateBalances(ctx, source); err != nil {
				return err
			}
			if err := s.WalletRepo.UpdateBalances(ctx, dest); err != nil {
				return err
			}

			if err := s.WalletRepo.UpdateHoldStatus(ctx, hold.ID, types.HoldStatusCaptured); err != nil {
				return err
			}

			txn.Status = types.TransactionStatusCompleted
			txn.CounterpartyID = &dest.ID
			txn.UpdatedAt = time.Now().UTC()
			txn.UpdatedBy = types.GetUserID(ctx)
			return s.TransactionRepo.Update(ctx, txn)
		})
		if err != nil {
			return nil, err
		}
		return &dto.TransactionResponse{Transaction: txn}, nil
	})
}

func (s *walletService) Release(ctx context.Context, req *dto.ReleaseRequest) (*dto.HoldResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return runIdempotent(ctx, s.ServiceParams, req.IdempotencyKey, func(ctx context.Context) (*dto.HoldResponse, error) {
		var hold *wallet.Hold

		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			var err error
			hold, err = s.WalletRepo.GetHold(ctx, req.HoldID)
			if err != nil {
				return err
			}
			if hold.Status != types.HoldStatusActive {
				return holdNotActive(hold)
			}

			account, err := s.WalletRepo.GetAccountForUpdate(ctx, hold.AccountID)
			if err != nil {
				return err
			}

			account.Held = account.Held.Sub(hold.Amount)
			account.Available = account.Available.Add(hold.Amount)
			if err := s.WalletRepo.UpdateBalances(ctx, account); err != nil {
				return err
			}

			if err := s.WalletRepo.UpdateHoldStatus(ctx, hold.ID, types.HoldStatusReleased); err != nil {
				return err
			}
			hold.Status = types.HoldStatusReleased

			txn, err := s.TransactionRepo.Get(ctx, hold.TransactionID)
			if err != nil {
				return err
			}
			txn.Status = types.TransactionStatusFailed
			reason := "hold released"
			if req.Reason != "" {
				reason = req.Reason
			}
			txn.FailureReason = &reason
			txn.UpdatedAt = time.Now().UTC()
			txn.UpdatedBy = types.GetUserID(ctx)
			return s.TransactionRepo.Update(ctx, txn)
		})
		if err != nil {
			return nil, err
		}
		return &dto.HoldResponse{Hold: hold, TransactionID: hold.TransactionID}, nil
	})
}

// lockPair takes row locks on both accounts in ID order so concurrent
// transfers over the same pair cannot deadlock.
func lockPair(ctx context.Context, repo wallet.Repository, aID, bID string) (*wallet.Account, *wallet.Account, error) {
	first, second := aID, bID
	if second < first {
		first, second = second, first
	}

	firstAcc, err := repo.GetAccountForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	secondAcc, err := repo.GetAccountForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if firstAcc.ID == aID {
		return firstAcc, secondAcc, nil
	}
	return secondAcc, firstAcc, nil
}

// checkSufficientBalance enforces the non-negative available invariant.
// System accounts are contra accounts mirroring external funds and may go
// negative.
func checkSufficientBalance(account *wallet.Account, amount decimal.Decimal) error {
	if account.OwnerType == types.OwnerTypeSystem {
		return nil
	}
	if account.Available.LessThan(amount) {
		return ierr.NewError("insufficient balance").
			WithHint("The account does not have enough available funds").
			WithReportableDetails(map[string]interface{}{
				"account_id": account.ID,
				"available":  account.Available,
				"requested":  amount,
			}).
			Mark(ierr.ErrInsufficientBalance)
	}
	return nil
}

func checkCurrency(account *wallet.Account, currency string) error {
	if account.Currency != currency {
		return ierr.NewError("currency mismatch").
			WithHint("The request currency does not match the account currency").
			WithReportableDetails(map[string]interface{}{
				"account_id":       account.ID,
				"account_currency": account.Currency,
				"request_currency": currency,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func holdNotActive(hold *wallet.Hold) error {
	return ierr.NewError("hold is not active").
		WithHint("Only active holds can be captured or released").
		WithReportableDetails(map[string]interface{}{
			"hold_id": hold.ID,
			"status":  hold.Status,
		}).
		Mark(ierr.ErrInvalidOperation)
}

func unsupportedCurrency(currency string) error {
	return ierr.NewError("unsupported currency").
		WithHint("The currency is not enabled on this platform").
		WithReportableDetails(map[string]interface{}{
			"currency": currency,
		}).
		Mark(ierr.ErrValidation)
}
