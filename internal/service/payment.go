package service

import (
	"context"
	"time"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/provider"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// PaymentService drives provider-facing money movement: collections, card
// charges and payouts. Every initiation is fraud-screened before anything is
// dispatched to a provider.
type PaymentService interface {
	InitiatePayment(ctx context.Context, req *dto.InitiatePaymentRequest) (*dto.PaymentResponse, error)
	InitiatePayout(ctx context.Context, req *dto.InitiatePayoutRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	// SyncPaymentStatus polls the provider for a pending transaction and
	// applies the result as if a callback had arrived.
	SyncPaymentStatus(ctx context.Context, id string) (*dto.PaymentResponse, error)
}

type paymentService struct {
	ServiceParams
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

func (s *paymentService) InitiatePayment(ctx context.Context, req *dto.InitiatePaymentRequest) (*dto.PaymentResponse, error) {
	return s.initiate(ctx, req, types.TransactionTypePayment)
}

func (s *paymentService) initiate(ctx context.Context, req *dto.InitiatePaymentRequest, txnType types.TransactionType) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.Config.SupportsCurrency(req.Currency) {
		return nil, unsupportedCurrency(req.Currency)
	}

	requestType := inboundRequestType(req.Provider)
	adapter, err := s.ProviderRegistry.GetFor(req.Provider, requestType)
	if err != nil {
		return nil, err
	}

	return runIdempotent(ctx, s.ServiceParams, req.IdempotencyKey, func(ctx context.Context) (*dto.PaymentResponse, error) {
		txn := &transaction.Transaction{
			ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
			Type:           txnType,
			Status:         types.TransactionStatusPending,
			Amount:         req.Amount,
			Currency:       req.Currency,
			AccountID:      req.AccountID,
			Provider:       &req.Provider,
			IdempotencyKey: req.IdempotencyKey,
			Metadata:       req.Metadata,
			BaseModel:      types.GetDefaultBaseModel(ctx),
		}
		if err := txn.Validate(); err != nil {
			return nil, err
		}
		if err := s.TransactionRepo.Create(ctx, txn); err != nil {
			return nil, err
		}

		assessment, err := NewFraudService(s.ServiceParams).Assess(ctx, &dto.FraudCheckRequest{
			TransactionID: txn.ID,
			AccountID:     req.AccountID,
			InstrumentID:  req.InstrumentID(),
			Amount:        req.Amount,
			Currency:      req.Currency,
			CountryCode:   req.CountryCode,
		})
		if err != nil {
			return nil, err
		}
		if assessment.RiskLevel == types.RiskLevelBlock {
			s.failTransaction(ctx, txn, "blocked by fraud checks")
			return nil, ierr.NewError("transaction blocked by fraud checks").
				WithHint("This transaction was declined").
				WithReportableDetails(map[string]interface{}{
					"transaction_id": txn.ID,
					"risk_score":     assessment.RiskScore,
				}).
				Mark(ierr.ErrFraudBlocked)
		}
		if assessment.RiskLevel == types.RiskLevelReview {
			s.Logger.Warnw("transaction flagged for review, proceeding",
				"transaction_id", txn.ID, "risk_score", assessment.RiskScore,
				"triggers", assessment.Triggers)
		}

		resp, err := provider.InitiateWithRetry(ctx, adapter, &provider.Request{
			Type:        requestType,
			Amount:      req.Amount,
			Currency:    req.Currency,
			Reference:   txn.ID,
			PhoneNumber: req.PhoneNumber,
			CardToken:   req.CardToken,
			Narrative:   req.Narrative,
		}, s.Config.Retry, s.Logger)
		if err != nil {
			s.failTransaction(ctx, txn, err.Error())
			return nil, err
		}

		txn.ProviderReference = &resp.ProviderReference
		txn.UpdatedAt = time.Now().UTC()
		txn.UpdatedBy = types.GetUserID(ctx)
		if err := s.TransactionRepo.Update(ctx, txn); err != nil {
			return nil, err
		}

		s.Logger.Infow("payment initiated",
			"transaction_id", txn.ID, "provider", req.Provider,
			"provider_reference", resp.ProviderReference)
		return &dto.PaymentResponse{Transaction: txn, Assessment: assessment}, nil
	})
}

func (s *paymentService) InitiatePayout(ctx context.Context, req *dto.InitiatePayoutRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.Config.SupportsCurrency(req.Currency) {
		return nil, unsupportedCurrency(req.Currency)
	}

	adapter, err := s.ProviderRegistry.GetFor(req.Provider, types.ProviderRequestTypePayout)
	if err != nil {
		return nil, err
	}

	return runIdempotent(ctx, s.ServiceParams, req.IdempotencyKey, func(ctx context.Context) (*dto.PaymentResponse, error) {
		var txn *transaction.Transaction

		// reserve the funds before talking to the provider: the amount moves
		// to pending and is only finalized or returned by the callback
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
				Type:           types.TransactionTypePayout,
				Status:         types.TransactionStatusPending,
				Amount:         req.Amount,
				Currency:       req.Currency,
				AccountID:      req.AccountID,
				Provider:       &req.Provider,
				IdempotencyKey: req.IdempotencyKey,
				BaseModel:      types.GetDefaultBaseModel(ctx),
			}
			if err := s.TransactionRepo.Create(ctx, txn); err != nil {
				return err
			}

			account.Available = account.Available.Sub(req.Amount)
			account.Pending = account.Pending.Add(req.Amount)
			return s.WalletRepo.UpdateBalances(ctx, account)
		})
		if err != nil {
			return nil, err
		}

		resp, err := provider.InitiateWithRetry(ctx, adapter, &provider.Request{
			Type:        types.ProviderRequestTypePayout,
			Amount:      req.Amount,
			Currency:    req.Currency,
			Reference:   txn.ID,
			PhoneNumber: req.PhoneNumber,
			Narrative:   req.Narrative,
		}, s.Config.Retry, s.Logger)
		if err != nil {
			if revertErr := s.revertPayoutReservation(ctx, txn, err.Error()); revertErr != nil {
				s.Logger.Errorw("failed to revert payout reservation",
					"transaction_id", txn.ID, "error", revertErr)
			}
			return nil, err
		}

		txn.ProviderReference = &resp.ProviderReference
		txn.UpdatedAt = time.Now().UTC()
		txn.UpdatedBy = types.GetUserID(ctx)
		if err := s.TransactionRepo.Update(ctx, txn); err != nil {
			return nil, err
		}

		s.Logger.Infow("payout initiated",
			"transaction_id", txn.ID, "provider", req.Provider,
			"provider_reference", resp.ProviderReference)
		return &dto.PaymentResponse{Transaction: txn}, nil
	})
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	txn, err := s.TransactionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.PaymentResponse{Transaction: txn}
	if assessment, err := s.FraudRepo.GetByTransaction(ctx, id); err == nil {
		resp.Assessment = assessment
	}
	return resp, nil
}

func (s *paymentService) SyncPaymentStatus(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	txn, err := s.TransactionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.IsTerminal() {
		return &dto.PaymentResponse{Transaction: txn}, nil
	}
	if txn.Provider == nil || txn.ProviderReference == nil {
		return nil, ierr.NewError("transaction was never dispatched").
			WithHint("Only dispatched transactions can be synced").
			Mark(ierr.ErrInvalidOperation)
	}

	adapter, err := s.ProviderRegistry.Get(*txn.Provider)
	if err != nil {
		return nil, err
	}
	status, err := adapter.CheckStatus(ctx, *txn.ProviderReference)
	if err != nil {
		return nil, err
	}
	if status == types.ProviderStatusPending {
		return &dto.PaymentResponse{Transaction: txn}, nil
	}

	if err := settleProviderOutcome(ctx, s.ServiceParams, txn, status, "provider poll"); err != nil {
		return nil, err
	}
	refreshed, err := s.TransactionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentResponse{Transaction: refreshed}, nil
}

func (s *paymentService) failTransaction(ctx context.Context, txn *transaction.Transaction, reason string) {
	txn.Status = types.TransactionStatusFailed
	txn.FailureReason = &reason
	txn.UpdatedAt = time.Now().UTC()
	txn.UpdatedBy = types.GetUserID(ctx)
	if err := s.TransactionRepo.Update(ctx, txn); err != nil {
		s.Logger.Errorw("failed to mark transaction failed",
			"transaction_id", txn.ID, "error", err)
	}
}

func (s *paymentService) revertPayoutReservation(ctx context.Context, txn *transaction.Transaction, reason string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		account, err := s.WalletRepo.GetAccountForUpdate(ctx, txn.AccountID)
		if err != nil {
			return err
		}
		account.Pending = account.Pending.Sub(txn.Amount)
		account.Available = account.Available.Add(txn.Amount)
		if err := s.WalletRepo.UpdateBalances(ctx, account); err != nil {
			return err
		}

		txn.Status = types.TransactionStatusFailed
		txn.FailureReason = &reason
		txn.UpdatedAt = time.Now().UTC()
		txn.UpdatedBy = types.GetUserID(ctx)
		return s.TransactionRepo.Update(ctx, txn)
	})
}

// inboundRequestType maps a provider to the operation used for money-in
func inboundRequestType(p types.PaymentProvider) types.ProviderRequestType {
	switch p {
	case types.PaymentProviderFlutterwave:
		return types.ProviderRequestTypeCardCharge
	case types.PaymentProviderMTNMomo:
		return types.ProviderRequestTypeMerchantPayment
	default:
		return types.ProviderRequestTypeCollection
	}
}
