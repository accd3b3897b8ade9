package service

import (
	"context"
	"time"

	"github.com/ubi-mobility/payment-core/internal/domain/ledger"
	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/provider"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// CallbackService processes provider webhooks. Callbacks may arrive
// duplicated, out of order or for transactions this system never created;
// processing must stay idempotent under all three.
type CallbackService interface {
	ProcessCallback(ctx context.Context, providerName types.PaymentProvider, cb *provider.Callback) error
}

type callbackService struct {
	ServiceParams
}

func NewCallbackService(params ServiceParams) CallbackService {
	return &callbackService{ServiceParams: params}
}

func (s *callbackService) ProcessCallback(ctx context.Context, providerName types.PaymentProvider, cb *provider.Callback) error {
	adapter, err := s.ProviderRegistry.Get(providerName)
	if err != nil {
		return err
	}

	// nothing in the payload is trusted before this check passes
	if err := adapter.VerifyCallback(cb); err != nil {
		s.Logger.Warnw("rejected callback with invalid signature",
			"provider", providerName, "source_ip", cb.SourceIP)
		return err
	}

	event, err := adapter.ParseCallback(cb.Payload)
	if err != nil {
		return err
	}

	txn, err := s.resolveTransaction(ctx, providerName, event)
	if err != nil {
		return err
	}

	if txn.IsTerminal() {
		s.Logger.Infow("discarding callback replay for terminal transaction",
			"transaction_id", txn.ID, "status", txn.Status, "provider", providerName)
		return nil
	}
	if event.Status == types.ProviderStatusPending {
		return nil
	}

	if !event.Amount.IsZero() && !event.Amount.Equal(txn.Amount) {
		// reconciliation picks this up as an amount mismatch; the callback
		// still settles the transaction at its recorded amount
		s.Logger.Warnw("callback amount differs from transaction",
			"transaction_id", txn.ID,
			"transaction_amount", txn.Amount,
			"callback_amount", event.Amount)
	}

	if event.ProviderReference != "" && txn.ProviderReference == nil {
		txn.ProviderReference = &event.ProviderReference
	}

	return settleProviderOutcome(ctx, s.ServiceParams, txn, event.Status, event.FailureReason)
}

func (s *callbackService) resolveTransaction(ctx context.Context, providerName types.PaymentProvider, event *provider.CallbackEvent) (*transaction.Transaction, error) {
	if event.Reference != "" {
		txn, err := s.TransactionRepo.Get(ctx, event.Reference)
		if err == nil {
			return txn, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}
	if event.ProviderReference != "" {
		return s.TransactionRepo.GetByProviderReference(ctx, providerName, event.ProviderReference)
	}
	return nil, ierr.NewError("callback references no known transaction").
		WithHint("No transaction matches the callback references").
		Mark(ierr.ErrNotFound)
}

// settleProviderOutcome finalizes a pending transaction from a provider
// verdict: the status flip, wallet balances and ledger entries land in one
// DB transaction. The flip is guarded on the transaction still being
// non-terminal, so duplicate concurrent callbacks settle exactly once.
func settleProviderOutcome(ctx context.Context, params ServiceParams, txn *transaction.Transaction, status types.ProviderStatus, failureReason string) error {
	providerRef := txn.ProviderReference

	return params.DB.WithTx(ctx, func(ctx context.Context) error {
		current, err := params.TransactionRepo.Get(ctx, txn.ID)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return nil
		}
		if providerRef != nil && current.ProviderReference == nil {
			current.ProviderReference = providerRef
		}

		if status == types.ProviderStatusFailed {
			return failProviderTransaction(ctx, params, current, failureReason)
		}
		return completeProviderTransaction(ctx, params, current)
	})
}

func completeProviderTransaction(ctx context.Context, params ServiceParams, txn *transaction.Transaction) error {
	clearingID := types.ClearingAccountID(*txn.Provider)

	switch txn.Type {
	case types.TransactionTypeTopup, types.TransactionTypePayment, types.TransactionTypePayout:
	default:
		return ierr.NewErrorf("transaction type %s cannot be settled by a provider", txn.Type).
			Mark(ierr.ErrInvalidOperation)
	}

	// claim the transaction before touching any balance; the loser of a
	// duplicate-delivery race flips zero rows and settles nothing
	txn.Status = types.TransactionStatusCompleted
	txn.UpdatedAt = time.Now().UTC()
	txn.UpdatedBy = types.GetUserID(ctx)
	claimed, err := params.TransactionRepo.FinalizeTerminal(ctx, txn)
	if err != nil {
		return err
	}
	if !claimed {
		params.Logger.Infow("discarding concurrent duplicate settlement",
			"transaction_id", txn.ID)
		return nil
	}

	switch txn.Type {
	case types.TransactionTypeTopup, types.TransactionTypePayment:
		// money arrived at the provider: credit the wallet against the
		// provider clearing account
		clearing, account, err := lockPair(ctx, params.WalletRepo, clearingID, txn.AccountID)
		if err != nil {
			return err
		}
		entries := ledger.BalancedPair(ctx, clearing.ID, account.ID, txn.Amount, txn.Currency, txn.ID)
		if err := params.LedgerRepo.Append(ctx, entries); err != nil {
			return err
		}
		clearing.Available = clearing.Available.Sub(txn.Amount)
		account.Available = account.Available.Add(txn.Amount)
		if err := params.WalletRepo.UpdateBalances(ctx, clearing); err != nil {
			return err
		}
		if err := params.WalletRepo.UpdateBalances(ctx, account); err != nil {
			return err
		}

	case types.TransactionTypePayout:
		// the reserved pending amount leaves the platform
		account, clearing, err := lockPair(ctx, params.WalletRepo, txn.AccountID, clearingID)
		if err != nil {
			return err
		}
		entries := ledger.BalancedPair(ctx, account.ID, clearing.ID, txn.Amount, txn.Currency, txn.ID)
		if err := params.LedgerRepo.Append(ctx, entries); err != nil {
			return err
		}
		account.Pending = account.Pending.Sub(txn.Amount)
		clearing.Available = clearing.Available.Add(txn.Amount)
		if err := params.WalletRepo.UpdateBalances(ctx, account); err != nil {
			return err
		}
		if err := params.WalletRepo.UpdateBalances(ctx, clearing); err != nil {
			return err
		}
	}

	params.Logger.Infow("transaction completed",
		"transaction_id", txn.ID, "type", txn.Type, "amount", txn.Amount)
	return nil
}

func failProviderTransaction(ctx context.Context, params ServiceParams, txn *transaction.Transaction, reason string) error {
	if reason == "" {
		reason = "rejected by provider"
	}
	txn.Status = types.TransactionStatusFailed
	txn.FailureReason = &reason
	txn.UpdatedAt = time.Now().UTC()
	txn.UpdatedBy = types.GetUserID(ctx)
	claimed, err := params.TransactionRepo.FinalizeTerminal(ctx, txn)
	if err != nil {
		return err
	}
	if !claimed {
		params.Logger.Infow("discarding concurrent duplicate settlement",
			"transaction_id", txn.ID)
		return nil
	}

	if txn.Type == types.TransactionTypePayout {
		// return the reserved amount
		account, err := params.WalletRepo.GetAccountForUpdate(ctx, txn.AccountID)
		if err != nil {
			return err
		}
		account.Pending = account.Pending.Sub(txn.Amount)
		account.Available = account.Available.Add(txn.Amount)
		if err := params.WalletRepo.UpdateBalances(ctx, account); err != nil {
			return err
		}
	}

	params.Logger.Infow("transaction failed",
		"transaction_id", txn.ID, "type", txn.Type, "reason", reason)
	return nil
}
