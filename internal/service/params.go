package service

import (
	"github.com/ubi-mobility/payment-core/internal/cache"
	"github.com/ubi-mobility/payment-core/internal/config"
	"github.com/ubi-mobility/payment-core/internal/domain/fraud"
	"github.com/ubi-mobility/payment-core/internal/domain/idempotency"
	"github.com/ubi-mobility/payment-core/internal/domain/ledger"
	"github.com/ubi-mobility/payment-core/internal/domain/reconciliation"
	"github.com/ubi-mobility/payment-core/internal/domain/settlement"
	"github.com/ubi-mobility/payment-core/internal/domain/transaction"
	"github.com/ubi-mobility/payment-core/internal/domain/wallet"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
	"github.com/ubi-mobility/payment-core/internal/provider"
)

// ServiceParams carries the shared dependencies injected into every service.
// Each service picks what it needs.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	WalletRepo         wallet.Repository
	LedgerRepo         ledger.Repository
	TransactionRepo    transaction.Repository
	FraudRepo          fraud.Repository
	ReconciliationRepo reconciliation.Repository
	SettlementRepo     settlement.Repository
	IdempotencyRepo    idempotency.Repository

	ProviderRegistry *provider.Registry
	StatementSource  reconciliation.StatementSource
}

func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	walletRepo wallet.Repository,
	ledgerRepo ledger.Repository,
	transactionRepo transaction.Repository,
	fraudRepo fraud.Repository,
	reconciliationRepo reconciliation.Repository,
	settlementRepo settlement.Repository,
	idempotencyRepo idempotency.Repository,
	providerRegistry *provider.Registry,
	statementSource reconciliation.StatementSource,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		DB:                 db,
		Cache:              cache,
		WalletRepo:         walletRepo,
		LedgerRepo:         ledgerRepo,
		TransactionRepo:    transactionRepo,
		FraudRepo:          fraudRepo,
		ReconciliationRepo: reconciliationRepo,
		SettlementRepo:     settlementRepo,
		IdempotencyRepo:    idempotencyRepo,
		ProviderRegistry:   providerRegistry,
		StatementSource:    statementSource,
	}
}
