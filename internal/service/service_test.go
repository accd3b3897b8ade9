package service

import (
	"github.com/shopspring/decimal"

	"github.com/ubi-mobility/payment-core/internal/domain/wallet"
	"github.com/ubi-mobility/payment-core/internal/provider"
	"github.com/ubi-mobility/payment-core/internal/testutil"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// newTestParams assembles ServiceParams from a base suite's in-memory stores
func newTestParams(s *testutil.BaseServiceTestSuite, adapters ...provider.Adapter) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger: s.GetLogger(),
		Config: s.GetConfig(),
		DB:     s.GetDB(),
		Cache:  s.GetCache(),

		WalletRepo:         stores.WalletRepo,
		LedgerRepo:         stores.LedgerRepo,
		TransactionRepo:    stores.TransactionRepo,
		FraudRepo:          stores.FraudRepo,
		ReconciliationRepo: stores.ReconciliationRepo,
		SettlementRepo:     stores.SettlementRepo,
		IdempotencyRepo:    stores.IdempotencyRepo,

		ProviderRegistry: provider.NewRegistry(adapters...),
		StatementSource:  s.GetStatementSource(),
	}
}

// seedAccount creates an account with a preset available balance
func seedAccount(s *testutil.BaseServiceTestSuite, id, ownerID string, ownerType types.OwnerType, currency string, available decimal.Decimal) *wallet.Account {
	account := &wallet.Account{
		ID:        id,
		OwnerID:   ownerID,
		OwnerType: ownerType,
		Currency:  currency,
		Available: available,
		Pending:   decimal.Zero,
		Held:      decimal.Zero,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	err := s.GetStores().WalletRepo.CreateAccount(s.GetContext(), account)
	s.Require().NoError(err)
	return account
}
