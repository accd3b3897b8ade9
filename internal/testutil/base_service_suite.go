package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

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
	"github.com/ubi-mobility/payment-core/internal/types"
	"github.com/ubi-mobility/payment-core/internal/validator"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	WalletRepo         wallet.Repository
	LedgerRepo         ledger.Repository
	TransactionRepo    transaction.Repository
	FraudRepo          fraud.Repository
	ReconciliationRepo reconciliation.Repository
	SettlementRepo     settlement.Repository
	IdempotencyRepo    idempotency.Repository
}

// BaseServiceTestSuite provides common setup for all service test suites:
// in-memory stores, a pass-through DB client and the default configuration.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx             context.Context
	stores          Stores
	statementSource *InMemoryStatementSource
	db              postgres.IClient
	cache           cache.Cache
	logger          *logger.Logger
	config          *config.Configuration
	now             time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	var err error
	s.logger, err = logger.NewLogger()
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.config = config.GetDefaultConfig()
	s.db = NewMockPostgresClient()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.cache = cache.NewInMemoryCache()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores = Stores{}
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = types.SetUserID(s.ctx, "user_test")
	s.ctx = types.SetRequestID(s.ctx, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		WalletRepo:         NewInMemoryWalletStore(),
		LedgerRepo:         NewInMemoryLedgerStore(),
		TransactionRepo:    NewInMemoryTransactionStore(),
		FraudRepo:          NewInMemoryFraudStore(),
		ReconciliationRepo: NewInMemoryReconciliationStore(),
		SettlementRepo:     NewInMemorySettlementStore(),
		IdempotencyRepo:    NewInMemoryIdempotencyStore(),
	}
	s.statementSource = NewInMemoryStatementSource()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetStatementSource() *InMemoryStatementSource {
	return s.statementSource
}

func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
