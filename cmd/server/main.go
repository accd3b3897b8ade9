package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/ubi-mobility/payment-core/internal/api"
	"github.com/ubi-mobility/payment-core/internal/api/cron"
	v1 "github.com/ubi-mobility/payment-core/internal/api/v1"
	"github.com/ubi-mobility/payment-core/internal/cache"
	"github.com/ubi-mobility/payment-core/internal/config"
	"github.com/ubi-mobility/payment-core/internal/domain/reconciliation"
	"github.com/ubi-mobility/payment-core/internal/httpclient"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/postgres"
	"github.com/ubi-mobility/payment-core/internal/provider"
	"github.com/ubi-mobility/payment-core/internal/repository"
	"github.com/ubi-mobility/payment-core/internal/service"
	"github.com/ubi-mobility/payment-core/internal/validator"
)

func init() {
	// All timestamps in the system are UTC
	time.Local = time.UTC

	// Local development convenience; missing .env is fine
	_ = godotenv.Load()

	validator.NewValidator()
}

func main() {
	var opts []fx.Option

	opts = append(opts,
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,

			provideCache,

			postgres.NewDB,
			providePostgresClient,

			httpclient.NewDefaultClient,

			repository.NewWalletRepository,
			repository.NewLedgerRepository,
			repository.NewTransactionRepository,
			repository.NewFraudRepository,
			repository.NewReconciliationRepository,
			repository.NewSettlementRepository,
			repository.NewIdempotencyRepository,

			provideProviderRegistry,
			provideStatementSource,
		),
	)

	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewWalletService,
			service.NewPaymentService,
			service.NewCallbackService,
			service.NewFraudService,
			service.NewReconciliationService,
			service.NewSettlementService,
		),
	)

	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideCache() cache.Cache {
	return cache.NewInMemoryCache()
}

func providePostgresClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideProviderRegistry(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) *provider.Registry {
	// status polling tolerates retries that a user-facing initiate call cannot
	// afford
	poller := httpclient.NewRetryableClient(log, cfg.Retry.MaxAttempts)

	return provider.NewRegistry(
		provider.NewMpesaAdapter(cfg.Providers.Mpesa, client, poller, log),
		provider.NewMTNMomoAdapter(cfg.Providers.MTNMomo, client, poller, log),
		provider.NewAirtelAdapter(cfg.Providers.Airtel, client, poller, log),
		provider.NewFlutterwaveAdapter(cfg.Providers.Flutterwave, client, poller, log),
	)
}

func provideStatementSource(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) reconciliation.StatementSource {
	return provider.NewStatementSource(cfg.Providers, client, log)
}

func provideHandlers(
	cfg *config.Configuration,
	log *logger.Logger,
	walletService service.WalletService,
	paymentService service.PaymentService,
	callbackService service.CallbackService,
	fraudService service.FraudService,
	reconciliationService service.ReconciliationService,
	settlementService service.SettlementService,
) api.Handlers {
	return api.Handlers{
		Health:         v1.NewHealthHandler(),
		Wallet:         v1.NewWalletHandler(walletService, log),
		Payment:        v1.NewPaymentHandler(paymentService, log),
		Webhook:        v1.NewWebhookHandler(callbackService, log),
		Reconciliation: v1.NewReconciliationHandler(reconciliationService, log),
		Settlement:     v1.NewSettlementHandler(settlementService, log),
		Fraud:          v1.NewFraudHandler(fraudService, log),

		ReconciliationCron: cron.NewReconciliationCronHandler(reconciliationService, cfg, log),
		SettlementCron:     cron.NewSettlementCronHandler(settlementService, cfg, log),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration) *gin.Engine {
	return api.NewRouter(handlers, cfg)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			db.Close()
			return nil
		},
	})
}
