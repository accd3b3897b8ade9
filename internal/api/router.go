package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ubi-mobility/payment-core/internal/api/cron"
	v1 "github.com/ubi-mobility/payment-core/internal/api/v1"
	"github.com/ubi-mobility/payment-core/internal/config"
	"github.com/ubi-mobility/payment-core/internal/rest/middleware"
)

type Handlers struct {
	Health         *v1.HealthHandler
	Wallet         *v1.WalletHandler
	Payment        *v1.PaymentHandler
	Webhook        *v1.WebhookHandler
	Reconciliation *v1.ReconciliationHandler
	Settlement     *v1.SettlementHandler
	Fraud          *v1.FraudHandler

	ReconciliationCron *cron.ReconciliationCronHandler
	SettlementCron     *cron.SettlementCronHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1", middleware.RateLimiter(cfg.RateLimit.General))
	registerWalletRoutes(v1Group, handlers)

	payments := router.Group("/v1", middleware.RateLimiter(cfg.RateLimit.Payment))
	registerPaymentRoutes(payments, handlers)

	webhooks := router.Group("/webhooks", middleware.RateLimiter(cfg.RateLimit.Webhook))
	webhooks.POST("/:provider", handlers.Webhook.HandleCallback)

	admin := router.Group("/admin", middleware.RateLimiter(cfg.RateLimit.Admin))
	registerAdminRoutes(admin, handlers)

	cronGroup := router.Group("/cron", middleware.RateLimiter(cfg.RateLimit.Admin))
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerWalletRoutes(router *gin.RouterGroup, handlers Handlers) {
	wallets := router.Group("/wallets")
	{
		wallets.POST("", handlers.Wallet.CreateAccount)
		wallets.GET("/:id", handlers.Wallet.GetAccount)
		wallets.GET("/:id/history", handlers.Wallet.GetHistory)
		wallets.GET("/owner/:owner_id", handlers.Wallet.GetAccountByOwner)

		wallets.POST("/credit", handlers.Wallet.Credit)
		wallets.POST("/debit", handlers.Wallet.Debit)
		wallets.POST("/transfer", handlers.Wallet.Transfer)

		wallets.POST("/holds", handlers.Wallet.Hold)
		wallets.POST("/holds/:id/capture", handlers.Wallet.Capture)
		wallets.POST("/holds/:id/release", handlers.Wallet.Release)
	}
}

func registerPaymentRoutes(router *gin.RouterGroup, handlers Handlers) {
	router.POST("/wallets/topup", handlers.Wallet.TopUp)

	payments := router.Group("/payments")
	{
		payments.POST("", handlers.Payment.InitiatePayment)
		payments.GET("/:id", handlers.Payment.GetPayment)
		payments.POST("/:id/sync", handlers.Payment.SyncPaymentStatus)
	}

	router.POST("/payouts", handlers.Payment.InitiatePayout)
}

func registerAdminRoutes(router *gin.RouterGroup, handlers Handlers) {
	reconciliation := router.Group("/reconciliation")
	{
		reconciliation.POST("/run", handlers.Reconciliation.RunDaily)
		reconciliation.POST("/balance", handlers.Reconciliation.RunBalance)
		reconciliation.GET("/discrepancies", handlers.Reconciliation.ListPending)
		reconciliation.POST("/discrepancies/:id/resolve", handlers.Reconciliation.ResolveDiscrepancy)
	}

	settlements := router.Group("/settlements")
	{
		settlements.POST("", handlers.Settlement.CreateSettlement)
		settlements.GET("/preview", handlers.Settlement.PreviewCommission)
		settlements.GET("/:id", handlers.Settlement.GetSettlement)
		settlements.POST("/:id/process", handlers.Settlement.ProcessSettlement)
		settlements.POST("/process-batch", handlers.Settlement.ProcessBatch)
	}

	router.GET("/fraud/reviews", handlers.Fraud.ListReviewQueue)
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	reconciliation := router.Group("/reconciliation")
	{
		reconciliation.POST("/daily", handlers.ReconciliationCron.RunDaily)
		reconciliation.POST("/balance", handlers.ReconciliationCron.RunBalance)
	}

	settlements := router.Group("/settlements")
	{
		settlements.POST("/daily", handlers.SettlementCron.RunDaily)
		settlements.POST("/weekly", handlers.SettlementCron.RunWeekly)
		settlements.POST("/process", handlers.SettlementCron.ProcessPending)
	}
}
