package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/config"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/service"
	"github.com/ubi-mobility/payment-core/internal/types"
)

var allProviders = []types.PaymentProvider{
	types.PaymentProviderMpesa,
	types.PaymentProviderMTNMomo,
	types.PaymentProviderAirtel,
	types.PaymentProviderFlutterwave,
}

type ReconciliationCronHandler struct {
	reconciliationService service.ReconciliationService
	config                *config.Configuration
	logger                *logger.Logger
}

func NewReconciliationCronHandler(reconciliationService service.ReconciliationService, cfg *config.Configuration, logger *logger.Logger) *ReconciliationCronHandler {
	return &ReconciliationCronHandler{
		reconciliationService: reconciliationService,
		config:                cfg,
		logger:                logger,
	}
}

// RunDaily reconciles every provider and currency for one day. Defaults to
// yesterday so the provider statement is complete.
func (h *ReconciliationCronHandler) RunDaily(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}
	h.logger.Infow("starting daily reconciliation cron", "date", date)

	results := make([]*dto.ReconciliationRunResponse, 0)
	failures := 0
	for _, provider := range allProviders {
		for _, currency := range h.config.Currencies {
			result, err := h.reconciliationService.RunDailyReconciliation(c.Request.Context(), &dto.RunReconciliationRequest{
				Provider: provider,
				Date:     date,
				Currency: currency,
			})
			if err != nil {
				failures++
				h.logger.Errorw("reconciliation run failed",
					"provider", provider, "currency", currency, "error", err)
				continue
			}
			results = append(results, result)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"date":     date,
		"runs":     results,
		"failures": failures,
	})
}

// RunBalance compares every provider's reported balance against the tracked
// clearing balance.
func (h *ReconciliationCronHandler) RunBalance(c *gin.Context) {
	h.logger.Infow("starting balance reconciliation cron")

	results := make([]*dto.ReconciliationRunResponse, 0)
	failures := 0
	for _, provider := range allProviders {
		for _, currency := range h.config.Currencies {
			result, err := h.reconciliationService.RunBalanceReconciliation(c.Request.Context(), &dto.BalanceReconciliationRequest{
				Provider: provider,
				Currency: currency,
			})
			if err != nil {
				failures++
				h.logger.Errorw("balance reconciliation failed",
					"provider", provider, "currency", currency, "error", err)
				continue
			}
			results = append(results, result)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":     results,
		"failures": failures,
	})
}
