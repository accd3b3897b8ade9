package cron

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/config"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/service"
)

type SettlementCronHandler struct {
	settlementService service.SettlementService
	config            *config.Configuration
	logger            *logger.Logger
}

func NewSettlementCronHandler(settlementService service.SettlementService, cfg *config.Configuration, logger *logger.Logger) *SettlementCronHandler {
	return &SettlementCronHandler{
		settlementService: settlementService,
		config:            cfg,
		logger:            logger,
	}
}

// RunDaily creates settlements for eligible recipients for one day, then
// processes the pending queue.
func (h *SettlementCronHandler) RunDaily(c *gin.Context) {
	h.run(c, func(req *dto.RunSettlementsRequest) (*dto.SettlementBatchResponse, error) {
		return h.settlementService.RunDailySettlements(c.Request.Context(), req)
	})
}

// RunWeekly covers the seven days ending on the given date
func (h *SettlementCronHandler) RunWeekly(c *gin.Context) {
	h.run(c, func(req *dto.RunSettlementsRequest) (*dto.SettlementBatchResponse, error) {
		return h.settlementService.RunWeeklySettlements(c.Request.Context(), req)
	})
}

func (h *SettlementCronHandler) run(c *gin.Context, runFn func(*dto.RunSettlementsRequest) (*dto.SettlementBatchResponse, error)) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}
	h.logger.Infow("starting settlement cron", "date", date)

	results := make(map[string]*dto.SettlementBatchResponse, len(h.config.Currencies))
	failures := 0
	for _, currency := range h.config.Currencies {
		result, err := runFn(&dto.RunSettlementsRequest{Date: date, Currency: currency})
		if err != nil {
			failures++
			h.logger.Errorw("settlement run failed",
				"currency", currency, "date", date, "error", err)
			continue
		}
		results[currency] = result
	}

	c.JSON(http.StatusOK, gin.H{
		"date":     date,
		"runs":     results,
		"failures": failures,
	})
}

// ProcessPending pays out queued settlements
func (h *SettlementCronHandler) ProcessPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	resp, err := h.settlementService.ProcessSettlementBatch(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
