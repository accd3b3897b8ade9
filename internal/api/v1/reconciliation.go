package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/service"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *logger.Logger
}

func NewReconciliationHandler(reconciliationService service.ReconciliationService, logger *logger.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

func (h *ReconciliationHandler) RunDaily(c *gin.Context) {
	var req dto.RunReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.reconciliationService.RunDailyReconciliation(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReconciliationHandler) RunBalance(c *gin.Context) {
	var req dto.BalanceReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.reconciliationService.RunBalanceReconciliation(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReconciliationHandler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	provider := types.PaymentProvider(c.Query("provider"))

	resp, err := h.reconciliationService.ListPending(c.Request.Context(), provider, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ResolveDiscrepancy closes a pending discrepancy. The acting operator comes
// from the request context, never from the payload.
func (h *ReconciliationHandler) ResolveDiscrepancy(c *gin.Context) {
	var req dto.ResolveDiscrepancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.reconciliationService.ResolveDiscrepancy(ctx, c.Param("id"), req.Note, types.GetUserID(ctx))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
