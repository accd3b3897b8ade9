package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/service"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type SettlementHandler struct {
	settlementService service.SettlementService
	logger            *logger.Logger
}

func NewSettlementHandler(settlementService service.SettlementService, logger *logger.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
		logger:            logger,
	}
}

func (h *SettlementHandler) CreateSettlement(c *gin.Context) {
	var req dto.CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.settlementService.CreateSettlement(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SettlementHandler) GetSettlement(c *gin.Context) {
	resp, err := h.settlementService.GetSettlement(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SettlementHandler) ProcessSettlement(c *gin.Context) {
	resp, err := h.settlementService.ProcessSettlement(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewCommission returns the fee decomposition for a gross amount without
// creating anything.
func (h *SettlementHandler) PreviewCommission(c *gin.Context) {
	gross, err := decimal.NewFromString(c.Query("gross_amount"))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("gross_amount must be a decimal number").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.settlementService.CalculateCommission(gross, types.RecipientType(c.Query("recipient_type")))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SettlementHandler) ProcessBatch(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	resp, err := h.settlementService.ProcessSettlementBatch(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
