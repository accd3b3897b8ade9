package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/service"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *logger.Logger
}

func NewPaymentHandler(paymentService service.PaymentService, logger *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.paymentService.InitiatePayment(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *PaymentHandler) InitiatePayout(c *gin.Context) {
	var req dto.InitiatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.paymentService.InitiatePayout(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	resp, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SyncPaymentStatus polls the provider for a pending transaction. Used when
// a callback never arrived.
func (h *PaymentHandler) SyncPaymentStatus(c *gin.Context) {
	resp, err := h.paymentService.SyncPaymentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
