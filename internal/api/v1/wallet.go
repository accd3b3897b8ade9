package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/service"
)

type WalletHandler struct {
	walletService service.WalletService
	logger        *logger.Logger
}

func NewWalletHandler(walletService service.WalletService, logger *logger.Logger) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

func (h *WalletHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.walletService.CreateAccount(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *WalletHandler) GetAccount(c *gin.Context) {
	resp, err := h.walletService.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHandler) GetAccountByOwner(c *gin.Context) {
	resp, err := h.walletService.GetAccountByOwner(c.Request.Context(), c.Param("owner_id"), c.Query("currency"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	resp, err := h.walletService.GetHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHandler) Credit(c *gin.Context) {
	var req dto.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.walletService.Credit(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHandler) Debit(c *gin.Context) {
	var req dto.DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.walletService.Debit(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.walletService.Transfer(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHandler) TopUp(c *gin.Context) {
	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.walletService.TopUp(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *WalletHandler) Hold(c *gin.Context) {
	var req dto.HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}

	resp, err := h.walletService.Hold(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *WalletHandler) Capture(c *gin.Context) {
	var req dto.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}
	req.HoldID = c.Param("id")

	resp, err := h.walletService.Capture(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WalletHandler) Release(c *gin.Context) {
	var req dto.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(invalidPayload(err))
		return
	}
	req.HoldID = c.Param("id")

	resp, err := h.walletService.Release(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func invalidPayload(err error) error {
	return ierr.WithError(err).
		WithHint("Invalid request payload").
		Mark(ierr.ErrValidation)
}
