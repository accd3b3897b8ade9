package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/service"
)

type FraudHandler struct {
	fraudService service.FraudService
	logger       *logger.Logger
}

func NewFraudHandler(fraudService service.FraudService, logger *logger.Logger) *FraudHandler {
	return &FraudHandler{
		fraudService: fraudService,
		logger:       logger,
	}
}

// ListReviewQueue returns assessments flagged for manual review
func (h *FraudHandler) ListReviewQueue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	resp, err := h.fraudService.ListReviewQueue(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
