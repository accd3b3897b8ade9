package v1

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/provider"
	"github.com/ubi-mobility/payment-core/internal/service"
	"github.com/ubi-mobility/payment-core/internal/types"
)

const maxCallbackBody = 1 << 20 // 1 MiB

// signatureHeaders lists the header each network signs its callbacks with
var signatureHeaders = map[types.PaymentProvider]string{
	types.PaymentProviderMpesa:       "X-Callback-Token",
	types.PaymentProviderMTNMomo:     "X-Signature",
	types.PaymentProviderAirtel:      "X-Auth-Signature",
	types.PaymentProviderFlutterwave: "verif-hash",
}

type WebhookHandler struct {
	callbackService service.CallbackService
	logger          *logger.Logger
}

func NewWebhookHandler(callbackService service.CallbackService, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		callbackService: callbackService,
		logger:          logger,
	}
}

// HandleCallback receives a provider webhook. The raw body is captured
// before any parsing so signature verification runs over exactly the bytes
// the provider signed.
func (h *WebhookHandler) HandleCallback(c *gin.Context) {
	providerName, err := parseProvider(c.Param("provider"))
	if err != nil {
		c.Error(err)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read callback body").
			Mark(ierr.ErrValidation))
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for name := range c.Request.Header {
		headers[name] = c.GetHeader(name)
	}

	cb := &provider.Callback{
		Payload:   payload,
		Signature: c.GetHeader(signatureHeaders[providerName]),
		SourceIP:  c.ClientIP(),
		Headers:   headers,
	}

	if err := h.callbackService.ProcessCallback(c.Request.Context(), providerName, cb); err != nil {
		// verification failures must not be acknowledged; the provider will
		// retry anything else
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func parseProvider(param string) (types.PaymentProvider, error) {
	p := types.PaymentProvider(strings.ToUpper(param))
	if err := p.Validate(); err != nil {
		return "", ierr.WithError(err).
			WithHint("Unknown payment provider").
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}
