package provider

import (
	"github.com/shopspring/decimal"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/httpclient"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// classifyHTTPError maps transport failures onto the retry taxonomy: 4xx
// responses are permanent rejections, everything else is transient.
func classifyHTTPError(err error, provider types.PaymentProvider) error {
	if httpErr, ok := httpclient.IsHTTPError(err); ok && !httpErr.IsTransient() {
		return ierr.WithError(err).
			WithHint("Provider rejected the request").
			WithReportableDetails(map[string]interface{}{
				"provider":    provider,
				"status_code": httpErr.StatusCode,
			}).
			Mark(ierr.ErrPaymentFailed)
	}
	return ierr.WithError(err).
		WithHint("Provider call failed").
		WithReportableDetails(map[string]interface{}{
			"provider": provider,
		}).
		Mark(ierr.ErrProviderError)
}

func parseAmount(raw string, out *decimal.Decimal) error {
	if raw == "" {
		*out = decimal.Zero
		return nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Callback carried a non-numeric amount").
			Mark(ierr.ErrValidation)
	}
	*out = amount
	return nil
}
