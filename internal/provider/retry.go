package provider

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/ubi-mobility/payment-core/internal/config"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
)

// InitiateWithRetry wraps a single-shot adapter initiate in exponential
// backoff with jitter. Provider rejections (declined payment, invalid
// request) are permanent and fail immediately; timeouts and 5xx responses
// are retried up to the configured attempt budget.
func InitiateWithRetry(ctx context.Context, adapter Adapter, req *Request, cfg config.RetryConfig, log *logger.Logger) (*Response, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialInterval()
	policy.MaxInterval = cfg.MaxInterval()
	policy.MaxElapsedTime = 0

	var resp *Response
	attempt := 0

	operation := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
		defer cancel()

		var err error
		resp, err = adapter.Initiate(attemptCtx, req)
		if err == nil {
			return nil
		}

		if !isTransient(err) {
			return backoff.Permanent(err)
		}

		log.Warnw("provider initiate attempt failed",
			"provider", adapter.Name(),
			"reference", req.Reference,
			"attempt", attempt,
			"error", err)
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(cfg.MaxAttempts-1)), ctx))
	if err != nil {
		if isTransient(err) {
			return nil, ierr.WithError(err).
				WithHint("Provider did not accept the request within the retry budget").
				WithReportableDetails(map[string]interface{}{
					"provider": adapter.Name(),
					"attempts": attempt,
				}).
				Mark(ierr.ErrProviderError)
		}
		return nil, err
	}
	return resp, nil
}

// isTransient reports whether a failure may succeed on retry. Explicit
// provider rejections and validation failures are permanent; everything
// else (network errors, 5xx, timeouts) is assumed transient.
func isTransient(err error) bool {
	if ierr.IsPaymentFailed(err) || ierr.IsValidation(err) || ierr.IsInvalidOperation(err) {
		return false
	}
	return true
}
