package service

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ubi-mobility/payment-core/internal/domain/idempotency"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// runIdempotent executes fn at most once per key. The first caller inserts an
// in-progress record and runs fn; replays return the stored response without
// re-executing. A concurrent caller losing the insert race waits briefly for
// the winner to finish and then replays its result.
func runIdempotent[T any](ctx context.Context, params ServiceParams, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if key == "" {
		return zero, ierr.NewError("idempotency key is required").
			WithHint("An idempotency key is required for every mutating call").
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	record := &idempotency.Record{
		Key:       key,
		Status:    idempotency.RecordStatusInProgress,
		CreatedAt: now,
		ExpiresAt: now.Add(params.Config.Idempotency.TTL()),
	}

	existing, inserted, err := params.IdempotencyRepo.InsertIfAbsent(ctx, record)
	if err != nil {
		return zero, err
	}

	if !inserted {
		return replayResult[T](ctx, params, existing)
	}

	result, err := fn(ctx)
	if err != nil {
		// failed executions release the key so the caller may retry
		if releaseErr := params.IdempotencyRepo.Release(ctx, key); releaseErr != nil {
			params.Logger.Errorw("failed to release idempotency key",
				"key", key, "error", releaseErr)
		}
		return zero, err
	}

	response, err := json.Marshal(result)
	if err != nil {
		return zero, ierr.WithError(err).
			WithHint("Failed to serialize idempotent response").
			Mark(ierr.ErrInternal)
	}
	if err := params.IdempotencyRepo.Complete(ctx, key, response); err != nil {
		return zero, err
	}
	return result, nil
}

// replayResult returns the stored response for a completed record, waiting a
// bounded number of rounds when the first execution is still in flight.
func replayResult[T any](ctx context.Context, params ServiceParams, record *idempotency.Record) (T, error) {
	var zero T

	for attempt := 0; attempt < params.Config.Idempotency.WaitAttempts; attempt++ {
		if record.Status == idempotency.RecordStatusCompleted {
			var result T
			if err := json.Unmarshal(record.Response, &result); err != nil {
				return zero, ierr.WithError(err).
					WithHint("Failed to decode stored idempotent response").
					Mark(ierr.ErrInternal)
			}
			return result, nil
		}

		select {
		case <-ctx.Done():
			return zero, ierr.WithError(ctx.Err()).
				WithHint("Timed out waiting for the original request to finish").
				Mark(ierr.ErrDuplicateRequest)
		case <-time.After(params.Config.Idempotency.Wait()):
		}

		refreshed, err := params.IdempotencyRepo.Get(ctx, record.Key)
		if err != nil {
			if ierr.IsNotFound(err) {
				// the winner failed and released the key; surface a retryable
				// duplicate signal rather than re-running under the loser
				return zero, ierr.NewError("concurrent request failed").
					WithHint("The original request with this key failed, retry the call").
					Mark(ierr.ErrDuplicateRequest)
			}
			return zero, err
		}
		record = refreshed
	}

	return zero, ierr.NewError("request with this key is still in progress").
		WithHint("A request with the same idempotency key is being processed").
		WithReportableDetails(map[string]interface{}{
			"idempotency_key": record.Key,
		}).
		Mark(ierr.ErrDuplicateRequest)
}
