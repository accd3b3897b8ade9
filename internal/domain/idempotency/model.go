package idempotency

import (
	"encoding/json"
	"time"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
)

// RecordStatus tracks whether the first caller holding a key has finished
type RecordStatus string

const (
	RecordStatusInProgress RecordStatus = "in_progress"
	RecordStatusCompleted  RecordStatus = "completed"
)

// Record maps a caller-supplied idempotency key to the result of the first
// execution. Replays return the stored response verbatim.
type Record struct {
	Key       string          `db:"key" json:"key"`
	Status    RecordStatus    `db:"status" json:"status"`
	Response  json.RawMessage `db:"response" json:"response,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	ExpiresAt time.Time       `db:"expires_at" json:"expires_at"`
}

func (r *Record) TableName() string {
	return "idempotency_records"
}

func (r *Record) Validate() error {
	if r.Key == "" {
		return ierr.NewError("idempotency key is required").
			WithHint("An idempotency key is required for every mutating call").
			Mark(ierr.ErrValidation)
	}
	return nil
}
