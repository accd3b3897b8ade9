package fraud

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// Triggers is the list of signal names that contributed to a risk score
type Triggers []string

func (t *Triggers) Scan(value interface{}) error {
	if value == nil {
		*t = Triggers{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	result := Triggers{}
	err := json.Unmarshal(bytes, &result)
	*t = result
	return err
}

func (t Triggers) Value() (driver.Value, error) {
	if t == nil {
		return json.Marshal(Triggers{})
	}
	return json.Marshal(t)
}

// Assessment is the fraud engine's verdict on a payment request. It is
// written synchronously before the transaction is dispatched to a provider
// and immutable afterwards.
type Assessment struct {
	ID            string          `db:"id" json:"id"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	RiskScore     float64         `db:"risk_score" json:"risk_score"`
	RiskLevel     types.RiskLevel `db:"risk_level" json:"risk_level"`
	Triggers      Triggers        `db:"triggers" json:"triggers"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

func (a *Assessment) TableName() string {
	return "fraud_assessments"
}

func (a *Assessment) Validate() error {
	if a.TransactionID == "" {
		return ierr.NewError("transaction_id is required").
			WithHint("Assessment must link to a transaction").
			Mark(ierr.ErrValidation)
	}
	if err := a.RiskLevel.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid risk level").
			Mark(ierr.ErrValidation)
	}
	return nil
}
