package types

import (
	"fmt"

	"github.com/samber/lo"
)

// EntryDirection is the side of a double-entry ledger record
type EntryDirection string

const (
	EntryDirectionDebit  EntryDirection = "DEBIT"
	EntryDirectionCredit EntryDirection = "CREDIT"
)

func (d EntryDirection) String() string {
	return string(d)
}

func (d EntryDirection) Validate() error {
	allowed := []EntryDirection{
		EntryDirectionDebit,
		EntryDirectionCredit,
	}
	if !lo.Contains(allowed, d) {
		return fmt.Errorf("invalid entry direction: %s", d)
	}
	return nil
}
