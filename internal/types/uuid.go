package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex txn_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortIDWithPrefix returns a short ID with a prefix.
// Total length is capped at 12 characters, e.g., `STL-xYZ12A8Q`.
// Used for human-facing references on settlements and discrepancies.
func GenerateShortIDWithPrefix(prefix string) string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.ReplaceAll(id, "-", "")

	availableLen := 12 - len(prefix)
	if availableLen <= 0 {
		return ""
	}

	if len(id) > availableLen {
		id = id[:availableLen]
	}

	return strings.ToUpper(fmt.Sprintf("%s%s", prefix, id))
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_WALLET_ACCOUNT   = "acc"
	UUID_PREFIX_WALLET_HOLD      = "hold"
	UUID_PREFIX_LEDGER_ENTRY     = "led"
	UUID_PREFIX_TRANSACTION      = "txn"
	UUID_PREFIX_FRAUD_ASSESSMENT = "fa"
	UUID_PREFIX_DISCREPANCY      = "disc"
	UUID_PREFIX_SETTLEMENT       = "stl"
)

const (
	SHORT_ID_PREFIX_SETTLEMENT  = "STL-"
	SHORT_ID_PREFIX_DISCREPANCY = "DSC-"
)
