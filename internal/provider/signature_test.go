package provider

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
)

func TestVerifyHMACSHA256(t *testing.T) {
	payload := []byte(`{"reference":"txn_123","amount":"1000"}`)
	secret := "topsecret"

	signature := ComputeHMACSHA256(payload, secret)
	assert.NoError(t, VerifyHMACSHA256(payload, signature, secret))

	// a tampered payload no longer matches
	err := VerifyHMACSHA256([]byte(`{"reference":"txn_123","amount":"9000"}`), signature, secret)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ierr.ErrSignatureInvalid))

	// and neither does the right payload under the wrong secret
	assert.Error(t, VerifyHMACSHA256(payload, signature, "othersecret"))
}

func TestVerifyHMACSHA512(t *testing.T) {
	payload := []byte(`{"reference":"txn_456"}`)
	secret := "topsecret"

	signature := ComputeHMACSHA512(payload, secret)
	assert.NoError(t, VerifyHMACSHA512(payload, signature, secret))
	assert.Error(t, VerifyHMACSHA512(payload, signature[:len(signature)-2]+"ff", secret))
}

func TestVerifySourceIP(t *testing.T) {
	allowed := []string{"196.201.214.200", "196.201.214.206"}

	assert.NoError(t, VerifySourceIP("196.201.214.200", allowed))
	assert.Error(t, VerifySourceIP("10.0.0.1", allowed))
	assert.Error(t, VerifySourceIP("", allowed))
	assert.Error(t, VerifySourceIP("196.201.214.200", nil))
}

func TestVerifySharedSecret(t *testing.T) {
	assert.NoError(t, VerifySharedSecret("hash-value", "hash-value"))
	assert.Error(t, VerifySharedSecret("wrong", "hash-value"))

	// an unconfigured secret never verifies
	assert.Error(t, VerifySharedSecret("", ""))
}
