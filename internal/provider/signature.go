package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"

	"github.com/samber/lo"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
)

// ComputeHMACSHA256 returns the hex HMAC-SHA256 digest of payload
func ComputeHMACSHA256(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ComputeHMACSHA512 returns the hex HMAC-SHA512 digest of payload
func ComputeHMACSHA512(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA256 checks a hex HMAC-SHA256 signature in constant time
func VerifyHMACSHA256(payload []byte, signature, secret string) error {
	expected := ComputeHMACSHA256(payload, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ierr.NewError("callback signature mismatch").
			WithHint("The webhook signature did not match the expected digest").
			Mark(ierr.ErrSignatureInvalid)
	}
	return nil
}

// VerifyHMACSHA512 checks a hex HMAC-SHA512 signature in constant time
func VerifyHMACSHA512(payload []byte, signature, secret string) error {
	expected := ComputeHMACSHA512(payload, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ierr.NewError("callback signature mismatch").
			WithHint("The webhook signature did not match the expected digest").
			Mark(ierr.ErrSignatureInvalid)
	}
	return nil
}

// VerifySourceIP enforces an IP allow-list for providers whose callbacks are
// not signed. The shared secret header is checked separately.
func VerifySourceIP(sourceIP string, allowed []string) error {
	if !lo.Contains(allowed, sourceIP) {
		return ierr.NewError("callback source not allowed").
			WithHint("The webhook originated from an address outside the allow-list").
			WithReportableDetails(map[string]interface{}{
				"source_ip": sourceIP,
			}).
			Mark(ierr.ErrSignatureInvalid)
	}
	return nil
}

// VerifySharedSecret compares a shared-secret header value in constant time
func VerifySharedSecret(got, want string) error {
	if want == "" || !hmac.Equal([]byte(got), []byte(want)) {
		return ierr.NewError("callback secret mismatch").
			WithHint("The webhook shared secret header did not match").
			Mark(ierr.ErrSignatureInvalid)
	}
	return nil
}
