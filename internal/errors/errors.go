package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel errors covering the payment core failure taxonomy. Domain and
// service code marks built errors with exactly one of these; the HTTP layer
// maps them to the fixed status/code table below.
var (
	ErrNotFound            = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists       = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation          = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation    = new(ErrCodeInvalidOperation, "invalid operation")
	ErrInsufficientBalance = new(ErrCodeInsufficientBalance, "insufficient balance")
	ErrDuplicateRequest    = new(ErrCodeDuplicateRequest, "duplicate request")
	ErrFraudBlocked        = new(ErrCodeFraudBlocked, "transaction blocked by fraud checks")
	ErrPaymentFailed       = new(ErrCodePaymentFailed, "payment rejected by provider")
	ErrProviderError       = new(ErrCodeProviderError, "provider error")
	ErrMaxRetriesExceeded  = new(ErrCodeMaxRetriesExceeded, "maximum retries exceeded")
	ErrRateLimited         = new(ErrCodeRateLimited, "rate limit exceeded")
	ErrSignatureInvalid    = new(ErrCodeSignatureInvalid, "signature verification failed")
	ErrHTTPClient          = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase            = new(ErrCodeDatabase, "database error")
	ErrInternal            = new(ErrCodeInternal, "internal error")
	ErrSystem              = new(ErrCodeSystemError, "system error")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:            http.StatusNotFound,
		ErrAlreadyExists:       http.StatusConflict,
		ErrValidation:          http.StatusBadRequest,
		ErrInvalidOperation:    http.StatusBadRequest,
		ErrInsufficientBalance: http.StatusUnprocessableEntity,
		ErrDuplicateRequest:    http.StatusConflict,
		ErrFraudBlocked:        http.StatusUnprocessableEntity,
		ErrPaymentFailed:       http.StatusUnprocessableEntity,
		ErrProviderError:       http.StatusBadGateway,
		ErrMaxRetriesExceeded:  http.StatusUnprocessableEntity,
		ErrRateLimited:         http.StatusTooManyRequests,
		ErrSignatureInvalid:    http.StatusUnauthorized,
		ErrHTTPClient:          http.StatusBadGateway,
		ErrDatabase:            http.StatusInternalServerError,
		ErrInternal:            http.StatusInternalServerError,
		ErrSystem:              http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeValidation          = "VALIDATION_FAILURE"
	ErrCodeInvalidOperation    = "INVALID_OPERATION"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeDuplicateRequest    = "DUPLICATE_REQUEST"
	ErrCodeFraudBlocked        = "FRAUD_BLOCKED"
	ErrCodePaymentFailed       = "PAYMENT_FAILED"
	ErrCodeProviderError       = "PROVIDER_ERROR"
	ErrCodeMaxRetriesExceeded  = "MAX_RETRIES_EXCEEDED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeSignatureInvalid    = "SIGNATURE_INVALID"
	ErrCodeHTTPClient          = "HTTP_CLIENT_ERROR"
	ErrCodeDatabase            = "DATABASE_ERROR"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeSystemError         = "SYSTEM_ERROR"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

// New creates a new InternalError with the given code and message
func New(code string, message string) *InternalError {
	return new(code, message)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInsufficientBalance checks if an error is an insufficient balance error
func IsInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// IsDuplicateRequest checks if an error is an idempotency replay signal
func IsDuplicateRequest(err error) bool {
	return errors.Is(err, ErrDuplicateRequest)
}

// IsFraudBlocked checks if an error is a fraud block
func IsFraudBlocked(err error) bool {
	return errors.Is(err, ErrFraudBlocked)
}

// IsPaymentFailed checks if an error is a permanent provider rejection
func IsPaymentFailed(err error) bool {
	return errors.Is(err, ErrPaymentFailed)
}

// IsProviderError checks if an error is a transient provider failure
func IsProviderError(err error) bool {
	return errors.Is(err, ErrProviderError)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsMaxRetriesExceeded checks if an error is a retry budget exhaustion
func IsMaxRetriesExceeded(err error) bool {
	return errors.Is(err, ErrMaxRetriesExceeded)
}

// HTTPStatusFromErr resolves the response status for a marked error
func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// CodeFromErr resolves the machine-readable envelope code for a marked error
func CodeFromErr(err error) string {
	var internal *InternalError
	if errors.As(err, &internal) {
		return internal.Code
	}
	return ErrCodeInternal
}
