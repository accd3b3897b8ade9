package httpclient

import (
	"fmt"
	"net/http"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
)

// Error represents an HTTP client error with status code and response body
type Error struct {
	*ierr.InternalError
	StatusCode int
	Response   []byte
}

func NewError(statusCode int, response []byte) *Error {
	return &Error{
		InternalError: ierr.New(ierr.ErrCodeHTTPClient, fmt.Sprintf("http request failed with status %d", statusCode)),
		StatusCode:    statusCode,
		Response:      response,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: status=%d body=%s", e.Code, e.StatusCode, string(e.Response))
}

// IsHTTPError extracts an *Error from an error chain
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if ierr.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsTransient reports whether the failure is worth retrying. Provider 5xx
// responses and 429s are retryable; other 4xx responses are permanent.
func (e *Error) IsTransient() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}
