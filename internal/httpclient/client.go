package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/logger"
)

// Request represents an outgoing HTTP request
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response represents the result of an HTTP request
type Response struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
}

// Client sends HTTP requests. Non-2xx responses are returned as *Error so
// callers can inspect the status code and raw body.
type Client interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

type defaultClient struct {
	client *http.Client
	logger *logger.Logger
}

// NewDefaultClient creates a plain client with no internal retries. Callers
// that need retry semantics layer them on top, so a single logical attempt
// maps to a single wire request.
func NewDefaultClient(logger *logger.Logger) Client {
	return &defaultClient{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (c *defaultClient) Send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debugw("sending http request", "method", req.Method, "url", req.URL)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to send HTTP request").
			Mark(ierr.ErrHTTPClient)
	}
	return readResponse(resp)
}

type retryableClient struct {
	client *retryablehttp.Client
	logger *logger.Logger
}

// NewRetryableClient creates a client that retries transient failures with
// exponential backoff. Only use it for idempotent requests such as status
// polls and statement fetches.
func NewRetryableClient(logger *logger.Logger, maxRetries int) Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil
	return &retryableClient{client: rc, logger: logger}
}

func (c *retryableClient) Send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	retryReq, err := retryablehttp.FromRequest(httpReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to build HTTP request").
			Mark(ierr.ErrHTTPClient)
	}

	c.logger.Debugw("sending retryable http request", "method", req.Method, "url", req.URL)

	resp, err := c.client.Do(retryReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to send HTTP request").
			Mark(ierr.ErrHTTPClient)
	}
	return readResponse(resp)
}

func buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to build HTTP request").
			Mark(ierr.ErrHTTPClient)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read response body").
			Mark(ierr.ErrHTTPClient)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewError(resp.StatusCode, body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}
