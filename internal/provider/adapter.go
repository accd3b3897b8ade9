package provider

import (
	"context"

	"github.com/shopspring/decimal"

	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// Request is a normalized instruction to an external payment network
type Request struct {
	Type        types.ProviderRequestType
	Amount      decimal.Decimal
	Currency    string
	Reference   string // internal transaction reference, echoed back in callbacks
	PhoneNumber string
	CardToken   string
	Narrative   string
}

// Response is the normalized result of an initiate call
type Response struct {
	ProviderReference string
	Status            types.ProviderStatus
}

// Callback carries the raw inbound webhook material needed for verification
type Callback struct {
	Payload   []byte
	Signature string
	SourceIP  string
	Headers   map[string]string
}

// CallbackEvent is the provider-agnostic view of a verified callback payload
type CallbackEvent struct {
	ProviderReference string
	Reference         string
	Status            types.ProviderStatus
	Amount            decimal.Decimal
	Currency          string
	FailureReason     string
}

// Adapter translates between the internal payment model and one external
// network. Initiate performs a single attempt; retry policy lives in
// InitiateWithRetry so adapters stay single-shot.
type Adapter interface {
	Name() types.PaymentProvider
	Supports(requestType types.ProviderRequestType) bool
	Initiate(ctx context.Context, req *Request) (*Response, error)
	CheckStatus(ctx context.Context, providerReference string) (types.ProviderStatus, error)
	// VerifyCallback authenticates an inbound webhook before any payload
	// field is trusted.
	VerifyCallback(cb *Callback) error
	ParseCallback(payload []byte) (*CallbackEvent, error)
}

// Registry resolves adapters by provider identifier
type Registry struct {
	adapters map[types.PaymentProvider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[types.PaymentProvider]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) Get(provider types.PaymentProvider) (Adapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, ierr.NewError("unsupported payment provider").
			WithHint("No adapter is registered for this provider").
			WithReportableDetails(map[string]interface{}{
				"provider": provider,
			}).
			Mark(ierr.ErrValidation)
	}
	return adapter, nil
}

// GetFor resolves an adapter and checks it supports the request type
func (r *Registry) GetFor(provider types.PaymentProvider, requestType types.ProviderRequestType) (Adapter, error) {
	adapter, err := r.Get(provider)
	if err != nil {
		return nil, err
	}
	if !adapter.Supports(requestType) {
		return nil, ierr.NewError("operation not supported by provider").
			WithHint("The provider does not support this operation").
			WithReportableDetails(map[string]interface{}{
				"provider":     provider,
				"request_type": requestType,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return adapter, nil
}
