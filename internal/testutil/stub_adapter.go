package testutil

import (
	"context"
	"sync"

	"github.com/ubi-mobility/payment-core/internal/provider"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// StubAdapter is a configurable provider.Adapter for service tests. It
// records every initiate request so tests can assert what was (or was not)
// dispatched.
type StubAdapter struct {
	mu sync.Mutex

	Provider       types.PaymentProvider
	SupportedTypes []types.ProviderRequestType // nil means everything

	InitiateResponse *provider.Response
	InitiateErr      error
	StatusResponse   types.ProviderStatus
	StatusErr        error
	VerifyErr        error
	ParsedEvent      *provider.CallbackEvent
	ParseErr         error

	InitiateRequests []*provider.Request
}

var _ provider.Adapter = (*StubAdapter)(nil)

func NewStubAdapter(providerName types.PaymentProvider) *StubAdapter {
	return &StubAdapter{
		Provider: providerName,
		InitiateResponse: &provider.Response{
			ProviderReference: "ref-" + string(providerName),
			Status:            types.ProviderStatusPending,
		},
		StatusResponse: types.ProviderStatusPending,
	}
}

func (a *StubAdapter) Name() types.PaymentProvider {
	return a.Provider
}

func (a *StubAdapter) Supports(requestType types.ProviderRequestType) bool {
	if a.SupportedTypes == nil {
		return true
	}
	for _, t := range a.SupportedTypes {
		if t == requestType {
			return true
		}
	}
	return false
}

func (a *StubAdapter) Initiate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	a.mu.Lock()
	a.InitiateRequests = append(a.InitiateRequests, req)
	a.mu.Unlock()

	if a.InitiateErr != nil {
		return nil, a.InitiateErr
	}
	return a.InitiateResponse, nil
}

func (a *StubAdapter) CheckStatus(ctx context.Context, providerReference string) (types.ProviderStatus, error) {
	if a.StatusErr != nil {
		return "", a.StatusErr
	}
	return a.StatusResponse, nil
}

func (a *StubAdapter) VerifyCallback(cb *provider.Callback) error {
	return a.VerifyErr
}

func (a *StubAdapter) ParseCallback(payload []byte) (*provider.CallbackEvent, error) {
	if a.ParseErr != nil {
		return nil, a.ParseErr
	}
	return a.ParsedEvent, nil
}

// InitiateCount returns how many dispatch attempts the adapter received
func (a *StubAdapter) InitiateCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.InitiateRequests)
}
