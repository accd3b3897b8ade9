package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ubi-mobility/payment-core/internal/config"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/httpclient"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// mtnMomoAdapter integrates MTN Mobile Money merchant payments and payouts.
// Callbacks are signed with HMAC-SHA256 over the raw payload.
type mtnMomoAdapter struct {
	config config.ProviderConfig
	client httpclient.Client
	poller httpclient.Client
	logger *logger.Logger
}

func NewMTNMomoAdapter(cfg config.ProviderConfig, client httpclient.Client, poller httpclient.Client, logger *logger.Logger) Adapter {
	return &mtnMomoAdapter{config: cfg, client: client, poller: poller, logger: logger}
}

func (a *mtnMomoAdapter) Name() types.PaymentProvider {
	return types.PaymentProviderMTNMomo
}

func (a *mtnMomoAdapter) Supports(requestType types.ProviderRequestType) bool {
	return requestType == types.ProviderRequestTypeMerchantPayment ||
		requestType == types.ProviderRequestTypeCollection ||
		requestType == types.ProviderRequestTypePayout
}

type momoRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	ExternalID  string `json:"externalId"`
	PayerMSISDN string `json:"payerMsisdn"`
	Note        string `json:"payerMessage"`
}

type momoResponse struct {
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

func (a *mtnMomoAdapter) Initiate(ctx context.Context, req *Request) (*Response, error) {
	if req.PhoneNumber == "" {
		return nil, ierr.NewError("phone number is required").
			WithHint("MTN MoMo requests require a phone number").
			Mark(ierr.ErrValidation)
	}

	path := "/collection/v1/requesttopay"
	if req.Type == types.ProviderRequestTypePayout {
		path = "/disbursement/v1/transfer"
	}

	body, err := json.Marshal(momoRequest{
		Amount:      req.Amount.String(),
		Currency:    req.Currency,
		ExternalID:  req.Reference,
		PayerMSISDN: req.PhoneNumber,
		Note:        req.Narrative,
	})
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    a.config.BaseURL + path,
		Headers: map[string]string{
			"Ocp-Apim-Subscription-Key": a.config.APIKey,
			"Content-Type":              "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, classifyHTTPError(err, a.Name())
	}

	var out momoResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode MTN MoMo response").
			Mark(ierr.ErrProviderError)
	}
	if out.Status == "REJECTED" || out.Status == "FAILED" {
		return nil, ierr.NewError("mtn momo rejected the request").
			WithHint(out.Reason).
			Mark(ierr.ErrPaymentFailed)
	}

	return &Response{
		ProviderReference: out.ReferenceID,
		Status:            types.ProviderStatusPending,
	}, nil
}

func (a *mtnMomoAdapter) CheckStatus(ctx context.Context, providerReference string) (types.ProviderStatus, error) {
	resp, err := a.poller.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/collection/v1/requesttopay/%s", a.config.BaseURL, providerReference),
		Headers: map[string]string{
			"Ocp-Apim-Subscription-Key": a.config.APIKey,
		},
	})
	if err != nil {
		return "", classifyHTTPError(err, a.Name())
	}

	var out momoResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to decode MTN MoMo status response").
			Mark(ierr.ErrProviderError)
	}
	switch out.Status {
	case "SUCCESSFUL":
		return types.ProviderStatusSucceeded, nil
	case "FAILED", "REJECTED", "TIMEOUT":
		return types.ProviderStatusFailed, nil
	default:
		return types.ProviderStatusPending, nil
	}
}

func (a *mtnMomoAdapter) VerifyCallback(cb *Callback) error {
	return VerifyHMACSHA256(cb.Payload, cb.Signature, a.config.CallbackSecret)
}

type momoCallbackPayload struct {
	ReferenceID string `json:"referenceId"`
	ExternalID  string `json:"externalId"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

func (a *mtnMomoAdapter) ParseCallback(payload []byte) (*CallbackEvent, error) {
	var p momoCallbackPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed MTN MoMo callback payload").
			Mark(ierr.ErrValidation)
	}

	event := &CallbackEvent{
		ProviderReference: p.ReferenceID,
		Reference:         p.ExternalID,
		Currency:          p.Currency,
	}
	if err := parseAmount(p.Amount, &event.Amount); err != nil {
		return nil, err
	}
	switch p.Status {
	case "SUCCESSFUL":
		event.Status = types.ProviderStatusSucceeded
	case "PENDING":
		event.Status = types.ProviderStatusPending
	default:
		event.Status = types.ProviderStatusFailed
		event.FailureReason = p.Reason
	}
	return event, nil
}
