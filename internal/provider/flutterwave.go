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

// flutterwaveAdapter integrates card-network charges through Flutterwave.
// Callbacks carry an HMAC-SHA512 verif-hash over the raw payload.
type flutterwaveAdapter struct {
	config config.ProviderConfig
	client httpclient.Client
	poller httpclient.Client
	logger *logger.Logger
}

func NewFlutterwaveAdapter(cfg config.ProviderConfig, client httpclient.Client, poller httpclient.Client, logger *logger.Logger) Adapter {
	return &flutterwaveAdapter{config: cfg, client: client, poller: poller, logger: logger}
}

func (a *flutterwaveAdapter) Name() types.PaymentProvider {
	return types.PaymentProviderFlutterwave
}

func (a *flutterwaveAdapter) Supports(requestType types.ProviderRequestType) bool {
	return requestType == types.ProviderRequestTypeCardCharge ||
		requestType == types.ProviderRequestTypePayout
}

type flwChargeRequest struct {
	TxRef     string `json:"tx_ref"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Token     string `json:"token,omitempty"`
	Narration string `json:"narration,omitempty"`
}

type flwResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		FlwRef string `json:"flw_ref"`
		Status string `json:"status"`
	} `json:"data"`
}

func (a *flutterwaveAdapter) Initiate(ctx context.Context, req *Request) (*Response, error) {
	path := "/v3/tokenized-charges"
	if req.Type == types.ProviderRequestTypePayout {
		path = "/v3/transfers"
	} else if req.CardToken == "" {
		return nil, ierr.NewError("card token is required").
			WithHint("Card charges require a tokenized card").
			Mark(ierr.ErrValidation)
	}

	body, err := json.Marshal(flwChargeRequest{
		TxRef:     req.Reference,
		Amount:    req.Amount.String(),
		Currency:  req.Currency,
		Token:     req.CardToken,
		Narration: req.Narrative,
	})
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    a.config.BaseURL + path,
		Headers: map[string]string{
			"Authorization": "Bearer " + a.config.APIKey,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, classifyHTTPError(err, a.Name())
	}

	var out flwResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode Flutterwave response").
			Mark(ierr.ErrProviderError)
	}
	if out.Status != "success" {
		return nil, ierr.NewError("flutterwave rejected the charge").
			WithHint(out.Message).
			Mark(ierr.ErrPaymentFailed)
	}

	status := types.ProviderStatusPending
	if out.Data.Status == "successful" {
		status = types.ProviderStatusSucceeded
	}
	return &Response{
		ProviderReference: out.Data.FlwRef,
		Status:            status,
	}, nil
}

func (a *flutterwaveAdapter) CheckStatus(ctx context.Context, providerReference string) (types.ProviderStatus, error) {
	resp, err := a.poller.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v3/transactions/%s/verify", a.config.BaseURL, providerReference),
		Headers: map[string]string{
			"Authorization": "Bearer " + a.config.APIKey,
		},
	})
	if err != nil {
		return "", classifyHTTPError(err, a.Name())
	}

	var out flwResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to decode Flutterwave status response").
			Mark(ierr.ErrProviderError)
	}
	switch out.Data.Status {
	case "successful":
		return types.ProviderStatusSucceeded, nil
	case "failed":
		return types.ProviderStatusFailed, nil
	default:
		return types.ProviderStatusPending, nil
	}
}

func (a *flutterwaveAdapter) VerifyCallback(cb *Callback) error {
	return VerifyHMACSHA512(cb.Payload, cb.Signature, a.config.CallbackSecret)
}

type flwCallbackPayload struct {
	Data struct {
		TxRef    string `json:"tx_ref"`
		FlwRef   string `json:"flw_ref"`
		Status   string `json:"status"`
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Message  string `json:"processor_response"`
	} `json:"data"`
}

func (a *flutterwaveAdapter) ParseCallback(payload []byte) (*CallbackEvent, error) {
	var p flwCallbackPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed Flutterwave callback payload").
			Mark(ierr.ErrValidation)
	}

	event := &CallbackEvent{
		ProviderReference: p.Data.FlwRef,
		Reference:         p.Data.TxRef,
		Currency:          p.Data.Currency,
	}
	if err := parseAmount(p.Data.Amount, &event.Amount); err != nil {
		return nil, err
	}
	switch p.Data.Status {
	case "successful":
		event.Status = types.ProviderStatusSucceeded
	case "pending":
		event.Status = types.ProviderStatusPending
	default:
		event.Status = types.ProviderStatusFailed
		event.FailureReason = p.Data.Message
	}
	return event, nil
}
