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

// airtelAdapter integrates Airtel Money collection pushes. Callbacks are
// signed with HMAC-SHA256 over the raw payload.
type airtelAdapter struct {
	config config.ProviderConfig
	client httpclient.Client
	poller httpclient.Client
	logger *logger.Logger
}

func NewAirtelAdapter(cfg config.ProviderConfig, client httpclient.Client, poller httpclient.Client, logger *logger.Logger) Adapter {
	return &airtelAdapter{config: cfg, client: client, poller: poller, logger: logger}
}

func (a *airtelAdapter) Name() types.PaymentProvider {
	return types.PaymentProviderAirtel
}

func (a *airtelAdapter) Supports(requestType types.ProviderRequestType) bool {
	return requestType == types.ProviderRequestTypeCollection
}

type airtelPushRequest struct {
	Reference  string            `json:"reference"`
	Subscriber airtelSubscriber  `json:"subscriber"`
	Txn        airtelTransaction `json:"transaction"`
}

type airtelSubscriber struct {
	MSISDN string `json:"msisdn"`
}

type airtelTransaction struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	ID       string `json:"id"`
}

type airtelResponse struct {
	Data struct {
		Transaction struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"transaction"`
	} `json:"data"`
	Status struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	} `json:"status"`
}

func (a *airtelAdapter) Initiate(ctx context.Context, req *Request) (*Response, error) {
	if req.PhoneNumber == "" {
		return nil, ierr.NewError("phone number is required").
			WithHint("Airtel Money requests require a phone number").
			Mark(ierr.ErrValidation)
	}

	body, err := json.Marshal(airtelPushRequest{
		Reference:  req.Narrative,
		Subscriber: airtelSubscriber{MSISDN: req.PhoneNumber},
		Txn: airtelTransaction{
			Amount:   req.Amount.String(),
			Currency: req.Currency,
			ID:       req.Reference,
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrInternal)
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    a.config.BaseURL + "/merchant/v1/payments",
		Headers: map[string]string{
			"Authorization": "Bearer " + a.config.APIKey,
			"Content-Type":  "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, classifyHTTPError(err, a.Name())
	}

	var out airtelResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode Airtel Money response").
			Mark(ierr.ErrProviderError)
	}
	if !out.Status.Success {
		return nil, ierr.NewError("airtel money rejected the request").
			WithHint(out.Status.Message).
			Mark(ierr.ErrPaymentFailed)
	}

	return &Response{
		ProviderReference: out.Data.Transaction.ID,
		Status:            types.ProviderStatusPending,
	}, nil
}

func (a *airtelAdapter) CheckStatus(ctx context.Context, providerReference string) (types.ProviderStatus, error) {
	resp, err := a.poller.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/standard/v1/payments/%s", a.config.BaseURL, providerReference),
		Headers: map[string]string{
			"Authorization": "Bearer " + a.config.APIKey,
		},
	})
	if err != nil {
		return "", classifyHTTPError(err, a.Name())
	}

	var out airtelResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to decode Airtel Money status response").
			Mark(ierr.ErrProviderError)
	}
	switch out.Data.Transaction.Status {
	case "TS": // transaction success
		return types.ProviderStatusSucceeded, nil
	case "TF": // transaction failed
		return types.ProviderStatusFailed, nil
	default:
		return types.ProviderStatusPending, nil
	}
}

func (a *airtelAdapter) VerifyCallback(cb *Callback) error {
	return VerifyHMACSHA256(cb.Payload, cb.Signature, a.config.CallbackSecret)
}

type airtelCallbackPayload struct {
	Transaction struct {
		ID            string `json:"id"`
		AirtelMoneyID string `json:"airtel_money_id"`
		StatusCode    string `json:"status_code"`
		Message       string `json:"message"`
		Amount        string `json:"amount"`
		Currency      string `json:"currency"`
	} `json:"transaction"`
}

func (a *airtelAdapter) ParseCallback(payload []byte) (*CallbackEvent, error) {
	var p airtelCallbackPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed Airtel Money callback payload").
			Mark(ierr.ErrValidation)
	}

	event := &CallbackEvent{
		ProviderReference: p.Transaction.AirtelMoneyID,
		Reference:         p.Transaction.ID,
		Currency:          p.Transaction.Currency,
	}
	if err := parseAmount(p.Transaction.Amount, &event.Amount); err != nil {
		return nil, err
	}
	switch p.Transaction.StatusCode {
	case "TS":
		event.Status = types.ProviderStatusSucceeded
	case "TIP":
		event.Status = types.ProviderStatusPending
	default:
		event.Status = types.ProviderStatusFailed
		event.FailureReason = p.Transaction.Message
	}
	return event, nil
}
