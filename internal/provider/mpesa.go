package provider

import (
	"context"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/ubi-mobility/payment-core/internal/config"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/httpclient"
	"github.com/ubi-mobility/payment-core/internal/logger"
	"github.com/ubi-mobility/payment-core/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// mpesaAdapter integrates the M-Pesa network: STK push for collections and
// B2C for payouts. M-Pesa callbacks carry no signature, so verification is
// source-IP allow-list plus a shared-secret header.
type mpesaAdapter struct {
	config config.ProviderConfig
	client httpclient.Client
	poller httpclient.Client
	logger *logger.Logger
}

func NewMpesaAdapter(cfg config.ProviderConfig, client httpclient.Client, poller httpclient.Client, logger *logger.Logger) Adapter {
	return &mpesaAdapter{config: cfg, client: client, poller: poller, logger: logger}
}

func (a *mpesaAdapter) Name() types.PaymentProvider {
	return types.PaymentProviderMpesa
}

func (a *mpesaAdapter) Supports(requestType types.ProviderRequestType) bool {
	return requestType == types.ProviderRequestTypeCollection ||
		requestType == types.ProviderRequestTypePayout
}

type mpesaInitiateRequest struct {
	ShortCode   string `json:"short_code"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	PhoneNumber string `json:"phone_number"`
	Reference   string `json:"account_reference"`
	Narrative   string `json:"transaction_desc"`
}

type mpesaInitiateResponse struct {
	ConversationID string `json:"conversation_id"`
	ResponseCode   string `json:"response_code"`
	ResponseDesc   string `json:"response_description"`
}

func (a *mpesaAdapter) Initiate(ctx context.Context, req *Request) (*Response, error) {
	if req.PhoneNumber == "" {
		return nil, ierr.NewError("phone number is required").
			WithHint("M-Pesa requests require a phone number").
			Mark(ierr.ErrValidation)
	}

	path := "/stkpush/v1/processrequest"
	if req.Type == types.ProviderRequestTypePayout {
		path = "/b2c/v1/paymentrequest"
	}

	body, err := json.Marshal(mpesaInitiateRequest{
		ShortCode:   a.config.ShortCode,
		Amount:      req.Amount.String(),
		Currency:    req.Currency,
		PhoneNumber: req.PhoneNumber,
		Reference:   req.Reference,
		Narrative:   req.Narrative,
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

	var out mpesaInitiateResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode M-Pesa response").
			Mark(ierr.ErrProviderError)
	}
	if out.ResponseCode != "0" {
		return nil, ierr.NewError("m-pesa rejected the request").
			WithHint(out.ResponseDesc).
			WithReportableDetails(map[string]interface{}{
				"response_code": out.ResponseCode,
			}).
			Mark(ierr.ErrPaymentFailed)
	}

	return &Response{
		ProviderReference: out.ConversationID,
		Status:            types.ProviderStatusPending,
	}, nil
}

type mpesaStatusResponse struct {
	ResultCode int    `json:"result_code"`
	ResultDesc string `json:"result_description"`
	Final      bool   `json:"final"`
}

func (a *mpesaAdapter) CheckStatus(ctx context.Context, providerReference string) (types.ProviderStatus, error) {
	resp, err := a.poller.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/transactionstatus/v1/query/%s", a.config.BaseURL, providerReference),
		Headers: map[string]string{
			"Authorization": "Bearer " + a.config.APIKey,
		},
	})
	if err != nil {
		return "", classifyHTTPError(err, a.Name())
	}

	var out mpesaStatusResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to decode M-Pesa status response").
			Mark(ierr.ErrProviderError)
	}
	if !out.Final {
		return types.ProviderStatusPending, nil
	}
	if out.ResultCode == 0 {
		return types.ProviderStatusSucceeded, nil
	}
	return types.ProviderStatusFailed, nil
}

func (a *mpesaAdapter) VerifyCallback(cb *Callback) error {
	if err := VerifySourceIP(cb.SourceIP, a.config.AllowedIPs); err != nil {
		return err
	}
	return VerifySharedSecret(cb.Signature, a.config.SharedSecret)
}

type mpesaCallbackPayload struct {
	ConversationID   string `json:"conversation_id"`
	AccountReference string `json:"account_reference"`
	ResultCode       int    `json:"result_code"`
	ResultDesc       string `json:"result_description"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
}

func (a *mpesaAdapter) ParseCallback(payload []byte) (*CallbackEvent, error) {
	var p mpesaCallbackPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed M-Pesa callback payload").
			Mark(ierr.ErrValidation)
	}

	event := &CallbackEvent{
		ProviderReference: p.ConversationID,
		Reference:         p.AccountReference,
		Currency:          p.Currency,
	}
	if err := parseAmount(p.Amount, &event.Amount); err != nil {
		return nil, err
	}
	if p.ResultCode == 0 {
		event.Status = types.ProviderStatusSucceeded
	} else {
		event.Status = types.ProviderStatusFailed
		event.FailureReason = p.ResultDesc
	}
	return event, nil
}
