package types

import (
	"fmt"

	"github.com/samber/lo"
)

// PaymentProvider identifies an external payment network
type PaymentProvider string

const (
	PaymentProviderMpesa       PaymentProvider = "MPESA"
	PaymentProviderMTNMomo     PaymentProvider = "MTN_MOMO"
	PaymentProviderAirtel      PaymentProvider = "AIRTEL_MONEY"
	PaymentProviderFlutterwave PaymentProvider = "FLUTTERWAVE"
)

func (p PaymentProvider) String() string {
	return string(p)
}

func (p PaymentProvider) Validate() error {
	allowed := []PaymentProvider{
		PaymentProviderMpesa,
		PaymentProviderMTNMomo,
		PaymentProviderAirtel,
		PaymentProviderFlutterwave,
	}
	if !lo.Contains(allowed, p) {
		return fmt.Errorf("invalid payment provider: %s", p)
	}
	return nil
}

// ProviderRequestType is the capability a provider adapter is asked to perform
type ProviderRequestType string

const (
	// ProviderRequestTypeCollection is a mobile-money push (customer pays in)
	ProviderRequestTypeCollection ProviderRequestType = "COLLECTION"
	// ProviderRequestTypePayout is a disbursement to a customer (B2C)
	ProviderRequestTypePayout ProviderRequestType = "PAYOUT"
	// ProviderRequestTypeCardCharge is a card-network charge
	ProviderRequestTypeCardCharge ProviderRequestType = "CARD_CHARGE"
	// ProviderRequestTypeMerchantPayment is a mobile-money merchant payment
	ProviderRequestTypeMerchantPayment ProviderRequestType = "MERCHANT_PAYMENT"
)

func (t ProviderRequestType) String() string {
	return string(t)
}

func (t ProviderRequestType) Validate() error {
	allowed := []ProviderRequestType{
		ProviderRequestTypeCollection,
		ProviderRequestTypePayout,
		ProviderRequestTypeCardCharge,
		ProviderRequestTypeMerchantPayment,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid provider request type: %s", t)
	}
	return nil
}

// ProviderStatus is the normalized status reported by a provider
type ProviderStatus string

const (
	ProviderStatusPending   ProviderStatus = "PENDING"
	ProviderStatusSucceeded ProviderStatus = "SUCCEEDED"
	ProviderStatusFailed    ProviderStatus = "FAILED"
)

func (s ProviderStatus) String() string {
	return string(s)
}
