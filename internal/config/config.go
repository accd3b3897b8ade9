package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ubi-mobility/payment-core/internal/types"
)

type Configuration struct {
	Server         ServerConfig         `validate:"required"`
	Logging        LoggingConfig        `validate:"required"`
	Postgres       PostgresConfig       `validate:"required"`
	Currencies     []string             `validate:"required,min=1"`
	Providers      ProvidersConfig      `validate:"required"`
	Retry          RetryConfig          `validate:"required"`
	Fraud          FraudConfig          `validate:"required"`
	Reconciliation ReconciliationConfig `validate:"required"`
	Settlement     SettlementConfig     `validate:"required"`
	Idempotency    IdempotencyConfig    `validate:"required"`
	RateLimit      RateLimitConfig      `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level string `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ProviderConfig carries per-network credentials and callback verification
// settings. Providers without signed callbacks use AllowedIPs + SharedSecret.
type ProviderConfig struct {
	BaseURL         string
	APIKey          string
	CallbackSecret  string
	SignatureDigest string // sha256 | sha512; empty for ip-allowlist providers
	SharedSecret    string
	AllowedIPs      []string
	ShortCode       string
	TimeoutSeconds  int
}

type ProvidersConfig struct {
	Mpesa       ProviderConfig
	MTNMomo     ProviderConfig
	Airtel      ProviderConfig
	Flutterwave ProviderConfig
}

// Get returns the config block for a provider identifier
func (p ProvidersConfig) Get(provider types.PaymentProvider) (ProviderConfig, bool) {
	switch provider {
	case types.PaymentProviderMpesa:
		return p.Mpesa, true
	case types.PaymentProviderMTNMomo:
		return p.MTNMomo, true
	case types.PaymentProviderAirtel:
		return p.Airtel, true
	case types.PaymentProviderFlutterwave:
		return p.Flutterwave, true
	}
	return ProviderConfig{}, false
}

// RetryConfig bounds outbound provider calls: every call carries a timeout
// and transient failures are retried with exponential backoff and jitter.
type RetryConfig struct {
	MaxAttempts       int `validate:"required,min=1"`
	InitialIntervalMs int `validate:"required,min=1"`
	MaxIntervalMs     int `validate:"required,min=1"`
	TimeoutSeconds    int `validate:"required,min=1"`
}

func (r RetryConfig) InitialInterval() time.Duration {
	return time.Duration(r.InitialIntervalMs) * time.Millisecond
}

func (r RetryConfig) MaxInterval() time.Duration {
	return time.Duration(r.MaxIntervalMs) * time.Millisecond
}

func (r RetryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// FraudConfig holds score thresholds and signal weights. Scores are 0-100;
// below ReviewThreshold -> ALLOW, below BlockThreshold -> REVIEW, else BLOCK.
type FraudConfig struct {
	ReviewThreshold float64 `validate:"required,gt=0"`
	BlockThreshold  float64 `validate:"required,gt=0"`

	VelocityWindowMinutes int     `validate:"required,min=1"`
	MaxVelocityCount      int     `validate:"required,min=1"`
	MaxVelocityAmount     float64 `validate:"required,gt=0"`
	HighAmountThreshold   float64 `validate:"required,gt=0"`

	WeightVelocityCount   float64
	WeightVelocityAmount  float64
	WeightHighAmount      float64
	WeightFirstInstrument float64
	WeightGeoAnomaly      float64

	LatencyBudgetMs int `validate:"required,min=1"`
}

func (f FraudConfig) VelocityWindow() time.Duration {
	return time.Duration(f.VelocityWindowMinutes) * time.Minute
}

func (f FraudConfig) LatencyBudget() time.Duration {
	return time.Duration(f.LatencyBudgetMs) * time.Millisecond
}

// ReconciliationConfig holds the severity bands (absolute currency
// difference cutoffs), the small-amount auto-resolve threshold and the
// balance comparison tolerance.
type ReconciliationConfig struct {
	AutoResolveThreshold    float64 `validate:"min=0"`
	SeverityMediumCutoff    float64 `validate:"required,gt=0"`
	SeverityHighCutoff      float64 `validate:"required,gt=0"`
	SeverityCriticalCutoff  float64 `validate:"required,gt=0"`
	BalanceTolerancePercent float64 `validate:"required,gt=0"`
	BatchWorkers            int     `validate:"required,min=1"`
	UnitTimeoutSeconds      int     `validate:"required,min=1"`
}

func (r ReconciliationConfig) UnitTimeout() time.Duration {
	return time.Duration(r.UnitTimeoutSeconds) * time.Second
}

// SettlementConfig holds recipient-type commission schedules and settlement
// fee parameters. Rates are fractions, e.g. 0.15 for 15%.
type SettlementConfig struct {
	CommissionRates   map[string]float64 `validate:"required"`
	PlatformFeeRate   float64            `validate:"required,gt=0"`
	SettlementFeeRate float64            `validate:"required,gt=0"`
	SettlementFeeFlat float64            `validate:"min=0"`
	MinSettlementFee  float64            `validate:"min=0"`

	MinSettlementAmount float64 `validate:"required,gt=0"`
	MaxRetries          int     `validate:"required,min=1"`
	BatchWorkers        int     `validate:"required,min=1"`
	UnitTimeoutSeconds  int     `validate:"required,min=1"`
	StaleClaimMinutes   int     `validate:"required,min=1"`

	EscrowAccountID     string `validate:"required"`
	CommissionAccountID string `validate:"required"`
}

func (s SettlementConfig) UnitTimeout() time.Duration {
	return time.Duration(s.UnitTimeoutSeconds) * time.Second
}

// StaleClaimAge is how long a processing claim may go without progress
// before another processor may reclaim the settlement, e.g. after a crash
// mid-payout.
func (s SettlementConfig) StaleClaimAge() time.Duration {
	return time.Duration(s.StaleClaimMinutes) * time.Minute
}

// CommissionRate returns the configured rate for a recipient type
func (s SettlementConfig) CommissionRate(recipientType types.RecipientType) (decimal.Decimal, bool) {
	rate, ok := s.CommissionRates[strings.ToLower(recipientType.String())]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(rate), true
}

type IdempotencyConfig struct {
	TTLHours     int `validate:"required,min=1"`
	WaitMs       int `validate:"required,min=1"`
	WaitAttempts int `validate:"required,min=1"`
}

func (i IdempotencyConfig) TTL() time.Duration {
	return time.Duration(i.TTLHours) * time.Hour
}

func (i IdempotencyConfig) Wait() time.Duration {
	return time.Duration(i.WaitMs) * time.Millisecond
}

// RateLimitConfig sets token-bucket limits per endpoint category
type RateLimitConfig struct {
	General CategoryLimit `validate:"required"`
	Payment CategoryLimit `validate:"required"`
	Webhook CategoryLimit `validate:"required"`
	Admin   CategoryLimit `validate:"required"`
}

type CategoryLimit struct {
	RPS   float64 `validate:"required,gt=0"`
	Burst int     `validate:"required,min=1"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ubi-payments")

	v.SetEnvPrefix("UBI")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	config := GetDefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, rt := range []types.RecipientType{
		types.RecipientTypeDriver,
		types.RecipientTypeRestaurant,
		types.RecipientTypeMerchant,
		types.RecipientTypePartner,
	} {
		if _, ok := c.Settlement.CommissionRate(rt); !ok {
			return fmt.Errorf("missing commission rate for recipient type %s", rt)
		}
	}
	return nil
}

// SupportsCurrency reports whether a currency is in the configured set
func (c Configuration) SupportsCurrency(currency string) bool {
	return lo.Contains(c.Currencies, strings.ToUpper(currency))
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// GetDefaultConfig returns a baseline configuration. Values mirror the
// production defaults and are what the test suites run against.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: "info"},
		Currencies: []string{"KES", "UGX", "TZS", "NGN", "GHS"},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "ubi",
			DBName:  "ubi_payments",
			SSLMode: "disable",
		},
		Providers: ProvidersConfig{
			Mpesa: ProviderConfig{
				BaseURL:        "https://api.safaricom.co.ke",
				SharedSecret:   "change-me",
				AllowedIPs:     []string{"196.201.214.200", "196.201.214.206"},
				ShortCode:      "174379",
				TimeoutSeconds: 30,
			},
			MTNMomo: ProviderConfig{
				BaseURL:         "https://momodeveloper.mtn.com",
				CallbackSecret:  "change-me",
				SignatureDigest: "sha256",
				TimeoutSeconds:  30,
			},
			Airtel: ProviderConfig{
				BaseURL:         "https://openapi.airtel.africa",
				CallbackSecret:  "change-me",
				SignatureDigest: "sha256",
				TimeoutSeconds:  30,
			},
			Flutterwave: ProviderConfig{
				BaseURL:         "https://api.flutterwave.com",
				CallbackSecret:  "change-me",
				SignatureDigest: "sha512",
				TimeoutSeconds:  30,
			},
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialIntervalMs: 200,
			MaxIntervalMs:     5000,
			TimeoutSeconds:    30,
		},
		Fraud: FraudConfig{
			ReviewThreshold:       30,
			BlockThreshold:        70,
			VelocityWindowMinutes: 60,
			MaxVelocityCount:      10,
			MaxVelocityAmount:     500000,
			HighAmountThreshold:   150000,
			WeightVelocityCount:   25,
			WeightVelocityAmount:  25,
			WeightHighAmount:      20,
			WeightFirstInstrument: 15,
			WeightGeoAnomaly:      30,
			LatencyBudgetMs:       500,
		},
		Reconciliation: ReconciliationConfig{
			AutoResolveThreshold:    1,
			SeverityMediumCutoff:    100,
			SeverityHighCutoff:      1000,
			SeverityCriticalCutoff:  10000,
			BalanceTolerancePercent: 0.1,
			BatchWorkers:            5,
			UnitTimeoutSeconds:      30,
		},
		Settlement: SettlementConfig{
			CommissionRates: map[string]float64{
				"driver":     0.15,
				"restaurant": 0.20,
				"merchant":   0.03,
				"partner":    0.10,
			},
			PlatformFeeRate:     0.05,
			SettlementFeeRate:   0.005,
			SettlementFeeFlat:   100,
			MinSettlementFee:    100,
			MinSettlementAmount: 1000,
			MaxRetries:          3,
			BatchWorkers:        5,
			UnitTimeoutSeconds:  60,
			StaleClaimMinutes:   30,
			EscrowAccountID:     "acc_system_escrow",
			CommissionAccountID: "acc_system_commission",
		},
		Idempotency: IdempotencyConfig{
			TTLHours:     24,
			WaitMs:       50,
			WaitAttempts: 20,
		},
		RateLimit: RateLimitConfig{
			General: CategoryLimit{RPS: 50, Burst: 100},
			Payment: CategoryLimit{RPS: 10, Burst: 20},
			Webhook: CategoryLimit{RPS: 100, Burst: 200},
			Admin:   CategoryLimit{RPS: 20, Burst: 40},
		},
	}
}
