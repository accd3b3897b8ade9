package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	"github.com/ubi-mobility/payment-core/internal/domain/fraud"
	"github.com/ubi-mobility/payment-core/internal/types"
)

// FraudService scores payment requests before dispatch. Scoring is bounded
// by a latency budget and fails closed: an engine failure yields REVIEW, not
// ALLOW.
type FraudService interface {
	Assess(ctx context.Context, req *dto.FraudCheckRequest) (*fraud.Assessment, error)
	ListReviewQueue(ctx context.Context, limit int) (*dto.FraudReviewQueueResponse, error)
}

type fraudService struct {
	ServiceParams
}

func NewFraudService(params ServiceParams) FraudService {
	return &fraudService{ServiceParams: params}
}

const (
	triggerVelocityCount      = "velocity_count_exceeded"
	triggerVelocityAmount     = "velocity_amount_exceeded"
	triggerInstrumentVelocity = "instrument_velocity_exceeded"
	triggerHighAmount         = "high_amount"
	triggerFirstInstrument    = "first_use_of_instrument"
	triggerGeoAnomaly         = "geographic_anomaly"
	triggerEngineDegraded     = "engine_degraded"
)

// instrumentMemory is how long instrument and location history informs the
// first-use and geo signals
const instrumentMemory = 30 * 24 * time.Hour

func (s *fraudService) Assess(ctx context.Context, req *dto.FraudCheckRequest) (*fraud.Assessment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	scoringCtx, cancel := context.WithTimeout(ctx, s.Config.Fraud.LatencyBudget())
	defer cancel()

	score, triggers := s.score(scoringCtx, req)
	if scoringCtx.Err() != nil {
		// budget exhausted mid-scoring: fail closed rather than trusting a
		// partial score
		score = s.Config.Fraud.ReviewThreshold
		triggers = fraud.Triggers{triggerEngineDegraded}
	}

	level := s.levelFor(score)
	assessment := &fraud.Assessment{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FRAUD_ASSESSMENT),
		TransactionID: req.TransactionID,
		RiskScore:     score,
		RiskLevel:     level,
		Triggers:      triggers,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.FraudRepo.Create(ctx, assessment); err != nil {
		return nil, err
	}

	s.Logger.Debugw("fraud assessment recorded",
		"transaction_id", req.TransactionID, "score", score, "level", level,
		"triggers", triggers)
	return assessment, nil
}

// score evaluates all signals and returns the weighted total with the fired
// trigger names. Velocity counters count the current request.
func (s *fraudService) score(ctx context.Context, req *dto.FraudCheckRequest) (float64, fraud.Triggers) {
	cfg := s.Config.Fraud
	window := cfg.VelocityWindow()
	triggers := fraud.Triggers{}
	score := 0.0

	count := s.Cache.Increment(ctx, velocityCountKey(req.AccountID), 1, window)
	if count > int64(cfg.MaxVelocityCount) {
		triggers = append(triggers, triggerVelocityCount)
		score += cfg.WeightVelocityCount
	}

	amountUnits := req.Amount.Round(0).IntPart()
	total := s.Cache.Increment(ctx, velocityAmountKey(req.AccountID), amountUnits, window)
	if float64(total) > cfg.MaxVelocityAmount {
		triggers = append(triggers, triggerVelocityAmount)
		score += cfg.WeightVelocityAmount
	}

	instrumentCount := s.Cache.Increment(ctx, instrumentVelocityKey(req.InstrumentID), 1, window)
	if instrumentCount > int64(cfg.MaxVelocityCount) {
		triggers = append(triggers, triggerInstrumentVelocity)
		score += cfg.WeightVelocityCount
	}

	if req.Amount.InexactFloat64() >= cfg.HighAmountThreshold {
		triggers = append(triggers, triggerHighAmount)
		score += cfg.WeightHighAmount
	}

	instrumentKey := instrumentSeenKey(req.AccountID, req.InstrumentID)
	if _, seen := s.Cache.Get(ctx, instrumentKey); !seen {
		triggers = append(triggers, triggerFirstInstrument)
		score += cfg.WeightFirstInstrument
		s.Cache.Set(ctx, instrumentKey, time.Now().UTC(), instrumentMemory)
	}

	if req.CountryCode != "" {
		geoKey := lastCountryKey(req.AccountID)
		if last, ok := s.Cache.Get(ctx, geoKey); ok {
			if lastCountry, ok := last.(string); ok && lastCountry != req.CountryCode {
				triggers = append(triggers, triggerGeoAnomaly)
				score += cfg.WeightGeoAnomaly
			}
		}
		s.Cache.Set(ctx, geoKey, req.CountryCode, instrumentMemory)
	}

	if score > 100 {
		score = 100
	}
	return score, triggers
}

func (s *fraudService) levelFor(score float64) types.RiskLevel {
	switch {
	case score < s.Config.Fraud.ReviewThreshold:
		return types.RiskLevelAllow
	case score < s.Config.Fraud.BlockThreshold:
		return types.RiskLevelReview
	default:
		return types.RiskLevelBlock
	}
}

func (s *fraudService) ListReviewQueue(ctx context.Context, limit int) (*dto.FraudReviewQueueResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	assessments, err := s.FraudRepo.ListByLevel(ctx, types.RiskLevelReview, limit)
	if err != nil {
		return nil, err
	}
	return &dto.FraudReviewQueueResponse{
		Assessments: assessments,
		Count:       len(assessments),
	}, nil
}

func velocityCountKey(accountID string) string {
	return fmt.Sprintf("fraud:vc:%s", accountID)
}

func velocityAmountKey(accountID string) string {
	return fmt.Sprintf("fraud:va:%s", accountID)
}

func instrumentVelocityKey(instrumentID string) string {
	return fmt.Sprintf("fraud:vi:%s", instrumentID)
}

func instrumentSeenKey(accountID, instrumentID string) string {
	return fmt.Sprintf("fraud:seen:%s:%s", accountID, instrumentID)
}

func lastCountryKey(accountID string) string {
	return fmt.Sprintf("fraud:geo:%s", accountID)
}
