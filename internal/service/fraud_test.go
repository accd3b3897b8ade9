package service

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ubi-mobility/payment-core/internal/api/dto"
	ierr "github.com/ubi-mobility/payment-core/internal/errors"
	"github.com/ubi-mobility/payment-core/internal/testutil"
	"github.com/ubi-mobility/payment-core/internal/types"
)

type FraudServiceSuite struct {
	testutil.BaseServiceTestSuite
	service FraudService
}

func TestFraudService(t *testing.T) {
	suite.Run(t, new(FraudServiceSuite))
}

func (s *FraudServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewFraudService(newTestParams(&s.BaseServiceTestSuite))
}

func (s *FraudServiceSuite) checkRequest(txnID string, amount decimal.Decimal) *dto.FraudCheckRequest {
	return &dto.FraudCheckRequest{
		TransactionID: txnID,
		AccountID:     "acc_user",
		InstrumentID:  "254712345678",
		Amount:        amount,
		Currency:      "KES",
	}
}

func (s *FraudServiceSuite) TestRoutinePaymentAllowed() {
	first, err := s.service.Assess(s.GetContext(), s.checkRequest("txn-1", decimal.NewFromInt(1000)))
	s.NoError(err)
	s.Equal(types.RiskLevelAllow, first.RiskLevel)
	s.Contains(first.Triggers, triggerFirstInstrument)

	// the instrument is now known, a repeat payment scores clean
	second, err := s.service.Assess(s.GetContext(), s.checkRequest("txn-2", decimal.NewFromInt(1000)))
	s.NoError(err)
	s.Equal(types.RiskLevelAllow, second.RiskLevel)
	s.Empty(second.Triggers)
	s.Zero(second.RiskScore)
}

func (s *FraudServiceSuite) TestHighAmountOnNewInstrumentGoesToReview() {
	amount := decimal.NewFromFloat(s.GetConfig().Fraud.HighAmountThreshold)

	assessment, err := s.service.Assess(s.GetContext(), s.checkRequest("txn-1", amount))
	s.NoError(err)
	s.Equal(types.RiskLevelReview, assessment.RiskLevel)
	s.Contains(assessment.Triggers, triggerHighAmount)
	s.Contains(assessment.Triggers, triggerFirstInstrument)
	s.Equal(35.0, assessment.RiskScore)
}

func (s *FraudServiceSuite) TestGeographicAnomaly() {
	req := s.checkRequest("txn-1", decimal.NewFromInt(500))
	req.CountryCode = "KE"
	_, err := s.service.Assess(s.GetContext(), req)
	s.NoError(err)

	moved := s.checkRequest("txn-2", decimal.NewFromInt(500))
	moved.CountryCode = "UG"
	assessment, err := s.service.Assess(s.GetContext(), moved)
	s.NoError(err)
	s.Equal(types.RiskLevelReview, assessment.RiskLevel)
	s.Contains(assessment.Triggers, triggerGeoAnomaly)
}

func (s *FraudServiceSuite) TestVelocityBurstBlocked() {
	amount := decimal.NewFromFloat(s.GetConfig().Fraud.HighAmountThreshold)

	var last *dto.FraudCheckRequest
	for i := 0; i <= s.GetConfig().Fraud.MaxVelocityCount; i++ {
		last = s.checkRequest(fmt.Sprintf("txn-%d", i), amount)
		if i < s.GetConfig().Fraud.MaxVelocityCount {
			_, err := s.service.Assess(s.GetContext(), last)
			s.Require().NoError(err)
		}
	}

	assessment, err := s.service.Assess(s.GetContext(), last)
	s.NoError(err)
	s.Equal(types.RiskLevelBlock, assessment.RiskLevel)
	s.Contains(assessment.Triggers, triggerVelocityCount)
	s.Contains(assessment.Triggers, triggerVelocityAmount)
}

func (s *FraudServiceSuite) TestAssessmentPersisted() {
	assessment, err := s.service.Assess(s.GetContext(), s.checkRequest("txn-1", decimal.NewFromInt(1000)))
	s.NoError(err)

	stored, err := s.GetStores().FraudRepo.GetByTransaction(s.GetContext(), "txn-1")
	s.NoError(err)
	s.Equal(assessment.ID, stored.ID)
	s.Equal(assessment.RiskLevel, stored.RiskLevel)
	s.Equal(assessment.RiskScore, stored.RiskScore)
}

func (s *FraudServiceSuite) TestMissingSignalsRejected() {
	_, err := s.service.Assess(s.GetContext(), &dto.FraudCheckRequest{
		TransactionID: "txn-1",
		Amount:        decimal.NewFromInt(1000),
		Currency:      "KES",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *FraudServiceSuite) TestListReviewQueue() {
	amount := decimal.NewFromFloat(s.GetConfig().Fraud.HighAmountThreshold)
	assessment, err := s.service.Assess(s.GetContext(), s.checkRequest("txn-1", amount))
	s.Require().NoError(err)
	s.Require().Equal(types.RiskLevelReview, assessment.RiskLevel)

	queue, err := s.service.ListReviewQueue(s.GetContext(), 10)
	s.NoError(err)
	s.Equal(1, queue.Count)
	s.Equal(assessment.ID, queue.Assessments[0].ID)
}
