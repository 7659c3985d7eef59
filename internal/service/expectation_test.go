package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vidinfra/subqa/internal/domain/subscription"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

type ExpectationSuite struct {
	suite.Suite
	service *ExpectationService

	premium subscription.PlanConfig
	basic   subscription.PlanConfig
}

func TestExpectation(t *testing.T) {
	suite.Run(t, new(ExpectationSuite))
}

func (s *ExpectationSuite) SetupTest() {
	s.service = NewExpectationService(logger.NewNopLogger())
	s.premium = subscription.PlanConfig{
		Code:           16,
		Description:    "Premium Membership",
		DurationMonths: 12,
		SupportsTrial:  true,
		TrialDays:      45,
	}
	s.basic = subscription.PlanConfig{
		Code:           14,
		Description:    "Basic Membership",
		DurationMonths: 12,
	}
}

func (s *ExpectationSuite) trialSnapshot() subscription.Snapshot {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return subscription.NewSnapshot(
		"101", 16, types.SubscriptionTypeWeb, types.SubscriptionStatusTrial,
		start, start.AddDate(0, 0, 45), 45, 0,
	)
}

func (s *ExpectationSuite) TestPurchaseTrialEligible() {
	exp := s.service.Calculate(types.ActionTypePurchase, &s.premium, true, subscription.FreeSnapshot(0), 0)

	s.Equal(types.SubscriptionStatusTrial, exp.ExpectedStatusCode)
	s.Equal("trial", exp.ExpectedStatusName)
	s.True(exp.CheckTrialPeriod)
	s.Equal(45, exp.TrialDurationDays)
	s.True(exp.CheckDuration)
	s.Equal(12, exp.ExpectedDurationMonths)
}

func (s *ExpectationSuite) TestPurchaseNotTrialEligible() {
	exp := s.service.Calculate(types.ActionTypePurchase, &s.premium, false, subscription.FreeSnapshot(0), 0)

	s.Equal(types.SubscriptionStatusActive, exp.ExpectedStatusCode)
	s.False(exp.CheckTrialPeriod)
}

func (s *ExpectationSuite) TestPurchasePlanWithoutTrial() {
	exp := s.service.Calculate(types.ActionTypePurchase, &s.basic, true, subscription.FreeSnapshot(0), 0)

	s.Equal(types.SubscriptionStatusActive, exp.ExpectedStatusCode)
	s.False(exp.CheckTrialPeriod)
}

func (s *ExpectationSuite) TestReactivateUsesTrialGate() {
	before := s.trialSnapshot()
	s.Equal(types.SubscriptionStatusTrial,
		s.service.ExpectedStatus(types.ActionTypeReactivate, &s.premium, true, before, 0))
	s.Equal(types.SubscriptionStatusActive,
		s.service.ExpectedStatus(types.ActionTypeReactivate, &s.premium, false, before, 0))
}

func (s *ExpectationSuite) TestCancelAlwaysWins() {
	for _, before := range []subscription.Snapshot{
		s.trialSnapshot(),
		subscription.FreeSnapshot(0),
	} {
		s.Equal(types.SubscriptionStatusCancelled,
			s.service.ExpectedStatus(types.ActionTypeCancel, &s.premium, true, before, 0))
	}
}

func (s *ExpectationSuite) TestRefund() {
	exp := s.service.Calculate(types.ActionTypeRefund, nil, false, s.trialSnapshot(), 0)
	s.Equal(types.SubscriptionStatusRefunded, exp.ExpectedStatusCode)
	s.False(exp.CheckDuration)
}

func (s *ExpectationSuite) TestReactivateCarriesPlanDuration() {
	exp := s.service.Calculate(types.ActionTypeReactivate, &s.premium, false, s.trialSnapshot(), 0)
	s.True(exp.CheckDuration)
	s.Equal(12, exp.ExpectedDurationMonths)
}

func (s *ExpectationSuite) TestVerifyKeepsStatus() {
	before := s.trialSnapshot()
	s.Equal(types.SubscriptionStatusTrial,
		s.service.ExpectedStatus(types.ActionTypeVerify, nil, false, before, 0))
}

func (s *ExpectationSuite) TestAdvanceWithinPeriod() {
	before := s.trialSnapshot()
	exp := s.service.Calculate(types.ActionTypeAdvanceTime, &s.premium, true, before, 10)

	s.Equal(types.SubscriptionStatusTrial, exp.ExpectedStatusCode)
	s.True(exp.HasExpectedDates)
	s.Equal(before.StartDate, exp.ExpectedStartDate)
	s.Equal(before.ExpireDate, exp.ExpectedExpireDate)
}

func (s *ExpectationSuite) TestAdvancePastTrialEnd() {
	before := s.trialSnapshot()
	exp := s.service.Calculate(types.ActionTypeAdvanceTime, &s.premium, true, before, 46)

	s.Equal(types.SubscriptionStatusActive, exp.ExpectedStatusCode)
	s.False(exp.CheckTrialPeriod)
	s.True(exp.HasExpectedDates)

	// The renewal starts where the trial ended and runs a full calendar year
	s.Equal(before.ExpireDate, exp.ExpectedStartDate)
	s.Equal(types.AddCalendarMonths(before.ExpireDate, 12), exp.ExpectedExpireDate)
}

func (s *ExpectationSuite) TestAdvanceExactlyToBoundary() {
	before := s.trialSnapshot()
	exp := s.service.Calculate(types.ActionTypeAdvanceTime, &s.premium, true, before, 45)

	// Landing on the expiry instant counts as crossing
	s.Equal(types.SubscriptionStatusActive, exp.ExpectedStatusCode)
}

func (s *ExpectationSuite) TestAdvanceAccumulates() {
	before := s.trialSnapshot().WithDaysAdvanced(40)

	// 40 already advanced, 6 more crosses the 45-day trial
	exp := s.service.Calculate(types.ActionTypeAdvanceTime, &s.premium, true, before, 6)
	s.Equal(types.SubscriptionStatusActive, exp.ExpectedStatusCode)

	within := s.service.Calculate(types.ActionTypeAdvanceTime, &s.premium, true, before, 3)
	s.Equal(types.SubscriptionStatusTrial, within.ExpectedStatusCode)
}

func (s *ExpectationSuite) TestAdvanceCancelledStaysCancelled() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	before := subscription.NewSnapshot(
		"101", 16, types.SubscriptionTypeWeb, types.SubscriptionStatusCancelled,
		start, start.AddDate(0, 0, 45), 45, 0,
	)

	exp := s.service.Calculate(types.ActionTypeAdvanceTime, &s.premium, true, before, 100)

	s.Equal(types.SubscriptionStatusCancelled, exp.ExpectedStatusCode)
	s.True(exp.HasExpectedDates)
	s.Equal(before.StartDate, exp.ExpectedStartDate)
	s.Equal(before.ExpireDate, exp.ExpectedExpireDate)
}

func (s *ExpectationSuite) TestNonAdvanceActionsKeepDates() {
	before := s.trialSnapshot()
	for _, action := range []types.ActionType{types.ActionTypeCancel, types.ActionTypeReactivate, types.ActionTypeVerify} {
		start, expire, ok := s.service.ExpectedDates(action, &s.premium, before, 0)
		s.True(ok)
		s.Equal(before.StartDate, start)
		s.Equal(before.ExpireDate, expire)
	}
}

func (s *ExpectationSuite) TestNoDatesWithoutSubscription() {
	_, _, ok := s.service.ExpectedDates(types.ActionTypePurchase, &s.premium, subscription.FreeSnapshot(0), 0)
	s.False(ok)
}

func (s *ExpectationSuite) TestCalculateIsIdempotent() {
	before := s.trialSnapshot()
	first := s.service.Calculate(types.ActionTypeAdvanceTime, &s.premium, true, before, 46)
	second := s.service.Calculate(types.ActionTypeAdvanceTime, &s.premium, true, before, 46)
	s.Equal(first, second)
}
