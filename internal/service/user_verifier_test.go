package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vidinfra/subqa/internal/domain/subscription"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

type UserVerifierSuite struct {
	suite.Suite
	verifier *UserVerifier
}

func TestUserVerifier(t *testing.T) {
	suite.Run(t, new(UserVerifierSuite))
}

func (s *UserVerifierSuite) SetupTest() {
	s.verifier = NewUserVerifier(logger.NewNopLogger())
}

func (s *UserVerifierSuite) trialState() subscription.Snapshot {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return subscription.NewSnapshot(
		"101", 16, types.SubscriptionTypeWeb, types.SubscriptionStatusTrial,
		start, start.AddDate(0, 0, 45), 45, 0,
	)
}

func (s *UserVerifierSuite) trialExpectation() Expectation {
	state := s.trialState()
	return Expectation{
		ExpectedStatusCode: types.SubscriptionStatusTrial,
		ExpectedStatusName: "trial",
		CheckTrialPeriod:   true,
		TrialDurationDays:  45,
		ExpectedStartDate:  state.StartDate,
		ExpectedExpireDate: state.ExpireDate,
		HasExpectedDates:   true,
	}
}

func (s *UserVerifierSuite) TestMatchingStatePasses() {
	result := s.verifier.Verify(types.ActionTypePurchase, s.trialExpectation(), 16, true, s.trialState())

	s.True(result.Verified, result.Message)
	s.True(result.Checks["status_code"].Passed)
	s.True(result.Checks["plan_code"].Passed)
	s.True(result.Checks["type_code"].Passed)
	s.True(result.Checks["trial_period"].Passed)
	s.True(result.Checks["start_date"].Passed)
	s.True(result.Checks["expire_date"].Passed)
}

func (s *UserVerifierSuite) TestWrongSalesChannelFails() {
	state := s.trialState()
	state.TypeCode = types.SubscriptionTypeInApp

	result := s.verifier.Verify(types.ActionTypePurchase, s.trialExpectation(), 16, true, state)

	s.False(result.Verified)
	s.False(result.Checks["type_code"].Passed)
}

func (s *UserVerifierSuite) TestTrialDurationFromDates() {
	// A purchase starts from a free snapshot, so there are no exact dates
	// to predict; the period length is derived from the captured dates.
	exp := s.trialExpectation()
	exp.HasExpectedDates = false
	exp.CheckDuration = true
	exp.ExpectedDurationMonths = 12

	result := s.verifier.Verify(types.ActionTypePurchase, exp, 16, true, s.trialState())
	s.True(result.Verified, result.Message)
	s.True(result.Checks["duration"].Passed)

	short := s.trialState()
	short.ExpireDate = short.StartDate.AddDate(0, 0, 30)
	result = s.verifier.Verify(types.ActionTypePurchase, exp, 16, true, short)
	s.False(result.Verified)
	s.False(result.Checks["duration"].Passed)
}

func (s *UserVerifierSuite) TestPlanDurationFromDates() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	state := subscription.NewSnapshot(
		"101", 16, types.SubscriptionTypeWeb, types.SubscriptionStatusActive,
		start, types.AddCalendarMonths(start, 12), 0, 0,
	)
	exp := Expectation{
		ExpectedStatusCode:     types.SubscriptionStatusActive,
		ExpectedStatusName:     "active",
		CheckDuration:          true,
		ExpectedDurationMonths: 12,
	}

	result := s.verifier.Verify(types.ActionTypePurchase, exp, 16, true, state)
	s.True(result.Verified, result.Message)
	s.True(result.Checks["duration"].Passed)

	truncated := state
	truncated.ExpireDate = start.AddDate(0, 0, 300)
	result = s.verifier.Verify(types.ActionTypePurchase, exp, 16, true, truncated)
	s.False(result.Verified)
	s.False(result.Checks["duration"].Passed)
}

func (s *UserVerifierSuite) TestDateSkewWithinToleranceStillPasses() {
	state := s.trialState()
	state.StartDate = state.StartDate.Add(45 * time.Second)

	result := s.verifier.Verify(types.ActionTypePurchase, s.trialExpectation(), 16, true, state)
	s.True(result.Verified, result.Message)
}

func (s *UserVerifierSuite) TestCollectsEveryMismatch() {
	state := s.trialState()
	state.StatusCode = types.SubscriptionStatusActive
	state.StatusName = "active"
	state.PlanCode = 14
	state.TrialDays = 30
	state.ExpireDate = state.ExpireDate.Add(48 * time.Hour)

	result := s.verifier.Verify(types.ActionTypePurchase, s.trialExpectation(), 16, true, state)

	s.False(result.Verified)
	s.False(result.Checks["status_code"].Passed)
	s.False(result.Checks["plan_code"].Passed)
	s.False(result.Checks["trial_period"].Passed)
	s.False(result.Checks["expire_date"].Passed)
	s.True(result.Checks["start_date"].Passed)
	s.Len(result.Issues, 4)
}

func (s *UserVerifierSuite) TestUnexpectedTrialOnNonTrialExpectation() {
	state := s.trialState()
	state.StatusCode = types.SubscriptionStatusActive
	state.StatusName = "active"

	exp := Expectation{
		ExpectedStatusCode: types.SubscriptionStatusActive,
		ExpectedStatusName: "active",
	}

	result := s.verifier.Verify(types.ActionTypePurchase, exp, 16, false, state)

	s.False(result.Verified)
	s.False(result.Checks["trial_period"].Passed)
}

func (s *UserVerifierSuite) TestCancelledKeepsStaleTrialField() {
	state := s.trialState()
	state.StatusCode = types.SubscriptionStatusCancelled
	state.StatusName = "cancelled"
	state.IsCancelled = true

	exp := Expectation{
		ExpectedStatusCode: types.SubscriptionStatusCancelled,
		ExpectedStatusName: "cancelled",
	}

	result := s.verifier.Verify(types.ActionTypeCancel, exp, 16, false, state)
	s.True(result.Verified, result.Message)
}

func (s *UserVerifierSuite) TestNoSubscriptionAfterRefundPasses() {
	exp := Expectation{
		ExpectedStatusCode: types.SubscriptionStatusRefunded,
		ExpectedStatusName: "refunded",
	}

	result := s.verifier.Verify(types.ActionTypeRefund, exp, 0, false, subscription.FreeSnapshot(0))
	s.True(result.Verified)
}

func (s *UserVerifierSuite) TestNoSubscriptionOtherwiseFails() {
	result := s.verifier.Verify(types.ActionTypePurchase, s.trialExpectation(), 16, false, subscription.FreeSnapshot(0))
	s.False(result.Verified)
}

func (s *UserVerifierSuite) TestCaptureErrorFails() {
	state := subscription.ErrorSnapshot(0, errors.New("connection refused"))

	result := s.verifier.Verify(types.ActionTypePurchase, s.trialExpectation(), 16, false, state)

	s.False(result.Verified)
	s.Contains(result.Message, "connection refused")
}

func (s *UserVerifierSuite) TestVerifyUnchanged() {
	before := s.trialState()

	after := before
	after.StartDate = before.StartDate.Add(10 * time.Second)
	result := s.verifier.VerifyUnchanged(before, after)
	s.True(result.Verified, result.Message)
	s.Len(result.Checks, len(subscription.EqualityFields()))
	for _, name := range subscription.EqualityFields() {
		s.True(result.Checks[name].Passed, name)
	}

	mutated := before
	mutated.StatusCode = types.SubscriptionStatusActive
	result = s.verifier.VerifyUnchanged(before, mutated)
	s.False(result.Verified)
	s.False(result.Checks[subscription.FieldStatusCode].Passed)
	s.True(result.Checks[subscription.FieldPlanCode].Passed)
}

func (s *UserVerifierSuite) TestVerifyUnchangedFreeUserStaysFree() {
	result := s.verifier.VerifyUnchanged(subscription.FreeSnapshot(0), subscription.FreeSnapshot(0))
	s.True(result.Verified)
}
