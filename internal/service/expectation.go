package service

import (
	"time"

	"github.com/vidinfra/subqa/internal/domain/subscription"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

// ExpectationService predicts the subscription state an action should leave
// behind. All methods are pure: the same inputs always produce the same
// expectation, and nothing here touches the network.
type ExpectationService struct {
	logger *logger.Logger
}

func NewExpectationService(log *logger.Logger) *ExpectationService {
	return &ExpectationService{logger: log}
}

// Calculate builds the full expectation for an action given the plan, the
// user's trial eligibility and the state captured before the action ran.
// A nil plan means the action carries no plan context (cancel, verify).
func (s *ExpectationService) Calculate(
	action types.ActionType,
	plan *subscription.PlanConfig,
	trialEligible bool,
	before subscription.Snapshot,
	daysToAdvance int,
) Expectation {
	status := s.ExpectedStatus(action, plan, trialEligible, before, daysToAdvance)

	exp := Expectation{
		ExpectedStatusCode: status,
		ExpectedStatusName: status.Name(),
	}
	if status == types.SubscriptionStatusTrial && plan != nil {
		exp.CheckTrialPeriod = true
		exp.TrialDurationDays = plan.TrialDays
	}
	if (action == types.ActionTypePurchase || action == types.ActionTypeReactivate) && plan != nil {
		exp.CheckDuration = true
		exp.ExpectedDurationMonths = plan.DurationMonths
	}

	if start, expire, ok := s.ExpectedDates(action, plan, before, daysToAdvance); ok {
		exp.HasExpectedDates = true
		exp.ExpectedStartDate = start
		exp.ExpectedExpireDate = expire
	}
	return exp
}

// ExpectedStatus resolves the status code an action should produce.
//
// Cancellation always wins: a cancel action yields cancelled no matter what
// state preceded it, and a cancelled subscription never resurrects through
// time advancement alone.
func (s *ExpectationService) ExpectedStatus(
	action types.ActionType,
	plan *subscription.PlanConfig,
	trialEligible bool,
	before subscription.Snapshot,
	daysToAdvance int,
) types.SubscriptionStatus {
	switch action {
	case types.ActionTypeCancel:
		return types.SubscriptionStatusCancelled
	case types.ActionTypeRefund:
		return types.SubscriptionStatusRefunded
	case types.ActionTypeAdvanceTime:
		return s.statusAfterAdvance(before, daysToAdvance)
	case types.ActionTypePurchase, types.ActionTypeReactivate:
		if plan != nil {
			return plan.ExpectedStatus(trialEligible)
		}
		return types.SubscriptionStatusActive
	default:
		// verify leaves the status alone
		if before.Exists {
			return before.StatusCode
		}
		return types.SubscriptionStatusActive
	}
}

// statusAfterAdvance applies the time-advance sub-rule: crossing the expiry
// boundary renews a trial into an active subscription, while a cancelled
// subscription stays cancelled on either side of the boundary.
func (s *ExpectationService) statusAfterAdvance(before subscription.Snapshot, days int) types.SubscriptionStatus {
	if !before.Exists {
		return types.SubscriptionStatusActive
	}
	if before.StatusCode == types.SubscriptionStatusCancelled {
		return types.SubscriptionStatusCancelled
	}

	simulated := types.SimulatedNow(before.StartDate, before.DaysAdvanced+days)
	if !simulated.Before(before.ExpireDate) {
		// boundary crossed: trial converts, active renews
		return types.SubscriptionStatusActive
	}
	return before.StatusCode
}

// ExpectedDates resolves the start and expire dates an action should leave.
// Every action except a boundary-crossing time advance keeps the dates it
// found; a crossing starts the next period at the old expiry and extends it
// by the plan duration with calendar-clamped month math.
func (s *ExpectationService) ExpectedDates(
	action types.ActionType,
	plan *subscription.PlanConfig,
	before subscription.Snapshot,
	daysToAdvance int,
) (start, expire time.Time, ok bool) {
	if !before.Exists {
		return time.Time{}, time.Time{}, false
	}

	if action != types.ActionTypeAdvanceTime {
		return before.StartDate, before.ExpireDate, true
	}

	if before.StatusCode == types.SubscriptionStatusCancelled {
		return before.StartDate, before.ExpireDate, true
	}

	simulated := types.SimulatedNow(before.StartDate, before.DaysAdvanced+daysToAdvance)
	if simulated.Before(before.ExpireDate) {
		return before.StartDate, before.ExpireDate, true
	}

	if plan == nil || plan.DurationMonths <= 0 {
		s.logger.Warnw("cannot project renewal dates without a plan duration")
		return time.Time{}, time.Time{}, false
	}

	newStart := before.ExpireDate
	newExpire := types.AddCalendarMonths(newStart, plan.DurationMonths)
	return newStart, newExpire, true
}
