package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/vidinfra/subqa/internal/domain/subscription"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

// durationTolerance absorbs the rounding a billing backend applies to period
// boundaries; duration is a day-granularity property, unlike the exact date
// cross-checks which use dateTolerance.
const durationTolerance = 24 * time.Hour

// UserVerifier checks the user-visible subscription state against an
// expectation. It works on captured snapshots so one read serves every
// verifier in the pass.
type UserVerifier struct {
	logger *logger.Logger
}

func NewUserVerifier(log *logger.Logger) *UserVerifier {
	return &UserVerifier{logger: log}
}

// Verify compares the captured state against the expectation. All checks run
// and all failures are collected before the verdict.
func (v *UserVerifier) Verify(
	action types.ActionType,
	exp Expectation,
	expectedPlanCode int,
	checkDates bool,
	after subscription.Snapshot,
) *VerificationResult {
	result := newVerificationResult(types.VerificationTypeUser)

	if after.Err != "" {
		result.fail(fmt.Sprintf("state capture failed: %s", after.Err))
		return result
	}

	if !after.Exists {
		// A refund removes the subscription record entirely, so an empty
		// list is the expected outcome rather than a failure.
		if action == types.ActionTypeRefund {
			result.Message = "no subscription record after refund"
			return result
		}
		result.fail(fmt.Sprintf("no subscription found, expected status %d (%s)",
			exp.ExpectedStatusCode, exp.ExpectedStatusName))
		return result
	}

	result.addCheck("status_code", Check{
		Passed:   after.StatusCode == exp.ExpectedStatusCode,
		Expected: fmt.Sprintf("%d (%s)", exp.ExpectedStatusCode, exp.ExpectedStatusName),
		Actual:   fmt.Sprintf("%d (%s)", after.StatusCode, after.StatusName),
		Message: fmt.Sprintf("status mismatch: expected %d (%s), got %d (%s)",
			exp.ExpectedStatusCode, exp.ExpectedStatusName, after.StatusCode, after.StatusName),
	})

	if expectedPlanCode != 0 {
		result.addCheck("plan_code", Check{
			Passed:   after.PlanCode == expectedPlanCode,
			Expected: expectedPlanCode,
			Actual:   after.PlanCode,
			Message:  fmt.Sprintf("plan code mismatch: expected %d, got %d", expectedPlanCode, after.PlanCode),
		})
	}

	result.addCheck("type_code", Check{
		Passed:   after.TypeCode == types.SubscriptionTypeWeb,
		Expected: fmt.Sprintf("%d (%s)", types.SubscriptionTypeWeb, types.SubscriptionTypeWeb.Name()),
		Actual:   fmt.Sprintf("%d (%s)", after.TypeCode, after.TypeCode.Name()),
		Message: fmt.Sprintf("sales channel mismatch: expected web, got %s",
			after.TypeCode.Name()),
	})

	v.checkTrialPeriod(result, exp, after)

	if checkDates && !exp.HasExpectedDates {
		v.checkDuration(result, exp, after)
	}

	if checkDates && exp.HasExpectedDates {
		result.addCheck("start_date", Check{
			Passed:   types.WithinTolerance(after.StartDate, exp.ExpectedStartDate, dateTolerance),
			Expected: types.FormatAPITime(exp.ExpectedStartDate),
			Actual:   types.FormatAPITime(after.StartDate),
			Message: fmt.Sprintf("start date mismatch: expected %s, got %s",
				types.FormatAPITime(exp.ExpectedStartDate), types.FormatAPITime(after.StartDate)),
		})
		result.addCheck("expire_date", Check{
			Passed:   types.WithinTolerance(after.ExpireDate, exp.ExpectedExpireDate, dateTolerance),
			Expected: types.FormatAPITime(exp.ExpectedExpireDate),
			Actual:   types.FormatAPITime(after.ExpireDate),
			Message: fmt.Sprintf("expire date mismatch: expected %s, got %s",
				types.FormatAPITime(exp.ExpectedExpireDate), types.FormatAPITime(after.ExpireDate)),
		})
	}

	if result.Verified {
		result.Message = "subscription state verified"
	} else {
		result.Message = strings.Join(result.Issues, "; ")
	}
	return result
}

// checkTrialPeriod asserts the trial_period_days field matches the
// expectation. Cancelled subscriptions keep the field from when they were
// created, so the no-unexpected-trial check skips them.
func (v *UserVerifier) checkTrialPeriod(result *VerificationResult, exp Expectation, after subscription.Snapshot) {
	if exp.CheckTrialPeriod {
		result.addCheck("trial_period", Check{
			Passed:   after.TrialDays == exp.TrialDurationDays,
			Expected: exp.TrialDurationDays,
			Actual:   after.TrialDays,
			Message: fmt.Sprintf("trial period mismatch: expected %d days, got %d",
				exp.TrialDurationDays, after.TrialDays),
		})
		return
	}

	if after.TrialDays > 0 && after.StatusCode != types.SubscriptionStatusCancelled {
		result.addCheck("trial_period", Check{
			Passed:   false,
			Expected: "no trial period",
			Actual:   after.TrialDays,
			Message:  fmt.Sprintf("expected non-trial subscription, got trial_period_days=%d", after.TrialDays),
		})
	}
}

// checkDuration verifies the billing period length from the captured dates
// alone. A fresh purchase has no prior snapshot to project exact dates from,
// so the expected expiry is derived from the actual start: the trial length
// for a trial, the plan's calendar months otherwise.
func (v *UserVerifier) checkDuration(result *VerificationResult, exp Expectation, after subscription.Snapshot) {
	if !exp.CheckDuration {
		return
	}

	var expectedExpire time.Time
	var expected string
	if exp.CheckTrialPeriod {
		expectedExpire = after.StartDate.AddDate(0, 0, exp.TrialDurationDays)
		expected = fmt.Sprintf("%d trial day(s)", exp.TrialDurationDays)
	} else {
		if exp.ExpectedDurationMonths <= 0 {
			return
		}
		expectedExpire = types.AddCalendarMonths(after.StartDate, exp.ExpectedDurationMonths)
		expected = fmt.Sprintf("%d calendar month(s)", exp.ExpectedDurationMonths)
	}

	actualDays := int(after.ExpireDate.Sub(after.StartDate).Hours() / 24)
	result.addCheck("duration", Check{
		Passed:   types.WithinTolerance(after.ExpireDate, expectedExpire, durationTolerance),
		Expected: expected,
		Actual:   fmt.Sprintf("%d day(s)", actualDays),
		Message: fmt.Sprintf("subscription duration mismatch: expected %s, expire date is %d day(s) from start",
			expected, actualDays),
	})
}

// VerifyUnchanged asserts a declined payment left the subscription state
// exactly as it was. Equality over the field set replaces a status
// expectation: whatever state preceded the declined charge must survive it.
func (v *UserVerifier) VerifyUnchanged(before, after subscription.Snapshot) *VerificationResult {
	result := newVerificationResult(types.VerificationTypeUser)

	if after.Err != "" {
		result.fail(fmt.Sprintf("state capture failed: %s", after.Err))
		return result
	}

	// One entry per compared field so reports show what was held equal,
	// not only what drifted.
	for _, name := range subscription.EqualityFields() {
		result.addCheck(name, Check{
			Passed:   fieldUnchanged(before, after, name),
			Expected: before.Field(name),
			Actual:   after.Field(name),
			Message:  fmt.Sprintf("%s changed after declined payment", name),
		})
	}

	if result.Verified {
		result.Message = "state unchanged after declined payment"
	} else {
		result.Message = strings.Join(result.Issues, "; ")
	}
	return result
}
