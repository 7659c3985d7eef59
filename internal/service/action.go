package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vidinfra/subqa/internal/client/checkout"
	"github.com/vidinfra/subqa/internal/client/membership"
	"github.com/vidinfra/subqa/internal/config"
	"github.com/vidinfra/subqa/internal/domain/subscription"
	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

// ActionContext carries the per-test-case environment an action runs in.
type ActionContext struct {
	Currency      string
	Country       string
	TrialEligible bool

	// State is the snapshot captured before the action runs.
	State subscription.Snapshot
}

// ActionRunner executes a single configured action against the backends and
// reports what happened. Failures are outcomes, not panics: a declined
// payment or an ineligible plan is data for the verifier, and only broken
// test definitions raise errors.
type ActionRunner struct {
	membership       *membership.Client
	checkout         *checkout.Client
	checkoutVerifier *CheckoutVerifier
	catalog          *subscription.Catalog
	cards            map[string]config.TestCard
	confirm          ConfirmationProvider
	logger           *logger.Logger
}

func NewActionRunner(
	m *membership.Client,
	co *checkout.Client,
	cv *CheckoutVerifier,
	catalog *subscription.Catalog,
	cards map[string]config.TestCard,
	confirm ConfirmationProvider,
	log *logger.Logger,
) *ActionRunner {
	return &ActionRunner{
		membership:       m,
		checkout:         co,
		checkoutVerifier: cv,
		catalog:          catalog,
		cards:            cards,
		confirm:          confirm,
		logger:           log,
	}
}

// Execute runs one action. The param string comes from the test definition
// and its meaning depends on the action type: a card name for purchases, a
// day count for time advances, a hint for manual verification.
func (r *ActionRunner) Execute(ctx context.Context, action config.Action, param string, actx ActionContext) Outcome {
	r.logger.Infow("executing action", "type", action.Type, "param", param)

	switch action.Type {
	case types.ActionTypePurchase:
		return r.purchase(ctx, action, param, actx)
	case types.ActionTypeCancel:
		return r.cancel(ctx)
	case types.ActionTypeReactivate:
		return r.reactivate(ctx)
	case types.ActionTypeRefund:
		return r.refund()
	case types.ActionTypeAdvanceTime:
		return r.advanceTime(param)
	case types.ActionTypeVerify:
		return r.manualVerify(param)
	default:
		err := action.Type.Validate()
		if err == nil {
			err = ierr.NewError("action type not implemented").
				WithHintf("Action type %q has no executor", action.Type).
				Mark(ierr.ErrConfiguration)
		}
		return Outcome{Success: false, Message: fmt.Sprintf("unknown action type %q", action.Type), Err: err}
	}
}

func (r *ActionRunner) purchase(ctx context.Context, action config.Action, param string, actx ActionContext) Outcome {
	plan, err := r.catalog.Get(action.PlanKey)
	if err != nil {
		return Outcome{Success: false, Message: err.Error(), Err: err}
	}

	cardKey := param
	if cardKey == "" {
		cardKey = action.DefaultCard
	}
	card, ok := r.cards[cardKey]
	if !ok {
		err := ierr.NewError("unknown test card").
			WithHintf("Card %q is not configured", cardKey).
			Mark(ierr.ErrConfiguration)
		return Outcome{Success: false, Message: err.Error(), Err: err}
	}

	r.logger.Infow("starting purchase",
		"plan", action.PlanKey,
		"plan_code", plan.Code,
		"card", cardKey,
		"expected_payment", card.ExpectedResult)

	plans, err := r.membership.GetWebPlans(ctx, actx.Country)
	if err != nil {
		return Outcome{Success: false, Message: "failed to fetch web plans", Err: err}
	}
	if !plans.IsEligible(plan.Code) {
		return Outcome{
			Success: false,
			Message: fmt.Sprintf("plan %s (code %d) is not eligible for purchase", action.PlanKey, plan.Code),
		}
	}

	created, err := r.membership.CreateSubscription(ctx, plan.Code)
	if err != nil {
		return Outcome{Success: false, Message: "subscription creation failed", Err: err}
	}
	checkoutURL := created.CheckoutURL()
	if checkoutURL == "" {
		return Outcome{Success: false, Message: "subscription creation returned no checkout URL"}
	}

	details, err := r.checkout.VerifyPage(ctx, checkoutURL, actx.Currency, actx.Country)
	if err != nil {
		return Outcome{Success: false, Message: "checkout page could not be loaded", Err: err}
	}

	pageResult := r.checkoutVerifier.Verify(details, action.PlanKey, actx.Currency, actx.TrialEligible)
	if !pageResult.Verified {
		return Outcome{
			Success:  false,
			Message:  fmt.Sprintf("checkout page verification failed: %s", pageResult.Message),
			Checkout: pageResult,
		}
	}

	token, err := r.membership.AuthToken()
	if err != nil {
		return Outcome{Success: false, Message: "no session for payment", Err: err}
	}
	userData, err := r.membership.UserData()
	if err != nil {
		return Outcome{Success: false, Message: "no user payload for payment", Err: err}
	}

	payment, err := r.checkout.PayWithCard(ctx, checkoutURL, checkout.Card{
		Number:     card.Number,
		Expiry:     card.Expiry,
		CVC:        card.CVC,
		HolderName: card.HolderName,
	}, actx.Currency, actx.Country, token, userData)
	if err != nil {
		return Outcome{Success: false, Message: "payment call failed", Checkout: pageResult, Err: err}
	}

	outcome := Outcome{
		PlanKey:         action.PlanKey,
		ExpectedPayment: card.ExpectedResult,
		Checkout:        pageResult,
	}

	// A declined card passing is the payment FAILING. The success verdict
	// compares what happened to what the card is configured to do.
	switch {
	case card.ExpectedResult == types.PaymentResultSuccess && payment.PaymentSucceeded:
		outcome.Success = true
		outcome.Message = "purchase completed"
	case card.ExpectedResult == types.PaymentResultSuccess && !payment.PaymentSucceeded:
		outcome.Message = fmt.Sprintf("payment failed unexpectedly: %s", payment.Message)
	case card.ExpectedResult == types.PaymentResultDeclined && !payment.PaymentSucceeded:
		outcome.Success = true
		outcome.Message = "payment correctly declined"
	default:
		outcome.Message = "payment succeeded but a decline was expected"
	}

	return outcome
}

func (r *ActionRunner) cancel(ctx context.Context) Outcome {
	resp, err := r.membership.CancelSubscription(ctx)
	if err != nil {
		return Outcome{Success: false, Message: "cancel call failed", Err: err}
	}
	if !resp.Success {
		return Outcome{Success: false, Message: fmt.Sprintf("cancellation rejected: %s", resp.Message)}
	}
	return Outcome{Success: true, Message: "subscription cancelled"}
}

func (r *ActionRunner) reactivate(ctx context.Context) Outcome {
	resp, err := r.membership.ReactivateSubscription(ctx)
	if err != nil {
		return Outcome{Success: false, Message: "reactivate call failed", Err: err}
	}
	if !resp.Success {
		return Outcome{Success: false, Message: fmt.Sprintf("reactivation rejected: %s", resp.Message)}
	}
	return Outcome{Success: true, Message: "subscription reactivated"}
}

// refund has no membership API endpoint: it is issued from the payment
// provider's dashboard and propagates back through webhooks. The operator
// performs it and the harness verifies the aftermath.
func (r *ActionRunner) refund() Outcome {
	email := r.membership.UserEmail()
	done, err := r.confirm.ConfirmManualCheck(
		fmt.Sprintf("Issue a full refund for %s in the payment provider dashboard", email))
	if err != nil {
		return Outcome{Success: false, Message: "refund confirmation failed", Err: err}
	}
	if !done {
		return Outcome{Success: false, Message: "refund not performed"}
	}
	return Outcome{Success: true, Message: "refund issued (manual)"}
}

// advanceTime moves the billing provider's simulation clock forward. The
// provider dashboard is the only place this can happen, so the operator does
// it and reports the number of days actually applied, which may differ from
// the requested amount.
func (r *ActionRunner) advanceTime(param string) Outcome {
	days, err := strconv.Atoi(param)
	if err != nil || days <= 0 {
		err := ierr.NewError("invalid advance_time parameter").
			WithHintf("advance_time requires a positive day count, got %q", param).
			Mark(ierr.ErrConfiguration)
		return Outcome{Success: false, Message: err.Error(), Err: err}
	}

	email := r.membership.UserEmail()
	actual, err := r.confirm.ConfirmTimeAdvance(email, days)
	if err != nil {
		return Outcome{Success: false, Message: "time advance confirmation failed", DaysRequested: days, Err: err}
	}
	if actual <= 0 {
		return Outcome{Success: false, Message: "time advance skipped by operator", DaysRequested: days}
	}

	if actual != days {
		r.logger.Warnw("operator advanced a different number of days",
			"requested", days, "actual", actual)
	}

	return Outcome{
		Success:       true,
		Message:       fmt.Sprintf("time advanced by %d day(s)", actual),
		DaysRequested: days,
		DaysAdvanced:  actual,
	}
}

func (r *ActionRunner) manualVerify(hint string) Outcome {
	if hint == "" {
		hint = "Verify the expected behavior manually"
	}
	passed, err := r.confirm.ConfirmManualCheck(hint)
	if err != nil {
		return Outcome{Success: false, Message: "manual verification failed", Err: err}
	}
	if !passed {
		return Outcome{Success: false, Message: fmt.Sprintf("manual verification failed: %s", hint)}
	}
	return Outcome{Success: true, Message: fmt.Sprintf("manual verification passed: %s", hint)}
}
