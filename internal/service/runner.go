package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vidinfra/subqa/internal/client/membership"
	"github.com/vidinfra/subqa/internal/config"
	"github.com/vidinfra/subqa/internal/domain/subscription"
	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

// Runner orchestrates one test case end to end: user setup, action
// execution, expectation calculation and the verification passes.
type Runner struct {
	cfg         *config.Configuration
	membership  *membership.Client
	actions     *ActionRunner
	capture     *CaptureService
	expectation *ExpectationService
	user        *UserVerifier
	ledger      *AdminVerifier
	catalog     *subscription.Catalog
	logger      *logger.Logger

	adminLoggedIn bool
}

func NewRunner(
	cfg *config.Configuration,
	m *membership.Client,
	actions *ActionRunner,
	capture *CaptureService,
	expectation *ExpectationService,
	user *UserVerifier,
	ledger *AdminVerifier,
	log *logger.Logger,
) *Runner {
	return &Runner{
		cfg:         cfg,
		membership:  m,
		actions:     actions,
		capture:     capture,
		expectation: expectation,
		user:        user,
		ledger:      ledger,
		catalog:     cfg.Catalog(),
		logger:      log,
	}
}

// RunAll executes every test case in order. Cases are independent: a failed
// case never stops the following ones.
func (r *Runner) RunAll(ctx context.Context, cases []TestCase) []TestResult {
	results := make([]TestResult, 0, len(cases))
	for i, tc := range cases {
		r.logger.Infow("running test case",
			"test_id", tc.ID,
			"name", tc.Name,
			"index", fmt.Sprintf("%d/%d", i+1, len(cases)))
		results = append(results, r.RunCase(ctx, tc))
	}
	return results
}

// RunCase executes a single test case and reports its outcome. Action and
// user-side verification failures halt the case: later steps depend on the
// state the failed step should have produced. Ledger-side failures only
// warn, so the report still shows every divergence the case reached.
func (r *Runner) RunCase(ctx context.Context, tc TestCase) (result TestResult) {
	started := time.Now()
	country := r.cfg.Locations.Normalize(tc.Country)
	currency := r.cfg.Locations.CurrencyFor(country)
	trialEligible := tc.TrialEligible()

	result = TestResult{
		TestID:        tc.ID,
		TestName:      tc.Name,
		Status:        types.TestStatusFailed,
		Country:       country,
		Currency:      currency,
		TrialEligible: trialEligible,
		StartedAt:     started,
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("test case panicked", "test_id", tc.ID, "panic", rec)
			result.Status = types.TestStatusError
			result.Error = fmt.Sprintf("panic: %v", rec)
		}
		result.DurationSec = time.Since(started).Seconds()
		r.cleanup(ctx, result)
	}()

	if len(tc.Steps) == 0 {
		result.Status = types.TestStatusError
		result.Error = "no actions defined in test case"
		return result
	}

	email, err := r.setupUser(ctx, tc)
	if err != nil {
		result.Status = types.TestStatusError
		result.Error = fmt.Sprintf("user setup failed: %v", err)
		return result
	}
	result.UserEmail = email

	r.logger.Infow("test environment ready",
		"email", email,
		"location", r.cfg.Locations.NameFor(country),
		"country", country,
		"currency", currency,
		"trial_eligible", trialEligible)

	state := r.capture.CurrentState(ctx, 0)
	passed := true

	for i, step := range tc.Steps {
		r.logger.Infow("step", "index", fmt.Sprintf("%d/%d", i+1, len(tc.Steps)), "action", step.ActionName)

		action, ok := r.cfg.Actions[step.ActionName]
		if !ok {
			result.Status = types.TestStatusError
			result.Error = fmt.Sprintf("unknown action %q", step.ActionName)
			result.Steps = append(result.Steps, StepResult{
				Action:  step.ActionName,
				Param:   step.Param,
				Message: result.Error,
			})
			return result
		}

		before := state
		outcome := r.actions.Execute(ctx, action, step.Param, ActionContext{
			Currency:      currency,
			Country:       country,
			TrialEligible: trialEligible,
			State:         before,
		})

		stepResult := StepResult{
			Action:       step.ActionName,
			Param:        step.Param,
			Success:      outcome.Success,
			Message:      outcome.Message,
			CheckoutPage: outcome.Checkout,
		}
		if outcome.Err != nil {
			stepResult.Error = outcome.Err.Error()
		}

		if !outcome.Success {
			r.logger.Errorw("action failed, halting test case",
				"action", step.ActionName, "message", outcome.Message)
			result.Steps = append(result.Steps, stepResult)
			passed = false
			break
		}

		// The session token predates the purchase; refresh it so the
		// subscription list reflects the new state.
		if _, err := r.membership.Login(ctx, email, r.cfg.Run.Password); err != nil {
			r.logger.Errorw("session refresh failed", "error", err)
		}

		planKey := before.PlanKey
		if action.Type.ChangesPlan() && outcome.PlanKey != "" {
			planKey = outcome.PlanKey
		}

		after := r.capture.CurrentState(ctx, before.DaysAdvanced+outcome.DaysAdvanced).WithPlanKey(planKey)

		if action.CheckStatus {
			stepResult.UserVerification = r.verifyUserSide(action, outcome, trialEligible, before, after)
			stepResult.LedgerVerification = r.verifyLedgerSide(ctx, email, action, outcome, trialEligible, before, after)

			// A diverged state invalidates every later step's preconditions,
			// so a user-side failure halts the case. The ledger side lags
			// behind webhooks and only warns.
			if !stepResult.UserVerification.Verified {
				r.logger.Errorw("user-side verification failed, halting test case",
					"action", step.ActionName,
					"message", stepResult.UserVerification.Message)
				result.Steps = append(result.Steps, stepResult)
				passed = false
				break
			}
		}

		result.Steps = append(result.Steps, stepResult)
		state = after
	}

	if passed {
		result.Status = types.TestStatusPassed
	}
	return result
}

// verifyUserSide compares the captured state with the calculated
// expectation. A declined-card purchase switches to state-equality mode:
// nothing about the subscription may change when the charge fails.
func (r *Runner) verifyUserSide(action config.Action, outcome Outcome, trialEligible bool, before, after subscription.Snapshot) *VerificationResult {
	if outcome.ExpectedPayment == types.PaymentResultDeclined {
		return r.user.VerifyUnchanged(before, after)
	}

	plan, planCode := r.resolvePlan(action, before)
	exp := r.expectation.Calculate(action.Type, plan, trialEligible, before, outcome.DaysAdvanced)
	return r.user.Verify(action.Type, exp, planCode, action.CheckDates, after)
}

// verifyLedgerSide runs the administrative cross-check. Ledger records are
// fed by webhooks that can lag well behind the user API, so a failure here
// degrades to a warning instead of failing the case.
func (r *Runner) verifyLedgerSide(ctx context.Context, email string, action config.Action, outcome Outcome, trialEligible bool, before, after subscription.Snapshot) *VerificationResult {
	if outcome.ExpectedPayment == types.PaymentResultDeclined {
		return nil
	}
	if !r.ensureAdminSession(ctx) {
		return nil
	}

	plan, _ := r.resolvePlan(action, before)
	expectedStatus := r.expectation.ExpectedStatus(action.Type, plan, trialEligible, before, outcome.DaysAdvanced)

	ledgerResult := r.ledger.Verify(ctx, email, action.Type, expectedStatus, after)
	if !ledgerResult.Verified {
		r.logger.Warnw("ledger verification failed, non-blocking",
			"email", email,
			"message", ledgerResult.Message)
	}
	return ledgerResult
}

// resolvePlan finds the plan an action verifies against: the action's own
// plan for purchases, otherwise the plan established by an earlier step.
// Pre-existing subscriptions on provided accounts carry no symbolic key, so
// the captured numeric code is the fallback lookup.
func (r *Runner) resolvePlan(action config.Action, before subscription.Snapshot) (*subscription.PlanConfig, int) {
	key := action.PlanKey
	if key == "" {
		key = before.PlanKey
	}
	if key == "" && before.PlanCode != 0 {
		if name, plan, ok := r.catalog.ByCode(before.PlanCode); ok {
			r.logger.Debugw("resolved plan from captured code", "plan", name, "code", before.PlanCode)
			return &plan, plan.Code
		}
	}
	if key == "" {
		return nil, 0
	}
	plan, err := r.catalog.Get(key)
	if err != nil {
		r.logger.Warnw("plan not in catalog, verifying without plan context", "plan", key)
		return nil, 0
	}
	return &plan, plan.Code
}

func (r *Runner) ensureAdminSession(ctx context.Context) bool {
	if r.adminLoggedIn {
		return true
	}
	if r.cfg.Membership.AdminEmail == "" || r.cfg.Membership.AdminPassword == "" {
		r.logger.Warnw("admin credentials not configured, skipping ledger verification")
		return false
	}

	resp, err := r.membership.AdminLogin(ctx, r.cfg.Membership.AdminEmail, r.cfg.Membership.AdminPassword)
	if err != nil {
		r.logger.Errorw("admin login failed", "error", err)
		return false
	}
	if !resp.IsSuccess() {
		r.logger.Errorw("admin login rejected", "message", resp.Message)
		return false
	}
	r.adminLoggedIn = true
	return true
}

// setupUser prepares the account the test case runs as. A provided email is
// logged into; otherwise a fresh QA account is registered and its device
// serial chosen to produce the requested trial eligibility.
func (r *Runner) setupUser(ctx context.Context, tc TestCase) (string, error) {
	password := r.cfg.Run.Password

	if tc.UserEmail != "" {
		resp, err := r.membership.Login(ctx, tc.UserEmail, password)
		if err == nil && resp.IsSuccess() {
			return tc.UserEmail, nil
		}
		r.logger.Warnw("login with provided email failed, registering instead",
			"email", tc.UserEmail, "error", err)
	}

	email := tc.UserEmail
	if email == "" {
		email = types.GenerateQAEmail(tc.ID, r.cfg.Run.EmailDomain)
	}

	reg, err := r.membership.Register(ctx, membership.RegisterRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return "", err
	}
	if !reg.IsSuccess() {
		return "", ierr.NewError("registration failed").
			WithHint(reg.Message).
			Mark(ierr.ErrIntegration)
	}

	login, err := r.membership.Login(ctx, email, password)
	if err != nil {
		return "", err
	}
	if !login.IsSuccess() {
		return "", ierr.NewError("login failed after registration").
			WithHint(login.Message).
			Mark(ierr.ErrIntegration)
	}

	r.registerDeviceForTrial(ctx, tc.TrialEligible())
	return email, nil
}

// registerDeviceForTrial picks the device serial that produces the desired
// trial eligibility: a never-seen serial makes the account eligible, the
// known serial has already consumed its trial. Device registration failures
// are logged, not fatal; the backend may still apply a default.
func (r *Runner) registerDeviceForTrial(ctx context.Context, trialEligible bool) {
	now := time.Now()
	mac := fmt.Sprintf("AA:BB:CC:DD:EE:%02d", now.Second())

	var serial string
	if trialEligible {
		serial = r.cfg.Run.SerialPrefix + now.Format("20060102150405")
	} else {
		serial = r.cfg.Run.KnownTrialSerial
	}

	r.logger.Infow("registering device", "serial", serial, "trial_eligible", trialEligible)

	resp, err := r.membership.RegisterDevice(ctx, mac, serial)
	if err != nil {
		r.logger.Warnw("device registration failed", "error", err)
		return
	}
	if !resp.Success {
		r.logger.Warnw("device registration rejected", "message", resp.Message)
	}
}

// cleanup deletes the QA account according to the configured mode.
func (r *Runner) cleanup(ctx context.Context, result TestResult) {
	mode := r.cfg.Run.Cleanup
	if result.UserEmail == "" || mode == types.CleanupModeNever {
		return
	}
	if mode == types.CleanupModePassed && !result.Passed() {
		return
	}

	r.logger.Infow("cleaning up test account", "email", result.UserEmail)
	if _, err := r.membership.DeleteAccount(ctx); err != nil {
		r.logger.Warnw("account cleanup failed", "email", result.UserEmail, "error", err)
	}
}
