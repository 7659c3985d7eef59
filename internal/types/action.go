package types

import (
	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/samber/lo"
)

// ActionType is the kind of step a test case can execute against the backends
type ActionType string

const (
	ActionTypePurchase    ActionType = "purchase"
	ActionTypeCancel      ActionType = "cancel"
	ActionTypeReactivate  ActionType = "reactivate"
	ActionTypeRefund      ActionType = "refund"
	ActionTypeAdvanceTime ActionType = "advance_time"
	ActionTypeVerify      ActionType = "verify"
)

func (a ActionType) String() string {
	return string(a)
}

func (a ActionType) Validate() error {
	allowed := []ActionType{
		ActionTypePurchase,
		ActionTypeCancel,
		ActionTypeReactivate,
		ActionTypeRefund,
		ActionTypeAdvanceTime,
		ActionTypeVerify,
	}

	if !lo.Contains(allowed, a) {
		return ierr.NewError("invalid action type").
			WithHintf("Action type %q is not supported", a).
			WithReportableDetails(map[string]any{
				"allowed_values": allowed,
				"provided_value": a,
			}).
			Mark(ierr.ErrConfiguration)
	}

	return nil
}

// ChangesPlan reports whether outcomes of this action must carry the plan key
// forward so that later steps verify against the correct plan.
func (a ActionType) ChangesPlan() bool {
	return a == ActionTypePurchase
}

// PaymentResult is the outcome a test card is configured to produce
type PaymentResult string

const (
	PaymentResultSuccess  PaymentResult = "success"
	PaymentResultDeclined PaymentResult = "declined"
)

func (r PaymentResult) Validate() error {
	if r != PaymentResultSuccess && r != PaymentResultDeclined {
		return ierr.NewError("invalid expected payment result").
			WithHintf("Expected payment result %q must be success or declined", r).
			Mark(ierr.ErrConfiguration)
	}
	return nil
}

// VerificationType identifies which read path produced a verification result
type VerificationType string

const (
	VerificationTypeUser     VerificationType = "user_api"
	VerificationTypeLedger   VerificationType = "ledger_api"
	VerificationTypeCheckout VerificationType = "checkout_page"
	VerificationTypeManual   VerificationType = "manual"
)

// CleanupMode controls whether QA user accounts are deleted after a test case
type CleanupMode string

const (
	CleanupModeNever  CleanupMode = "never"
	CleanupModePassed CleanupMode = "passed"
	CleanupModeAlways CleanupMode = "always"
)

func (m CleanupMode) Validate() error {
	allowed := []CleanupMode{CleanupModeNever, CleanupModePassed, CleanupModeAlways}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid cleanup mode").
			WithHintf("Cleanup mode %q must be one of never, passed, always", m).
			Mark(ierr.ErrConfiguration)
	}
	return nil
}

// TestStatus is the aggregate result of a test case
type TestStatus string

const (
	TestStatusPassed  TestStatus = "passed"
	TestStatusFailed  TestStatus = "failed"
	TestStatusError   TestStatus = "error"
	TestStatusSkipped TestStatus = "skipped"
)
