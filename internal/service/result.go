package service

import (
	"time"

	"github.com/vidinfra/subqa/internal/types"
)

// Expectation is the predicted post-action subscription state. It is computed
// before the action executes and compared against captured state afterwards.
type Expectation struct {
	ExpectedStatusCode types.SubscriptionStatus
	ExpectedStatusName string
	CheckTrialPeriod   bool
	TrialDurationDays  int
	ExpectedStartDate  time.Time
	ExpectedExpireDate time.Time
	HasExpectedDates   bool

	// Duration of the billing period, verified from the captured dates
	// alone when there is no prior state to project exact dates from.
	CheckDuration          bool
	ExpectedDurationMonths int
}

// Outcome reports what an executed action did. A failed action is a normal
// outcome, not an error; Err carries the underlying cause when there is one.
type Outcome struct {
	Success       bool
	Message       string
	PlanKey       string
	DaysRequested int
	DaysAdvanced  int

	// ExpectedPayment is set on purchase outcomes. A declined expectation
	// switches post-action verification to state-equality mode.
	ExpectedPayment types.PaymentResult

	// Checkout carries the page verification performed during a purchase.
	Checkout *VerificationResult

	Err error
}

// Check is a single expected-vs-actual field comparison.
type Check struct {
	Passed   bool   `json:"passed"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Message  string `json:"message,omitempty"`
}

// VerificationResult aggregates all checks of one verification pass. Every
// check runs even after the first failure so a report shows the whole
// mismatch surface at once.
type VerificationResult struct {
	Verified bool                   `json:"verified"`
	Message  string                 `json:"message,omitempty"`
	Type     types.VerificationType `json:"type"`
	Checks   map[string]Check       `json:"checks,omitempty"`
	Issues   []string               `json:"issues,omitempty"`
}

func newVerificationResult(vt types.VerificationType) *VerificationResult {
	return &VerificationResult{
		Verified: true,
		Type:     vt,
		Checks:   make(map[string]Check),
	}
}

func (r *VerificationResult) addCheck(name string, c Check) {
	r.Checks[name] = c
	if !c.Passed {
		r.Verified = false
		r.Issues = append(r.Issues, name+": "+c.Message)
	}
}

func (r *VerificationResult) fail(message string) {
	r.Verified = false
	r.Message = message
	r.Issues = append(r.Issues, message)
}
