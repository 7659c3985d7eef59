package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

// StepResult records one executed step with its verifications.
type StepResult struct {
	Action  string `json:"action"`
	Param   string `json:"param,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`

	UserVerification   *VerificationResult `json:"user_verification,omitempty"`
	LedgerVerification *VerificationResult `json:"ledger_verification,omitempty"`
	CheckoutPage       *VerificationResult `json:"checkout_page,omitempty"`
}

// TestResult is the aggregate outcome of one test case.
type TestResult struct {
	TestID        string           `json:"test_id"`
	TestName      string           `json:"test_name"`
	Status        types.TestStatus `json:"status"`
	UserEmail     string           `json:"user_email,omitempty"`
	Country       string           `json:"country,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	TrialEligible bool             `json:"trial_eligible"`
	Steps         []StepResult     `json:"steps"`
	Error         string           `json:"error,omitempty"`
	StartedAt     time.Time        `json:"started_at"`
	DurationSec   float64          `json:"duration_seconds"`
}

// Passed reports whether the case ended in the passed status.
func (r TestResult) Passed() bool {
	return r.Status == types.TestStatusPassed
}

// Reporter writes run reports to the report directory. Each run produces a
// machine-readable JSON file and a human-readable text summary.
type Reporter struct {
	dir    string
	logger *logger.Logger
}

func NewReporter(dir string, log *logger.Logger) *Reporter {
	return &Reporter{dir: dir, logger: log}
}

// Write renders both report files and returns their paths.
func (r *Reporter) Write(results []TestResult) (jsonPath, textPath string, err error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", "", ierr.WithError(err).
			WithHintf("Report directory %s could not be created", r.dir).
			Mark(ierr.ErrSystem)
	}

	stamp := time.Now().Format("20060102_150405")
	jsonPath = filepath.Join(r.dir, fmt.Sprintf("report_%s.json", stamp))
	textPath = filepath.Join(r.dir, fmt.Sprintf("report_%s.txt", stamp))

	// Ties the report to backend-side records created by the same run
	runID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RUN)

	payload, err := json.MarshalIndent(map[string]any{
		"run_id":       runID,
		"generated_at": time.Now().UTC(),
		"summary":      summarize(results),
		"results":      results,
	}, "", "  ")
	if err != nil {
		return "", "", ierr.WithError(err).
			WithHint("Report serialization failed").
			Mark(ierr.ErrSystem)
	}
	if err := os.WriteFile(jsonPath, payload, 0o644); err != nil {
		return "", "", ierr.WithError(err).
			WithHintf("Report file %s could not be written", jsonPath).
			Mark(ierr.ErrSystem)
	}

	if err := os.WriteFile(textPath, []byte(r.renderText(results)), 0o644); err != nil {
		return "", "", ierr.WithError(err).
			WithHintf("Report file %s could not be written", textPath).
			Mark(ierr.ErrSystem)
	}

	r.logger.Infow("reports written", "json", jsonPath, "text", textPath)
	return jsonPath, textPath, nil
}

// Summary is the aggregate counts block of a report.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

func summarize(results []TestResult) Summary {
	return Summary{
		Total:   len(results),
		Passed:  lo.CountBy(results, func(r TestResult) bool { return r.Status == types.TestStatusPassed }),
		Failed:  lo.CountBy(results, func(r TestResult) bool { return r.Status == types.TestStatusFailed }),
		Errored: lo.CountBy(results, func(r TestResult) bool { return r.Status == types.TestStatusError }),
		Skipped: lo.CountBy(results, func(r TestResult) bool { return r.Status == types.TestStatusSkipped }),
	}
}

func (r *Reporter) renderText(results []TestResult) string {
	var b strings.Builder
	summary := summarize(results)

	fmt.Fprintf(&b, "Subscription QA Run - %s\n", time.Now().Format(time.RFC1123))
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 70))
	fmt.Fprintf(&b, "Total: %d  Passed: %d  Failed: %d  Errored: %d  Skipped: %d\n\n",
		summary.Total, summary.Passed, summary.Failed, summary.Errored, summary.Skipped)

	for _, result := range results {
		fmt.Fprintf(&b, "[%s] %s - %s (%.1fs)\n",
			strings.ToUpper(string(result.Status)), result.TestID, result.TestName, result.DurationSec)
		if result.UserEmail != "" {
			fmt.Fprintf(&b, "  user: %s  country: %s  currency: %s  trial: %t\n",
				result.UserEmail, strings.ToUpper(result.Country), strings.ToUpper(result.Currency), result.TrialEligible)
		}
		if result.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", result.Error)
		}
		for i, step := range result.Steps {
			mark := "ok"
			if !step.Success {
				mark = "FAILED"
			}
			fmt.Fprintf(&b, "  %d. %s [%s] %s\n", i+1, step.Action, mark, step.Message)
			for _, v := range []*VerificationResult{step.CheckoutPage, step.UserVerification, step.LedgerVerification} {
				if v == nil {
					continue
				}
				fmt.Fprintf(&b, "     %s: verified=%t %s\n", v.Type, v.Verified, v.Message)
				for _, issue := range v.Issues {
					fmt.Fprintf(&b, "       - %s\n", issue)
				}
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// LogSummary prints the per-case verdicts and totals through the logger.
func (r *Reporter) LogSummary(results []TestResult) {
	summary := summarize(results)
	for _, result := range results {
		if result.Passed() {
			r.logger.Infow("test passed", "test_id", result.TestID, "duration_sec", result.DurationSec)
		} else {
			r.logger.Errorw("test did not pass",
				"test_id", result.TestID,
				"status", result.Status,
				"error", result.Error)
		}
	}
	r.logger.Infow("run complete",
		"total", summary.Total,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errored", summary.Errored,
		"skipped", summary.Skipped)
}
