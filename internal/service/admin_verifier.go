package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vidinfra/subqa/internal/client/membership"
	"github.com/vidinfra/subqa/internal/domain/subscription"
	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

// AdminVerifier cross-checks the administrative ledger view against the
// user-visible state. Ledger records are written by payment webhooks that
// land seconds after the user API reflects a change, so lookups poll with
// exponential backoff instead of assuming the record is already there.
type AdminVerifier struct {
	membership *membership.Client
	logger     *logger.Logger

	pollInitialInterval time.Duration
	pollMaxElapsed      time.Duration
}

func NewAdminVerifier(m *membership.Client, log *logger.Logger) *AdminVerifier {
	return &AdminVerifier{
		membership:          m,
		logger:              log,
		pollInitialInterval: 2 * time.Second,
		pollMaxElapsed:      30 * time.Second,
	}
}

// Verify checks the ledger record for the user against the expected status
// and cross-references it with the user-visible snapshot.
func (v *AdminVerifier) Verify(
	ctx context.Context,
	email string,
	action types.ActionType,
	expectedStatus types.SubscriptionStatus,
	userState subscription.Snapshot,
) *VerificationResult {
	result := newVerificationResult(types.VerificationTypeLedger)

	record, found, err := v.pollForRecord(ctx, email)
	if err != nil {
		result.fail(fmt.Sprintf("ledger lookup failed: %v", err))
		return result
	}

	if !found {
		if action == types.ActionTypeRefund {
			result.Message = "no ledger record after refund"
			return result
		}
		result.fail(fmt.Sprintf("no ledger record for %s", email))
		return result
	}

	result.addCheck("status_code", Check{
		Passed:   types.SubscriptionStatus(record.Status) == expectedStatus,
		Expected: fmt.Sprintf("%d (%s)", expectedStatus, expectedStatus.Name()),
		Actual:   fmt.Sprintf("%d (%s)", record.Status, types.SubscriptionStatus(record.Status).Name()),
		Message: fmt.Sprintf("ledger status mismatch: expected %d (%s), got %d",
			expectedStatus, expectedStatus.Name(), record.Status),
	})

	// Web purchases must land as web-channel records. A different channel
	// means the checkout was attributed to the wrong sales path.
	result.addCheck("type_code", Check{
		Passed:   types.SubscriptionTypeCode(record.Type) == types.SubscriptionTypeWeb,
		Expected: fmt.Sprintf("%d (web)", types.SubscriptionTypeWeb),
		Actual:   fmt.Sprintf("%d (%s)", record.Type, types.SubscriptionTypeCode(record.Type).Name()),
		Message:  fmt.Sprintf("ledger channel mismatch: expected web, got %s", types.SubscriptionTypeCode(record.Type).Name()),
	})

	v.crossCheck(result, record, userState)

	if result.Verified {
		result.Message = "ledger record verified"
	} else {
		result.Message = strings.Join(result.Issues, "; ")
	}
	return result
}

// crossCheck asserts the ledger and user views describe the same
// subscription. Ledger dates may be null for pre-migration records; those
// skip the date comparison rather than failing it.
func (v *AdminVerifier) crossCheck(result *VerificationResult, record membership.AdminSubscription, userState subscription.Snapshot) {
	if !userState.Exists || userState.Err != "" {
		return
	}

	result.addCheck("status_consistency", Check{
		Passed:   types.SubscriptionStatus(record.Status) == userState.StatusCode,
		Expected: userState.StatusCode,
		Actual:   record.Status,
		Message: fmt.Sprintf("ledger and user status disagree: ledger=%d, user=%d",
			record.Status, userState.StatusCode),
	})

	v.crossCheckDate(result, "start_date_consistency", record.StartDate, userState.StartDate)
	v.crossCheckDate(result, "expire_date_consistency", record.ExpireDate, userState.ExpireDate)
}

func (v *AdminVerifier) crossCheckDate(result *VerificationResult, name string, ledgerValue *string, userValue time.Time) {
	if ledgerValue == nil {
		v.logger.Debugw("ledger record has no date, skipping cross-check", "check", name)
		return
	}

	ledgerDate, err := types.ParseAPITime(*ledgerValue)
	if err != nil {
		result.addCheck(name, Check{
			Passed:   false,
			Expected: types.FormatAPITime(userValue),
			Actual:   *ledgerValue,
			Message:  fmt.Sprintf("unparseable ledger date %q", *ledgerValue),
		})
		return
	}

	result.addCheck(name, Check{
		Passed:   types.WithinTolerance(ledgerDate, userValue, dateTolerance),
		Expected: types.FormatAPITime(userValue),
		Actual:   types.FormatAPITime(ledgerDate),
		Message: fmt.Sprintf("ledger and user dates disagree: ledger=%s, user=%s",
			types.FormatAPITime(ledgerDate), types.FormatAPITime(userValue)),
	})
}

// pollForRecord fetches the ledger list until a record for the email appears
// or the backoff budget runs out. Absence after the budget is a result, not
// an error: free and refunded users legitimately have no record.
func (v *AdminVerifier) pollForRecord(ctx context.Context, email string) (membership.AdminSubscription, bool, error) {
	var record membership.AdminSubscription
	found := false

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = v.pollInitialInterval
	policy.MaxElapsedTime = v.pollMaxElapsed

	notFound := ierr.NewError("ledger record not yet visible").Mark(ierr.ErrNotFound)

	operation := func() error {
		resp, err := v.membership.GetAdminSubscriptions(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		sub, ok := resp.ByEmail(email)
		if !ok {
			v.logger.Debugw("ledger record not found yet, retrying", "email", email)
			return notFound
		}
		record = sub
		found = true
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err != nil && !ierr.IsNotFound(err) {
		return membership.AdminSubscription{}, false, err
	}
	return record, found, nil
}
