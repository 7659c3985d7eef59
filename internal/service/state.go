package service

import (
	"context"
	"strconv"
	"time"

	"github.com/vidinfra/subqa/internal/client/membership"
	"github.com/vidinfra/subqa/internal/domain/subscription"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

// dateTolerance absorbs clock skew between the harness and the backends.
const dateTolerance = 60 * time.Second

// CaptureService reads the user's current subscription state from the
// membership API and turns it into a snapshot.
type CaptureService struct {
	membership *membership.Client
	logger     *logger.Logger
}

func NewCaptureService(m *membership.Client, log *logger.Logger) *CaptureService {
	return &CaptureService{membership: m, logger: log}
}

// CurrentState captures the subscription state as seen at the simulated
// instant. It never returns an error: capture failures produce an error
// snapshot so verification can report them instead of crashing the run.
func (s *CaptureService) CurrentState(ctx context.Context, daysAdvanced int) subscription.Snapshot {
	resp, err := s.membership.GetSubscriptions(ctx)
	if err != nil {
		s.logger.Errorw("failed to fetch subscriptions", "error", err)
		return subscription.ErrorSnapshot(daysAdvanced, err)
	}

	if !resp.HasSubscription() {
		return subscription.FreeSnapshot(daysAdvanced)
	}

	record, ok := s.selectAtSimulatedTime(resp, daysAdvanced)
	if !ok {
		latest, _ := resp.Latest()
		s.logger.Warnw("no subscription interval contains the simulated instant, using latest",
			"records", len(resp.Subscriptions),
			"days_advanced", daysAdvanced)
		record = latest
	}

	start, err := types.ParseAPITime(record.StartDate)
	if err != nil {
		s.logger.Errorw("unparseable start date", "value", record.StartDate, "error", err)
		return subscription.ErrorSnapshot(daysAdvanced, err)
	}
	expire, err := types.ParseAPITime(record.ExpireDate)
	if err != nil {
		s.logger.Errorw("unparseable expire date", "value", record.ExpireDate, "error", err)
		return subscription.ErrorSnapshot(daysAdvanced, err)
	}

	snap := subscription.NewSnapshot(
		strconv.Itoa(record.ID),
		record.Data.Package.Code,
		types.SubscriptionTypeCode(record.Type),
		types.SubscriptionStatus(record.Status),
		start,
		expire,
		record.Data.Package.TrialDaysInt(),
		daysAdvanced,
	)

	s.logger.Debugw("captured subscription state",
		"subscription_id", snap.SubscriptionID,
		"plan_code", snap.PlanCode,
		"status", snap.StatusName,
		"start", types.FormatAPITime(snap.StartDate),
		"expire", types.FormatAPITime(snap.ExpireDate))

	return snap
}

// selectAtSimulatedTime picks the record whose billing period contains the
// simulated instant. After a boundary-crossing time advance the ledger holds
// both the expired period and its renewal; the renewal is the one whose
// interval contains the simulated clock. The simulated clock is anchored to
// the earliest record so the offset composes across multiple advances.
// Without time advancement the most recently started record is current and
// interval math would resolve to the oldest one, so it is skipped entirely.
func (s *CaptureService) selectAtSimulatedTime(resp *membership.SubscriptionsResponse, daysAdvanced int) (membership.Subscription, bool) {
	if daysAdvanced == 0 || len(resp.Subscriptions) == 1 {
		return resp.Latest()
	}

	earliest, ok := resp.Earliest()
	if !ok {
		return membership.Subscription{}, false
	}

	anchor, err := types.ParseAPITime(earliest.StartDate)
	if err != nil {
		return membership.Subscription{}, false
	}
	simulated := types.SimulatedNow(anchor, daysAdvanced)

	for _, record := range resp.Subscriptions {
		start, err := types.ParseAPITime(record.StartDate)
		if err != nil {
			continue
		}
		expire, err := types.ParseAPITime(record.ExpireDate)
		if err != nil {
			continue
		}
		if !simulated.Before(start) && simulated.Before(expire) {
			return record, true
		}
	}
	return membership.Subscription{}, false
}

// StatesUnchanged compares two snapshots over the given fields and returns
// the names of fields that differ. Dates agree when within tolerance.
func StatesUnchanged(before, after subscription.Snapshot, fields []string) (bool, []string) {
	var changed []string
	for _, name := range fields {
		if !fieldUnchanged(before, after, name) {
			changed = append(changed, name)
		}
	}
	return len(changed) == 0, changed
}

func fieldUnchanged(before, after subscription.Snapshot, name string) bool {
	bv := before.Field(name)
	av := after.Field(name)

	if bt, ok := bv.(time.Time); ok {
		at, _ := av.(time.Time)
		return types.WithinTolerance(bt, at, dateTolerance)
	}
	return bv == av
}
