package subscription

import (
	"time"

	"github.com/vidinfra/subqa/internal/types"
)

// Snapshot is a point-in-time read of a subscription's observable state.
// It is never mutated after construction; every action produces a fresh
// snapshot that replaces the previous one.
type Snapshot struct {
	// Exists is false for a free user (no subscription record at all).
	// When false, every other subscription field is zero.
	Exists bool

	SubscriptionID string
	PlanKey        string // symbolic plan name from the catalog, e.g. "1y_premium"
	PlanCode       int
	TypeCode       types.SubscriptionTypeCode
	StatusCode     types.SubscriptionStatus
	StatusName     string
	StartDate      time.Time
	ExpireDate     time.Time
	TrialDays      int // 0 when the subscription carries no trial period

	IsCancelled bool

	// DaysAdvanced is the cumulative simulated-time offset relative to the
	// original period start. It never decreases within a test case.
	DaysAdvanced int

	// Err records the capture failure that produced an error snapshot.
	Err string
}

// NewSnapshot builds a snapshot for an existing subscription record.
func NewSnapshot(id string, planCode int, typeCode types.SubscriptionTypeCode, status types.SubscriptionStatus, start, expire time.Time, trialDays, daysAdvanced int) Snapshot {
	return Snapshot{
		Exists:         true,
		SubscriptionID: id,
		PlanCode:       planCode,
		TypeCode:       typeCode,
		StatusCode:     status,
		StatusName:     status.Name(),
		StartDate:      start,
		ExpireDate:     expire,
		TrialDays:      trialDays,
		IsCancelled:    status == types.SubscriptionStatusCancelled,
		DaysAdvanced:   daysAdvanced,
	}
}

// FreeSnapshot represents a user with no subscription record. This is a
// valid state, not an error: refunded users and users who never purchased
// both look like this.
func FreeSnapshot(daysAdvanced int) Snapshot {
	return Snapshot{
		Exists:       false,
		StatusName:   "free",
		DaysAdvanced: daysAdvanced,
	}
}

// ErrorSnapshot records a capture failure without raising it. Callers must
// check Err explicitly; this keeps verification flows non-crashing when a
// backend is flaky.
func ErrorSnapshot(daysAdvanced int, err error) Snapshot {
	s := Snapshot{
		Exists:       false,
		StatusName:   "error",
		DaysAdvanced: daysAdvanced,
	}
	if err != nil {
		s.Err = err.Error()
	}
	return s
}

// WithPlanKey returns a copy carrying the symbolic plan name. The membership
// API only reports numeric codes; the key comes from the action that
// established the plan and is threaded forward by the orchestrator.
func (s Snapshot) WithPlanKey(key string) Snapshot {
	s.PlanKey = key
	return s
}

// WithDaysAdvanced returns a copy with the simulated-time offset increased
// by delta days. Negative deltas are ignored: the offset is monotonic.
func (s Snapshot) WithDaysAdvanced(delta int) Snapshot {
	if delta > 0 {
		s.DaysAdvanced += delta
	}
	return s
}

// FieldNames used for state-equality verification (declined-card checks).
const (
	FieldExists         = "exists"
	FieldSubscriptionID = "subscription_id"
	FieldPlanCode       = "plan_code"
	FieldStatusCode     = "status_code"
	FieldStartDate      = "start_date"
	FieldExpireDate     = "expire_date"
)

// EqualityFields is the default field set asserted unchanged by
// state-equality verification.
func EqualityFields() []string {
	return []string{
		FieldExists,
		FieldSubscriptionID,
		FieldPlanCode,
		FieldStatusCode,
		FieldStartDate,
		FieldExpireDate,
	}
}

// Field returns the comparable value of a named snapshot field.
func (s Snapshot) Field(name string) any {
	switch name {
	case FieldExists:
		return s.Exists
	case FieldSubscriptionID:
		return s.SubscriptionID
	case FieldPlanCode:
		return s.PlanCode
	case FieldStatusCode:
		return s.StatusCode
	case FieldStartDate:
		return s.StartDate
	case FieldExpireDate:
		return s.ExpireDate
	default:
		return nil
	}
}
