package types

import (
	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the numeric status code reported by the membership API
type SubscriptionStatus int

const (
	SubscriptionStatusActive    SubscriptionStatus = 1
	SubscriptionStatusTrial     SubscriptionStatus = 3
	SubscriptionStatusCancelled SubscriptionStatus = 4
	SubscriptionStatusRefunded  SubscriptionStatus = 5
)

var subscriptionStatusNames = map[SubscriptionStatus]string{
	SubscriptionStatusActive:    "active",
	SubscriptionStatusTrial:     "trial",
	SubscriptionStatusCancelled: "cancelled",
	SubscriptionStatusRefunded:  "refunded",
}

// Name returns the human-readable status name, or "unknown" for
// codes the harness does not track.
func (s SubscriptionStatus) Name() string {
	if name, ok := subscriptionStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusActive,
		SubscriptionStatusTrial,
		SubscriptionStatusCancelled,
		SubscriptionStatusRefunded,
	}

	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHintf("Status code %d is not tracked by the harness", s).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// SubscriptionTypeCode is the sales-channel code on a subscription record
type SubscriptionTypeCode int

const (
	SubscriptionTypeInApp     SubscriptionTypeCode = 1
	SubscriptionTypeWeb       SubscriptionTypeCode = 2
	SubscriptionTypePromotion SubscriptionTypeCode = 3
)

func (t SubscriptionTypeCode) Name() string {
	switch t {
	case SubscriptionTypeInApp:
		return "in-app"
	case SubscriptionTypeWeb:
		return "web"
	case SubscriptionTypePromotion:
		return "promotion"
	default:
		return "unknown"
	}
}
