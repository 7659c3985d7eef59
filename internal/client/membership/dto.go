package membership

import (
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Token   string         `json:"token"`
	User    map[string]any `json:"user"`
}

func (r *AuthResponse) IsSuccess() bool {
	return r.Success
}

// SimpleResponse covers endpoints that only report success.
type SimpleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Plan is one entry of the web plan list.
type Plan struct {
	IsEligible     bool    `json:"isEligible"`
	Code           int     `json:"code"`
	Reason         *string `json:"reason,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	MonthlyPayment string  `json:"monthly_payment,omitempty"`
	TrialDays      *int    `json:"trial_period_days,omitempty"`
}

// WebPlansResponse is the plan list keyed by symbolic plan name.
type WebPlansResponse struct {
	Success bool            `json:"success"`
	Plans   map[string]Plan `json:"plans"`
}

// EligiblePlanCodes returns the codes of plans the caller may purchase.
func (r *WebPlansResponse) EligiblePlanCodes() []int {
	codes := make([]int, 0, len(r.Plans))
	for _, plan := range r.Plans {
		if plan.IsEligible {
			codes = append(codes, plan.Code)
		}
	}
	sort.Ints(codes)
	return codes
}

// IsEligible reports whether a plan code is purchasable for the caller.
func (r *WebPlansResponse) IsEligible(code int) bool {
	return lo.Contains(r.EligiblePlanCodes(), code)
}

// CheckoutSession carries the hosted checkout URL.
type CheckoutSession struct {
	URL string `json:"url"`
}

// CreateSubscriptionResponse is returned by subscription creation.
type CreateSubscriptionResponse struct {
	Success bool            `json:"success"`
	Session CheckoutSession `json:"session"`
}

// CheckoutURL returns the hosted checkout URL, empty when creation failed.
func (r *CreateSubscriptionResponse) CheckoutURL() string {
	if !r.Success {
		return ""
	}
	return r.Session.URL
}

// SubscriptionPackage is the plan payload nested in a subscription record.
// trial_period_days arrives as a string and only for trial subscriptions.
type SubscriptionPackage struct {
	Code      int    `json:"code"`
	TrialDays string `json:"trial_period_days,omitempty"`
}

// TrialDaysInt parses the trial period, returning 0 when absent or malformed.
func (p SubscriptionPackage) TrialDaysInt() int {
	if p.TrialDays == "" {
		return 0
	}
	days, err := strconv.Atoi(strings.TrimSpace(p.TrialDays))
	if err != nil {
		return 0
	}
	return days
}

type SubscriptionData struct {
	Package SubscriptionPackage `json:"package"`
}

// Subscription is one record from the user-scoped subscription list.
type Subscription struct {
	ID         int              `json:"id"`
	Type       int              `json:"type"`
	Status     int              `json:"status"`
	Data       SubscriptionData `json:"data"`
	StartDate  string           `json:"startDate"`
	ExpireDate string           `json:"expireDate"`
}

// SubscriptionsResponse is the user-scoped subscription list.
type SubscriptionsResponse struct {
	Success       bool           `json:"success"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// HasSubscription reports whether any record is present. Zero records is a
// valid state (free user), not an error.
func (r *SubscriptionsResponse) HasSubscription() bool {
	return len(r.Subscriptions) > 0
}

// Latest returns the most recently started subscription.
func (r *SubscriptionsResponse) Latest() (Subscription, bool) {
	if len(r.Subscriptions) == 0 {
		return Subscription{}, false
	}
	subs := make([]Subscription, len(r.Subscriptions))
	copy(subs, r.Subscriptions)
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].StartDate > subs[j].StartDate
	})
	return subs[0], true
}

// Earliest returns the oldest subscription; its start date anchors the
// simulated clock.
func (r *SubscriptionsResponse) Earliest() (Subscription, bool) {
	if len(r.Subscriptions) == 0 {
		return Subscription{}, false
	}
	subs := make([]Subscription, len(r.Subscriptions))
	copy(subs, r.Subscriptions)
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].StartDate < subs[j].StartDate
	})
	return subs[0], true
}

// AdminSubscription is one record from the administrative/ledger view.
// Dates may be null for records created before the ledger migration.
type AdminSubscription struct {
	ID         int     `json:"id"`
	UserID     int     `json:"userId"`
	Email      string  `json:"email"`
	Type       int     `json:"type"`
	Status     int     `json:"status"`
	StartDate  *string `json:"startDate"`
	ExpireDate *string `json:"expireDate"`
}

// AdminSubscriptionsResponse is the administrative subscription list.
type AdminSubscriptionsResponse struct {
	Success       bool                `json:"success"`
	Subscriptions []AdminSubscription `json:"subscriptions"`
}

// ByEmail finds the record for a user, matching case-insensitively.
func (r *AdminSubscriptionsResponse) ByEmail(email string) (AdminSubscription, bool) {
	return lo.Find(r.Subscriptions, func(sub AdminSubscription) bool {
		return strings.EqualFold(sub.Email, email)
	})
}
