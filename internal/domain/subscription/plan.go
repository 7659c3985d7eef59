package subscription

import (
	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/types"
)

// PlanConfig describes one purchasable subscription type. Loaded once from
// configuration and treated as a read-only lookup.
type PlanConfig struct {
	Code           int                `mapstructure:"code" validate:"required"`
	Description    string             `mapstructure:"description"`
	DurationMonths int                `mapstructure:"duration_months" validate:"required,gt=0"`
	SupportsTrial  bool               `mapstructure:"supports_trial"`
	TrialDays      int                `mapstructure:"trial_period_days"`
	// Prices are keyed by lowercase currency code (usd, cad, jpy, ...).
	Prices map[string]float64 `mapstructure:"prices"`
}

// ExpectedStatus is the status a fresh purchase of this plan should land in,
// given the caller's trial eligibility.
func (p PlanConfig) ExpectedStatus(trialEligible bool) types.SubscriptionStatus {
	if p.SupportsTrial && trialEligible {
		return types.SubscriptionStatusTrial
	}
	return types.SubscriptionStatusActive
}

// Price returns the configured price for a currency.
func (p PlanConfig) Price(currency string) (float64, bool) {
	price, ok := p.Prices[currency]
	return price, ok
}

// Catalog is the read-only plan lookup keyed by symbolic plan name.
type Catalog struct {
	plans map[string]PlanConfig
}

func NewCatalog(plans map[string]PlanConfig) *Catalog {
	return &Catalog{plans: plans}
}

// Get resolves a symbolic plan name. An unknown key indicates a broken test
// definition and fails fast.
func (c *Catalog) Get(key string) (PlanConfig, error) {
	plan, ok := c.plans[key]
	if !ok {
		return PlanConfig{}, ierr.NewError("unknown subscription type").
			WithHintf("Subscription type %q is not in the plan catalog", key).
			WithReportableDetails(map[string]any{
				"configured_plans": c.Keys(),
			}).
			Mark(ierr.ErrConfiguration)
	}
	return plan, nil
}

// ByCode finds a plan by its numeric backend code.
func (c *Catalog) ByCode(code int) (string, PlanConfig, bool) {
	for key, plan := range c.plans {
		if plan.Code == code {
			return key, plan, true
		}
	}
	return "", PlanConfig{}, false
}

// Keys lists the configured plan names.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.plans))
	for key := range c.plans {
		keys = append(keys, key)
	}
	return keys
}
