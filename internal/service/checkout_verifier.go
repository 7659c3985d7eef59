package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vidinfra/subqa/internal/client/checkout"
	"github.com/vidinfra/subqa/internal/domain/subscription"
	"github.com/vidinfra/subqa/internal/logger"
	"github.com/vidinfra/subqa/internal/types"
)

// priceTolerance absorbs float rounding in configured prices. Amounts that
// differ by more than a cent are real mismatches.
var priceTolerance = decimal.NewFromFloat(0.01)

// currencySymbols maps display prefixes to currency codes. Order matters:
// "US$" must match before the bare "$" fallback.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"US$", "usd"},
	{"CA$", "cad"},
	{"A$", "aud"},
	{"S$", "sgd"},
	{"$", "usd"},
	{"€", "eur"},
	{"£", "gbp"},
	{"¥", "jpy"},
}

// CheckoutVerifier checks the scraped checkout page against the plan catalog:
// displayed prices, currency, product name and trial messaging.
type CheckoutVerifier struct {
	catalog *subscription.Catalog
	logger  *logger.Logger
}

func NewCheckoutVerifier(catalog *subscription.Catalog, log *logger.Logger) *CheckoutVerifier {
	return &CheckoutVerifier{catalog: catalog, logger: log}
}

// Verify runs every page check and collects all failures. A page with three
// wrong fields reports three issues, not just the first.
func (v *CheckoutVerifier) Verify(details *checkout.PageDetails, planKey, currency string, trialEligible bool) *VerificationResult {
	result := newVerificationResult(types.VerificationTypeCheckout)

	plan, err := v.catalog.Get(planKey)
	if err != nil {
		result.fail(fmt.Sprintf("unknown subscription type %q", planKey))
		return result
	}

	currency = strings.ToLower(currency)
	expectedPrice, ok := plan.Price(currency)
	if !ok {
		result.fail(fmt.Sprintf("no price configured for currency %s", strings.ToUpper(currency)))
		return result
	}
	expected := decimal.NewFromFloat(expectedPrice)

	totalCurrency := extractCurrency(details.TotalAmount, currency)
	subtotalCurrency := extractCurrency(details.SubtotalAmount, currency)

	result.addCheck("currency", Check{
		Passed:   totalCurrency == currency,
		Expected: strings.ToUpper(currency),
		Actual:   strings.ToUpper(totalCurrency),
		Message:  fmt.Sprintf("expected %s, got %s", strings.ToUpper(currency), strings.ToUpper(totalCurrency)),
	})

	v.checkAmount(result, "subtotal_amount", details.SubtotalAmount, expected)
	v.checkAmount(result, "total_amount", details.TotalAmount, expected)

	// Stripe prefixes trial products with "Try ", so containment is the
	// right assertion, not equality.
	result.addCheck("product_name", Check{
		Passed:   strings.Contains(details.ProductSummaryName, plan.Description),
		Expected: fmt.Sprintf("contains %q", plan.Description),
		Actual:   details.ProductSummaryName,
		Message:  fmt.Sprintf("product name %q does not contain %q", details.ProductSummaryName, plan.Description),
	})

	trialShown := plan.SupportsTrial && trialEligible

	consistent := []string{totalCurrency, subtotalCurrency}
	if trialShown {
		consistent = append(consistent, extractCurrency(details.TrialAmount, currency))
	}
	result.addCheck("currency_consistency", Check{
		Passed:   allEqual(consistent),
		Expected: "all amount fields use the same currency",
		Actual:   strings.ToUpper(strings.Join(consistent, ", ")),
		Message:  fmt.Sprintf("mixed currencies across amount fields: %s", strings.ToUpper(strings.Join(consistent, ", "))),
	})

	if trialShown {
		expectedTrialText := fmt.Sprintf("%d days free", plan.TrialDays)
		result.addCheck("trial_info", Check{
			Passed:   strings.Contains(strings.ToLower(details.ProductSummaryTotalAmount), expectedTrialText),
			Expected: expectedTrialText,
			Actual:   details.ProductSummaryTotalAmount,
			Message:  fmt.Sprintf("trial text %q missing from %q", expectedTrialText, details.ProductSummaryTotalAmount),
		})

		result.addCheck("trial_amount", Check{
			Passed:   strings.Contains(details.TrialAmount, "0"),
			Expected: "$0.00",
			Actual:   details.TrialAmount,
			Message:  fmt.Sprintf("trial amount should be zero, got %q", details.TrialAmount),
		})
	}

	if result.Verified {
		result.Message = "checkout page verified"
	} else {
		result.Message = strings.Join(result.Issues, "; ")
	}
	return result
}

func (v *CheckoutVerifier) checkAmount(result *VerificationResult, name, amount string, expected decimal.Decimal) {
	actual, ok := extractPrice(amount)
	if !ok {
		result.addCheck(name, Check{
			Passed:   false,
			Expected: expected.String(),
			Message:  fmt.Sprintf("could not extract a price from %q", amount),
		})
		return
	}

	result.addCheck(name, Check{
		Passed:   actual.Sub(expected).Abs().LessThanOrEqual(priceTolerance),
		Expected: expected.String(),
		Actual:   actual.String(),
		Message:  fmt.Sprintf("expected %s, got %s", expected, actual),
	})
}

// extractCurrency resolves the currency code from a displayed amount by its
// symbol prefix, falling back to the expected code when no symbol matches
// (some locales render amounts without one).
func extractCurrency(amount, fallback string) string {
	if amount == "" {
		return fallback
	}
	for _, entry := range currencySymbols {
		if strings.Contains(amount, entry.symbol) {
			return entry.code
		}
	}
	return fallback
}

// extractPrice pulls the numeric value out of a formatted amount string such
// as "CA$249.99" or "¥29,800".
func extractPrice(amount string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range amount {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func allEqual(values []string) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
