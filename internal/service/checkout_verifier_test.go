package service

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vidinfra/subqa/internal/client/checkout"
	"github.com/vidinfra/subqa/internal/domain/subscription"
	"github.com/vidinfra/subqa/internal/logger"
)

type CheckoutVerifierSuite struct {
	suite.Suite
	verifier *CheckoutVerifier
}

func TestCheckoutVerifier(t *testing.T) {
	suite.Run(t, new(CheckoutVerifierSuite))
}

func (s *CheckoutVerifierSuite) SetupTest() {
	catalog := subscription.NewCatalog(map[string]subscription.PlanConfig{
		"1y_premium": {
			Code:           16,
			Description:    "Premium Membership",
			DurationMonths: 12,
			SupportsTrial:  true,
			TrialDays:      45,
			Prices: map[string]float64{
				"usd": 199.99,
				"cad": 249.99,
				"jpy": 29800,
			},
		},
		"1y_basic": {
			Code:           14,
			Description:    "Basic Membership",
			DurationMonths: 12,
			Prices:         map[string]float64{"usd": 99.99},
		},
	})
	s.verifier = NewCheckoutVerifier(catalog, logger.NewNopLogger())
}

func (s *CheckoutVerifierSuite) TestTrialPageVerifies() {
	details := &checkout.PageDetails{
		ProductSummaryName:        "Try Premium Membership",
		ProductSummaryTotalAmount: "45 days free",
		SubtotalAmount:            "US$199.99",
		TotalAmount:               "US$199.99",
		TrialAmount:               "US$0.00",
	}

	result := s.verifier.Verify(details, "1y_premium", "usd", true)

	s.True(result.Verified, result.Message)
	s.True(result.Checks["currency"].Passed)
	s.True(result.Checks["subtotal_amount"].Passed)
	s.True(result.Checks["total_amount"].Passed)
	s.True(result.Checks["product_name"].Passed)
	s.True(result.Checks["trial_info"].Passed)
	s.True(result.Checks["trial_amount"].Passed)
	s.True(result.Checks["currency_consistency"].Passed)
}

func (s *CheckoutVerifierSuite) TestNonTrialPageSkipsTrialChecks() {
	details := &checkout.PageDetails{
		ProductSummaryName: "Basic Membership",
		SubtotalAmount:     "US$99.99",
		TotalAmount:        "US$99.99",
	}

	result := s.verifier.Verify(details, "1y_basic", "usd", true)

	s.True(result.Verified, result.Message)
	s.NotContains(result.Checks, "trial_info")
	s.NotContains(result.Checks, "trial_amount")
}

func (s *CheckoutVerifierSuite) TestCollectsEveryFailure() {
	details := &checkout.PageDetails{
		ProductSummaryName:        "Some Other Product",
		ProductSummaryTotalAmount: "",
		SubtotalAmount:            "CA$249.99",
		TotalAmount:               "CA$249.99",
		TrialAmount:               "CA$0.00",
	}

	result := s.verifier.Verify(details, "1y_premium", "usd", true)

	s.False(result.Verified)
	s.False(result.Checks["currency"].Passed)
	s.False(result.Checks["subtotal_amount"].Passed)
	s.False(result.Checks["total_amount"].Passed)
	s.False(result.Checks["product_name"].Passed)
	s.False(result.Checks["trial_info"].Passed)
	s.GreaterOrEqual(len(result.Issues), 5)
}

func (s *CheckoutVerifierSuite) TestYenAmountsWithThousandsSeparator() {
	details := &checkout.PageDetails{
		ProductSummaryName: "Premium Membership",
		SubtotalAmount:     "¥29,800",
		TotalAmount:        "¥29,800",
	}

	result := s.verifier.Verify(details, "1y_premium", "jpy", false)

	s.True(result.Verified, result.Message)
}

func (s *CheckoutVerifierSuite) TestPriceOffByMoreThanTolerance() {
	details := &checkout.PageDetails{
		ProductSummaryName: "Premium Membership",
		SubtotalAmount:     "US$199.99",
		TotalAmount:        "US$200.49",
	}

	result := s.verifier.Verify(details, "1y_premium", "usd", false)

	s.False(result.Verified)
	s.True(result.Checks["subtotal_amount"].Passed)
	s.False(result.Checks["total_amount"].Passed)
}

func (s *CheckoutVerifierSuite) TestInconsistentCurrencies() {
	details := &checkout.PageDetails{
		ProductSummaryName: "Premium Membership",
		SubtotalAmount:     "US$199.99",
		TotalAmount:        "US$199.99",
	}

	result := s.verifier.Verify(details, "1y_premium", "usd", false)
	s.True(result.Checks["currency_consistency"].Passed)

	details.SubtotalAmount = "CA$199.99"
	result = s.verifier.Verify(details, "1y_premium", "usd", false)
	s.False(result.Checks["currency_consistency"].Passed)
}

func (s *CheckoutVerifierSuite) TestUnknownPlanFailsFast() {
	result := s.verifier.Verify(&checkout.PageDetails{}, "lifetime_gold", "usd", false)

	s.False(result.Verified)
	s.Empty(result.Checks)
}

func (s *CheckoutVerifierSuite) TestMissingPriceForCurrency() {
	result := s.verifier.Verify(&checkout.PageDetails{}, "1y_basic", "eur", false)

	s.False(result.Verified)
	s.Contains(result.Message, "EUR")
}

func (s *CheckoutVerifierSuite) TestExtractCurrencyPrefersLongestSymbol() {
	s.Equal("cad", extractCurrency("CA$249.99", "usd"))
	s.Equal("aud", extractCurrency("A$299.99", "usd"))
	s.Equal("sgd", extractCurrency("S$279.99", "usd"))
	s.Equal("usd", extractCurrency("US$199.99", "eur"))
	s.Equal("usd", extractCurrency("$199.99", "eur"))
	s.Equal("jpy", extractCurrency("¥29,800", "usd"))
	s.Equal("eur", extractCurrency("199,99", "eur"))
}
