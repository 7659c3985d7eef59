// Package checkout talks to the browser-automation service that drives the
// hosted checkout page. The service is a black box: it loads the page in a
// real browser behind a country-pinned egress and reports what it saw.
package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/vidinfra/subqa/internal/config"
	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/httpclient"
	"github.com/vidinfra/subqa/internal/logger"
)

// PageDetails is what the automation service scraped off the checkout page.
// All amounts are formatted currency strings ("US$199.99", "¥29,800").
type PageDetails struct {
	ProductSummaryName        string `json:"productSummaryName"`
	ProductSummaryTotalAmount string `json:"productSummaryTotalAmount"`
	SubtotalAmount            string `json:"subtotalAmount"`
	TotalAmount               string `json:"totalAmount"`
	TrialAmount               string `json:"trialAmount"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		CheckoutDetails PageDetails `json:"checkoutDetails"`
	} `json:"data"`
}

// Card is the payment instrument handed to the automation service.
type Card struct {
	Number     string `json:"cardNumber"`
	Expiry     string `json:"cardExpiry"`
	CVC        string `json:"cardCvc"`
	HolderName string `json:"cardholderName"`
}

// PayResult reports whether the payment went through. A failed payment is a
// normal result (declined cards), not an error.
type PayResult struct {
	PaymentSucceeded bool
	Message          string
}

type payResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		PaymentSucceeded bool `json:"paymentSucceeded"`
	} `json:"data"`
}

// Client calls the checkout-automation service.
type Client struct {
	http   httpclient.Client
	cfg    config.CheckoutConfig
	logger *logger.Logger
}

func NewClient(http httpclient.Client, cfg config.CheckoutConfig, log *logger.Logger) *Client {
	return &Client{http: http, cfg: cfg, logger: log}
}

// VerifyPage loads the checkout page and returns the scraped details.
func (c *Client) VerifyPage(ctx context.Context, checkoutURL, currency, country string) (*PageDetails, error) {
	payload := map[string]any{
		"checkoutUrl": checkoutURL,
		"currency":    strings.ToLower(currency),
		"country":     strings.ToLower(country),
	}

	c.logger.Infow("verifying checkout page", "currency", currency, "country", country)

	var resp verifyResponse
	if err := c.post(ctx, "/api/checkout/verify", payload, c.cfg.VerifyTimeout, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, ierr.NewError("checkout page verification failed").
			WithHint(resp.Message).
			Mark(ierr.ErrIntegration)
	}
	return &resp.Data.CheckoutDetails, nil
}

// PayWithCard completes the checkout with the given card. The auth token and
// user payload are injected into the page's local storage so the checkout
// session is attributed to the right account.
func (c *Client) PayWithCard(ctx context.Context, checkoutURL string, card Card, currency, country, authToken string, userData map[string]any) (*PayResult, error) {
	payload := map[string]any{
		"checkoutUrl":    checkoutURL,
		"currency":       strings.ToUpper(currency),
		"country":        strings.ToLower(country),
		"cardNumber":     card.Number,
		"cardExpiry":     card.Expiry,
		"cardCvc":        card.CVC,
		"cardholderName": card.HolderName,
		"authToken":      authToken,
		"userData":       userData,
	}

	c.logger.Infow("completing payment", "currency", currency, "country", country)

	var resp payResponse
	if err := c.post(ctx, "/api/checkout/pay-card", payload, c.cfg.PayTimeout, &resp); err != nil {
		return nil, err
	}

	return &PayResult{
		PaymentSucceeded: resp.Data.PaymentSucceeded,
		Message:          resp.Message,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any, timeout time.Duration, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode request body").
			Mark(ierr.ErrSystem)
	}

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.cfg.ServiceURL + path,
		Body:    body,
		Timeout: timeout,
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return ierr.WithError(err).
			WithHintf("Malformed response from %s", path).
			Mark(ierr.ErrIntegration)
	}
	return nil
}
