package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	gocache "github.com/patrickmn/go-cache"
	"github.com/vidinfra/subqa/internal/config"
	ierr "github.com/vidinfra/subqa/internal/errors"
	"github.com/vidinfra/subqa/internal/httpclient"
	"github.com/vidinfra/subqa/internal/logger"
)

const (
	sessionTokenKey      = "auth_token"
	sessionUserKey       = "user_data"
	sessionAdminTokenKey = "admin_token"
)

// Client talks to the membership/licensing API. The session cache replaces
// the usual process-global token store: one Client is constructed per run
// and injected wherever the session is needed.
type Client struct {
	http    httpclient.Client
	baseURL string
	session *gocache.Cache
	logger  *logger.Logger
}

func NewClient(http httpclient.Client, cfg config.MembershipConfig, log *logger.Logger) *Client {
	return &Client{
		http:    http,
		baseURL: cfg.BaseURL,
		session: gocache.New(gocache.NoExpiration, 0),
		logger:  log,
	}
}

// AuthToken returns the cached session token from the last login.
func (c *Client) AuthToken() (string, error) {
	if token, ok := c.session.Get(sessionTokenKey); ok {
		return token.(string), nil
	}
	return "", ierr.NewError("no auth token").
		WithHint("Login must succeed before authenticated calls").
		Mark(ierr.ErrValidation)
}

// UserData returns the cached user payload from the last login.
func (c *Client) UserData() (map[string]any, error) {
	if user, ok := c.session.Get(sessionUserKey); ok {
		return user.(map[string]any), nil
	}
	return nil, ierr.NewError("no user data").
		WithHint("Login must succeed before authenticated calls").
		Mark(ierr.ErrValidation)
}

// UserEmail returns the email of the logged-in user.
func (c *Client) UserEmail() string {
	user, err := c.UserData()
	if err != nil {
		return ""
	}
	if email, ok := user["email"].(string); ok {
		return email
	}
	return ""
}

// RegisterRequest carries the fields the registration endpoint needs beyond
// the QA defaults.
type RegisterRequest struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if req.FirstName == "" {
		req.FirstName = "Test"
	}
	if req.LastName == "" {
		req.LastName = "User"
	}

	body := map[string]any{
		"email":                req.Email,
		"firstName":            req.FirstName,
		"lastName":             req.LastName,
		"password":             req.Password,
		"passwordConfirmation": req.Password,
		"birthDate":            "1990-01-01",
		"country":              1,
	}

	c.logger.Infow("registering user", "email", req.Email)

	var resp AuthResponse
	if err := c.post(ctx, "/auth/register", body, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and caches the session token and user payload.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}

	c.logger.Infow("logging in", "email", email)

	var resp AuthResponse
	if err := c.post(ctx, "/auth/login", body, false, &resp); err != nil {
		return nil, err
	}

	if resp.IsSuccess() {
		c.session.Set(sessionTokenKey, resp.Token, gocache.NoExpiration)
		c.session.Set(sessionUserKey, resp.User, gocache.NoExpiration)
	}
	return &resp, nil
}

// AdminLogin authenticates against the administrative endpoint and caches
// the admin token separately from the user session.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}

	c.logger.Infow("logging in admin", "email", email)

	var resp AuthResponse
	if err := c.post(ctx, "/admin/auth/login", body, false, &resp); err != nil {
		return nil, err
	}

	if resp.IsSuccess() {
		c.session.Set(sessionAdminTokenKey, resp.Token, gocache.NoExpiration)
	}
	return &resp, nil
}

// RegisterDevice registers a device for the authenticated user. The serial
// drives the backend's trial-eligibility decision.
func (c *Client) RegisterDevice(ctx context.Context, mac, serial string) (*SimpleResponse, error) {
	body := map[string]any{
		"registeredMac":    mac,
		"registeredSerial": serial,
	}

	c.logger.Infow("registering device", "serial", serial)

	var resp SimpleResponse
	if err := c.post(ctx, "/user/registeredDevice", body, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetWebPlans fetches the purchasable plan list for a country.
func (c *Client) GetWebPlans(ctx context.Context, country string) (*WebPlansResponse, error) {
	var resp WebPlansResponse
	if err := c.get(ctx, fmt.Sprintf("/subscription/webPlans?country=%s", country), true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateSubscription opens a checkout session for a plan.
func (c *Client) CreateSubscription(ctx context.Context, planCode int) (*CreateSubscriptionResponse, error) {
	body := map[string]any{
		"plan": planCode,
	}

	var resp CreateSubscriptionResponse
	if err := c.post(ctx, "/subscription/web", body, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSubscriptions lists the authenticated user's subscription records,
// newest first. An empty list is a valid response.
func (c *Client) GetSubscriptions(ctx context.Context) (*SubscriptionsResponse, error) {
	var resp SubscriptionsResponse
	if err := c.get(ctx, "/subscription", true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelSubscription cancels the active web subscription.
func (c *Client) CancelSubscription(ctx context.Context) (*SimpleResponse, error) {
	var resp SimpleResponse
	if err := c.post(ctx, "/subscription/web/cancel", nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReactivateSubscription reactivates a cancelled web subscription.
func (c *Client) ReactivateSubscription(ctx context.Context) (*SimpleResponse, error) {
	var resp SimpleResponse
	if err := c.post(ctx, "/subscription/web/reactivate", nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAdminSubscriptions lists subscriptions from the administrative/ledger
// view. Requires a prior AdminLogin.
func (c *Client) GetAdminSubscriptions(ctx context.Context) (*AdminSubscriptionsResponse, error) {
	token, ok := c.session.Get(sessionAdminTokenKey)
	if !ok {
		return nil, ierr.NewError("no admin token").
			WithHint("AdminLogin must succeed before ledger-side calls").
			Mark(ierr.ErrValidation)
	}

	var resp AdminSubscriptionsResponse
	if err := c.send(ctx, http.MethodGet, "/admin/subscriptions", nil, token.(string), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteAccount removes the authenticated user's account.
func (c *Client) DeleteAccount(ctx context.Context) (*SimpleResponse, error) {
	var resp SimpleResponse
	if err := c.send(ctx, http.MethodDelete, "/user", nil, c.mustToken(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) mustToken() string {
	token, _ := c.AuthToken()
	return token
}

func (c *Client) get(ctx context.Context, path string, authed bool, out any) error {
	token := ""
	if authed {
		var err error
		if token, err = c.AuthToken(); err != nil {
			return err
		}
	}
	return c.send(ctx, http.MethodGet, path, nil, token, out)
}

func (c *Client) post(ctx context.Context, path string, body map[string]any, authed bool, out any) error {
	token := ""
	if authed {
		var err error
		if token, err = c.AuthToken(); err != nil {
			return err
		}
	}
	return c.send(ctx, http.MethodPost, path, body, token, out)
}

func (c *Client) send(ctx context.Context, method, path string, body map[string]any, token string, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to encode request body").
				Mark(ierr.ErrSystem)
		}
	}

	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method:  method,
		URL:     c.baseURL + path,
		Headers: headers,
		Body:    payload,
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return ierr.WithError(err).
			WithHintf("Malformed response from %s", path).
			Mark(ierr.ErrHTTPClient)
	}
	return nil
}
