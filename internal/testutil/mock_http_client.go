package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/vidinfra/subqa/internal/httpclient"
)

// MockHTTPClient implements a mock HTTP client for testing
type MockHTTPClient struct {
	mu     sync.RWMutex
	routes map[string]MockResponse
	calls  []RecordedCall
}

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// RecordedCall captures one request sent through the mock.
type RecordedCall struct {
	Method string
	URL    string
	Body   []byte
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		routes: make(map[string]MockResponse),
	}
}

// RegisterResponse registers a mock response for a given URL suffix
func (m *MockHTTPClient) RegisterResponse(url string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[url] = resp
}

// RegisterJSONResponse is a helper to register a 200 JSON response
func (m *MockHTTPClient) RegisterJSONResponse(url string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	m.RegisterResponse(url, MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	})
}

// Calls returns the requests recorded so far.
func (m *MockHTTPClient) Calls() []RecordedCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]RecordedCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Send implements the httpclient.Client interface
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, RecordedCall{
		Method: req.Method,
		URL:    req.URL,
		Body:   req.Body,
	})
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Match registered routes by URL suffix so tests register paths, not
	// full base URLs. Query strings are ignored for matching.
	url := req.URL
	if idx := strings.Index(url, "?"); idx >= 0 {
		url = url[:idx]
	}

	for route, resp := range m.routes {
		if strings.HasSuffix(url, route) {
			if resp.StatusCode >= http.StatusBadRequest {
				return nil, httpclient.NewError(resp.StatusCode, resp.Body)
			}
			return &httpclient.Response{
				StatusCode: resp.StatusCode,
				Body:       resp.Body,
				Headers:    resp.Headers,
			}, nil
		}
	}

	return nil, httpclient.NewError(http.StatusNotFound, []byte("Not Found"))
}
