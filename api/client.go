// Package api implements the REST surface of the canteen backend: request
// construction, bearer authentication, response envelope decoding, and the
// normalization of every backend error into a user-presentable ClientError.
//
// The backend wraps all responses in {success, data, message, token}.
// success=false is a recoverable business failure carrying a displayable
// message; it is never reported as a transport error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/canteenhq/canteen-go/core"
)

// TokenSource supplies the current bearer credential, or "" when anonymous.
// The session store owns the credential; the client only reads it.
type TokenSource func() string

// Client talks to the canteen backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource TokenSource
	logger      core.Logger

	mu             sync.RWMutex
	onUnauthorized func()
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenSource sets the bearer credential callback.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) { c.tokenSource = ts }
}

// WithTelemetry instruments the HTTP transport with OpenTelemetry spans.
func WithTelemetry() ClientOption {
	return func(c *Client) {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.httpClient.Transport = otelhttp.NewTransport(base)
	}
}

// NewClient creates a backend client with the default 15 second timeout.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		tokenSource: func() string { return "" },
		logger:      &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOnUnauthorized registers the hook fired when an authenticated request
// is rejected with a credential error. The session store registers itself
// here so an expired token clears persisted state mid-session. The hook
// never fires for unauthenticated calls (login, register), which keeps a
// failed login from looping back into a forced logout.
func (c *Client) SetOnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// SetTokenSource replaces the bearer credential callback after
// construction. The session store needs the client to exist before it can
// be built, so the credential wiring completes in a second step.
func (c *Client) SetTokenSource(ts TokenSource) {
	if ts == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenSource = ts
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokenSource()
}

func (c *Client) fireUnauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// envelope is the backend's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token,omitempty"`
}

// do issues one request and decodes the envelope. authed controls whether
// the bearer header is attached; the student registration call is the one
// endpoint sent without it.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, authed bool) (*envelope, error) {
	op := method + " " + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, core.NewClientError(op, "api", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, core.NewClientError(op, "api", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	if authed {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(token, "Bearer "))
		}
	}

	c.logger.Debug("API request", map[string]interface{}{
		"operation": "api_request",
		"method":    method,
		"path":      path,
		"authed":    authed,
	})
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("API transport failure", map[string]interface{}{
			"operation": "api_request_error",
			"method":    method,
			"path":      path,
			"error":     err.Error(),
		})
		sentinel := core.ErrConnectionFailed
		if errors.Is(err, context.DeadlineExceeded) {
			sentinel = core.ErrTimeout
		}
		return nil, &core.ClientError{
			Op:      op,
			Kind:    "transport",
			Message: "No response from server. Please check your connection and try again.",
			Err:     fmt.Errorf("%w: %v", sentinel, err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.ClientError{
			Op:   op,
			Kind: "transport",
			Err:  fmt.Errorf("%w: reading response: %v", core.ErrConnectionFailed, err),
		}
	}

	env := &envelope{}
	if len(raw) > 0 {
		// Tolerate a non-envelope body on error statuses; the status
		// mapping below still produces the right category.
		_ = json.Unmarshal(raw, env)
	}

	c.logger.Debug("API response", map[string]interface{}{
		"operation": "api_response",
		"method":    method,
		"path":      path,
		"status":    resp.StatusCode,
		"success":   env.Success,
		"duration":  time.Since(start).String(),
	})

	if err := c.mapStatus(op, resp.StatusCode, env, authed); err != nil {
		return nil, err
	}

	if !env.Success {
		message := env.Message
		if message == "" {
			message = "Request failed. Please try again."
		}
		return nil, &core.ClientError{
			Op:      op,
			Kind:    "api",
			Message: message,
			Err:     core.ErrRequestRejected,
		}
	}

	return env, nil
}

// mapStatus converts HTTP status classes into the error taxonomy. The 401
// branch additionally fires the global unauthorized hook for authenticated
// calls, which is how a mid-session credential rejection reaches the
// session store.
func (c *Client) mapStatus(op string, status int, env *envelope, authed bool) error {
	switch {
	case status == http.StatusUnauthorized:
		if authed {
			c.fireUnauthorized()
		}
		return &core.ClientError{
			Op:      op,
			Kind:    "auth",
			Message: messageOr(env, "Your session has expired. Please log in again."),
			Err:     core.ErrUnauthorized,
		}
	case status == http.StatusForbidden:
		return &core.ClientError{
			Op:      op,
			Kind:    "auth",
			Message: messageOr(env, "You do not have permission to access this resource."),
			Err:     core.ErrForbidden,
		}
	case status == http.StatusNotFound:
		return &core.ClientError{
			Op:      op,
			Kind:    "api",
			Message: messageOr(env, "The requested resource was not found."),
			Err:     core.ErrNotFound,
		}
	case status >= 500:
		return &core.ClientError{
			Op:      op,
			Kind:    "api",
			Message: messageOr(env, "An unexpected error occurred. Please try again later."),
			Err:     core.ErrServer,
		}
	}
	return nil
}

func messageOr(env *envelope, fallback string) string {
	if env != nil && env.Message != "" {
		return env.Message
	}
	return fallback
}

// decodeData unmarshals the envelope's data field into out.
func decodeData(op string, env *envelope, out interface{}) error {
	if len(env.Data) == 0 {
		return &core.ClientError{
			Op:      op,
			Kind:    "api",
			Message: "Invalid response from server.",
			Err:     fmt.Errorf("%w: empty data field", core.ErrServer),
		}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &core.ClientError{
			Op:      op,
			Kind:    "api",
			Message: "Invalid response from server.",
			Err:     fmt.Errorf("%w: decoding data: %v", core.ErrServer, err),
		}
	}
	return nil
}
