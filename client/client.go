// Package client talks to the registration service over HTTP and JSON.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aloks98/userreg/internal/ctxlog"
)

const (
	// RequestIDHeader carries the per-request ID sent to the service.
	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 1 << 20
)

var (
	// ErrTransport is wrapped by every failure to complete a request or to
	// read a well-formed response.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidBaseURL is returned by New for an unusable base URL.
	ErrInvalidBaseURL = errors.New("invalid base URL")
)

// RejectionError reports a registration the service declined.
type RejectionError struct {
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("registration rejected with status %d", e.Status)
	}
	return fmt.Sprintf("registration rejected with status %d: %s", e.Status, e.Message)
}

// StatusError reports a non-2xx reply to a listing request.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// User is one record returned by the listing endpoint. Password is whatever
// the service sends, verbatim.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageBody struct {
	Message string `json:"message"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero leaves the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Client for the service at baseURL, e.g. "http://localhost:5001".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    http.DefaultClient,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Register submits a registration and returns the service's success message.
// A non-2xx reply with a JSON body yields *RejectionError; anything else that
// goes wrong wraps ErrTransport.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, "/register", payload)
	if err != nil {
		return "", err
	}

	var msg messageBody
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	if !success(status) {
		return "", &RejectionError{Status: status, Message: msg.Message}
	}
	return msg.Message, nil
}

// ListUsers fetches every user in the order the service returns them.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, &StatusError{Status: status}
	}

	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	id := uuid.NewString()
	req.Header.Set(RequestIDHeader, id)
	logger := ctxlog.FromContextOr(ctx, c.logger).With("request_id", id, "method", method, "path", path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "request failed", "error", err)
		return 0, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.WarnContext(ctx, "reading response failed", "status", resp.StatusCode, "error", err)
		return 0, nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	logger.DebugContext(ctx, "request completed", "status", resp.StatusCode, "duration", time.Since(start))
	return resp.StatusCode, data, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}
