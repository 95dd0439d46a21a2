// Package httpapi exposes a userreg.Service over HTTP+JSON. This package
// holds the framework-neutral contract; the chi, echo, gin, and fiber
// subpackages serve it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aloks98/userreg"
	"github.com/aloks98/userreg/ratelimit"
	"github.com/aloks98/userreg/store"
)

// Route paths.
const (
	PathRegister = "/register"
	PathUsers    = "/users"
	PathStatus   = "/api/status"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// MaxBodyBytes bounds the size of a registration body.
const MaxBodyBytes = 1 << 20

// Client-facing messages.
const (
	MessageRegistered  = "User registered successfully"
	MessageInvalidBody = "Invalid request body"
	MessageRateLimited = "Too many registration attempts, please try again later"
	MessageInternal    = "Internal server error"
	MessageUnavailable = "Service unavailable"
)

// ErrInvalidBody is returned when a registration body is not a JSON object.
var ErrInvalidBody = errors.New("invalid request body")

// Service is the subset of *userreg.Service the HTTP layer depends on.
type Service interface {
	Register(ctx context.Context, req userreg.RegisterRequest) (*store.User, error)
	ListUsers(ctx context.Context) ([]userreg.UserRecord, error)
	Status() userreg.StatusInfo
}

// Options configures a router for any framework.
type Options struct {
	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Limiter throttles POST /register per client IP. Nil disables it.
	Limiter ratelimit.Limiter

	// DisableCORS turns off the permissive CORS headers.
	DisableCORS bool

	// TrustProxyHeaders keys the limiter on X-Forwarded-For / X-Real-IP
	// instead of the connection address. Enable only behind a proxy that
	// overwrites those headers.
	TrustProxyHeaders bool
}

// LoggerOrDefault returns o.Logger or slog.Default().
func (o *Options) LoggerOrDefault() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Response is the JSON body of every non-listing reply.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Success returns a success response.
func Success(message string) Response {
	return Response{Status: "success", Message: message}
}

// Failure returns an error response.
func Failure(message string) Response {
	return Response{Status: "error", Message: message}
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidBody), userreg.IsValidationError(err):
		return http.StatusBadRequest
	case userreg.IsConflictError(err):
		return http.StatusConflict
	case errors.Is(err, userreg.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, userreg.ErrClosed), userreg.IsStoreError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor returns the client-facing message for a service error.
func MessageFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidBody):
		return MessageInvalidBody
	case errors.Is(err, userreg.ErrRateLimitExceeded):
		return MessageRateLimited
	case errors.Is(err, userreg.ErrClosed):
		return MessageUnavailable
	}
	return userreg.MessageOf(err, MessageInternal)
}

// ErrorResponse returns the status code and body for err.
func ErrorResponse(err error) (int, Response) {
	return StatusFor(err), Failure(MessageFor(err))
}

// DecodeRegister reads a registration body. Unknown fields are ignored;
// missing fields decode as empty strings and are rejected by the service.
func DecodeRegister(r io.Reader) (userreg.RegisterRequest, error) {
	var req userreg.RegisterRequest
	dec := json.NewDecoder(io.LimitReader(r, MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return req, nil
}

// CORSHeaders are applied to every response unless CORS is disabled.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, " + RequestIDHeader,
	"Access-Control-Max-Age":       "600",
}

// RequestID returns incoming when it is a usable ID, else a new UUID.
func RequestID(incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming != "" && len(incoming) <= 128 {
		return incoming
	}
	return uuid.NewString()
}

// LogRequest logs one completed request at a level matching its status.
func LogRequest(ctx context.Context, logger *slog.Logger, method, path string, status int, elapsed time.Duration) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "request completed",
		"method", method,
		"path", path,
		"status", status,
		"duration", elapsed,
	)
}
