// Package httpapitest provides a conformance suite run against every
// framework binding of the registration API.
package httpapitest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/crypto/bcrypt"

	"github.com/aloks98/userreg"
	"github.com/aloks98/userreg/httpapi"
	"github.com/aloks98/userreg/password"
	"github.com/aloks98/userreg/ratelimit"
	"github.com/aloks98/userreg/store"
	"github.com/aloks98/userreg/store/memory"
)

// Doer sends one request to the server under test.
type Doer func(req *http.Request) (*http.Response, error)

// Factory builds a server for svc and returns a Doer for it.
type Factory func(t *testing.T, svc httpapi.Service, opts *httpapi.Options) Doer

// HandlerDoer adapts a net/http handler to a Doer.
func HandlerDoer(h http.Handler) Doer {
	return func(req *http.Request) (*http.Response, error) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Result(), nil
	}
}

// NewService returns a real service over a memory store with fast hashing.
func NewService(t *testing.T, opts ...userreg.Option) *userreg.Service {
	t.Helper()

	base := []userreg.Option{
		userreg.WithStore(memory.New()),
		userreg.WithPasswordHasher(password.NewBcryptHasher(&password.BcryptConfig{Cost: bcrypt.MinCost})),
		userreg.WithLogger(quietLogger()),
		userreg.WithConnectRetries(1, 0),
	}
	svc, err := userreg.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("userreg.New() error = %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingService fails every listing and registration.
type failingService struct{}

func (failingService) Register(context.Context, userreg.RegisterRequest) (*store.User, error) {
	return nil, errors.New("boom")
}

func (failingService) ListUsers(context.Context) ([]userreg.UserRecord, error) {
	return nil, userreg.NewError(userreg.CodeInternal, "Failed to fetch users", errors.New("boom"))
}

func (failingService) Status() userreg.StatusInfo {
	return userreg.StatusInfo{Status: "success"}
}

// Run exercises the full HTTP contract against servers built by newServer.
func Run(t *testing.T, newServer Factory) {
	t.Helper()

	t.Run("RegisterSuccess", func(t *testing.T) {
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger()})

		resp := send(t, do, http.MethodPost, httpapi.PathRegister, `{"email":"a@example.com","password":"secret1"}`)
		expectResponse(t, resp, http.StatusCreated, httpapi.Success("User registered successfully"))
	})

	t.Run("RegisterValidation", func(t *testing.T) {
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger()})

		tests := []struct {
			name string
			body string
			code int
			msg  string
		}{
			{"missing password", `{"email":"a@example.com"}`, http.StatusBadRequest, "Email and password are required"},
			{"empty body object", `{}`, http.StatusBadRequest, "Email and password are required"},
			{"short password", `{"email":"a@example.com","password":"12345"}`, http.StatusBadRequest, "Password must be at least 6 characters long"},
			{"invalid email", `{"email":"nope","password":"secret1"}`, http.StatusBadRequest, "Invalid email address"},
			{"malformed json", `{"email":`, http.StatusBadRequest, "Invalid request body"},
			{"password over bcrypt limit", `{"email":"a@example.com","password":"` + strings.Repeat("x", 80) + `"}`, http.StatusBadRequest, "Password must be at most 72 bytes long"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp := send(t, do, http.MethodPost, httpapi.PathRegister, tt.body)
				expectResponse(t, resp, tt.code, httpapi.Failure(tt.msg))
			})
		}
	})

	t.Run("RegisterDuplicate", func(t *testing.T) {
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger()})
		body := `{"email":"dup@example.com","password":"secret1"}`

		resp := send(t, do, http.MethodPost, httpapi.PathRegister, body)
		resp.Body.Close()

		resp = send(t, do, http.MethodPost, httpapi.PathRegister, body)
		expectResponse(t, resp, http.StatusConflict, httpapi.Failure("User already exists"))
	})

	t.Run("RegisterInternalError", func(t *testing.T) {
		do := newServer(t, failingService{}, &httpapi.Options{Logger: quietLogger()})

		resp := send(t, do, http.MethodPost, httpapi.PathRegister, `{"email":"a@example.com","password":"secret1"}`)
		expectResponse(t, resp, http.StatusInternalServerError, httpapi.Failure("Internal server error"))
	})

	t.Run("ListUsers", func(t *testing.T) {
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger()})

		resp := send(t, do, http.MethodGet, httpapi.PathUsers, "")
		var empty []userreg.UserRecord
		decode(t, resp, http.StatusOK, &empty)
		if empty == nil || len(empty) != 0 {
			t.Errorf("GET /users on empty store = %#v, want []", empty)
		}

		for _, email := range []string{"b@example.com", "a@example.com"} {
			r := send(t, do, http.MethodPost, httpapi.PathRegister, `{"email":"`+email+`","password":"secret1"}`)
			r.Body.Close()
		}

		resp = send(t, do, http.MethodGet, httpapi.PathUsers, "")
		var users []userreg.UserRecord
		decode(t, resp, http.StatusOK, &users)

		want := []userreg.UserRecord{
			{ID: 1, Email: "b@example.com", Password: "[HASHED]"},
			{ID: 2, Email: "a@example.com", Password: "[HASHED]"},
		}
		if diff := cmp.Diff(want, users); diff != "" {
			t.Errorf("GET /users mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ListUsersFailure", func(t *testing.T) {
		do := newServer(t, failingService{}, &httpapi.Options{Logger: quietLogger()})

		resp := send(t, do, http.MethodGet, httpapi.PathUsers, "")
		expectResponse(t, resp, http.StatusInternalServerError, httpapi.Failure("Failed to fetch users"))
	})

	t.Run("Status", func(t *testing.T) {
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger()})

		resp := send(t, do, http.MethodGet, httpapi.PathStatus, "")
		var got userreg.StatusInfo
		decode(t, resp, http.StatusOK, &got)
		if got.Status != "success" || got.Version != userreg.DefaultVersion || got.Message == "" {
			t.Errorf("GET /api/status = %+v", got)
		}
	})

	t.Run("CORS", func(t *testing.T) {
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger()})

		resp := send(t, do, http.MethodOptions, httpapi.PathRegister, "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("preflight status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}

		resp = send(t, do, http.MethodGet, httpapi.PathStatus, "")
		defer resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("GET Access-Control-Allow-Origin = %q, want *", got)
		}
	})

	t.Run("CORSDisabled", func(t *testing.T) {
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger(), DisableCORS: true})

		resp := send(t, do, http.MethodGet, httpapi.PathStatus, "")
		defer resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want none", got)
		}
	})

	t.Run("RequestID", func(t *testing.T) {
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger()})

		req := httptest.NewRequest(http.MethodGet, httpapi.PathStatus, nil)
		req.Header.Set(httpapi.RequestIDHeader, "req-123")
		resp, err := do(req)
		if err != nil {
			t.Fatalf("request error = %v", err)
		}
		defer resp.Body.Close()
		if got := resp.Header.Get(httpapi.RequestIDHeader); got != "req-123" {
			t.Errorf("%s = %q, want req-123", httpapi.RequestIDHeader, got)
		}

		resp = send(t, do, http.MethodGet, httpapi.PathStatus, "")
		defer resp.Body.Close()
		if got := resp.Header.Get(httpapi.RequestIDHeader); got == "" {
			t.Error("a request ID should be generated when none is sent")
		}
	})

	t.Run("RateLimit", func(t *testing.T) {
		limiter := ratelimit.NewMemoryLimiter(1, time.Minute)
		t.Cleanup(func() { limiter.Close() })
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger(), Limiter: limiter})

		resp := send(t, do, http.MethodPost, httpapi.PathRegister, `{"email":"a@example.com","password":"secret1"}`)
		expectResponse(t, resp, http.StatusCreated, httpapi.Success("User registered successfully"))

		resp = send(t, do, http.MethodPost, httpapi.PathRegister, `{"email":"b@example.com","password":"secret1"}`)
		if resp.Header.Get("Retry-After") == "" {
			t.Error("expected Retry-After header on a limited response")
		}
		expectResponse(t, resp, http.StatusTooManyRequests, httpapi.Failure(httpapi.MessageRateLimited))

		// Listing is never throttled.
		resp = send(t, do, http.MethodGet, httpapi.PathUsers, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET /users status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("RateLimitIgnoresForwardedFor", func(t *testing.T) {
		limiter := ratelimit.NewMemoryLimiter(1, time.Minute)
		t.Cleanup(func() { limiter.Close() })
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger(), Limiter: limiter})

		resp := sendForwarded(t, do, "198.51.100.1", `{"email":"a@example.com","password":"secret1"}`)
		expectResponse(t, resp, http.StatusCreated, httpapi.Success("User registered successfully"))

		resp = sendForwarded(t, do, "198.51.100.2", `{"email":"b@example.com","password":"secret1"}`)
		expectResponse(t, resp, http.StatusTooManyRequests, httpapi.Failure(httpapi.MessageRateLimited))
	})

	t.Run("RateLimitTrustedProxy", func(t *testing.T) {
		limiter := ratelimit.NewMemoryLimiter(1, time.Minute)
		t.Cleanup(func() { limiter.Close() })
		do := newServer(t, NewService(t), &httpapi.Options{
			Logger:            quietLogger(),
			Limiter:           limiter,
			TrustProxyHeaders: true,
		})

		resp := sendForwarded(t, do, "198.51.100.1", `{"email":"a@example.com","password":"secret1"}`)
		expectResponse(t, resp, http.StatusCreated, httpapi.Success("User registered successfully"))

		resp = sendForwarded(t, do, "198.51.100.2", `{"email":"b@example.com","password":"secret1"}`)
		expectResponse(t, resp, http.StatusCreated, httpapi.Success("User registered successfully"))

		resp = sendForwarded(t, do, "198.51.100.1", `{"email":"c@example.com","password":"secret1"}`)
		expectResponse(t, resp, http.StatusTooManyRequests, httpapi.Failure(httpapi.MessageRateLimited))
	})

	t.Run("NotFound", func(t *testing.T) {
		do := newServer(t, NewService(t), &httpapi.Options{Logger: quietLogger()})

		resp := send(t, do, http.MethodGet, "/nope", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})
}

func send(t *testing.T, do Doer, method, path, body string) *http.Response {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	return resp
}

func sendForwarded(t *testing.T, do Doer, clientIP, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, httpapi.PathRegister, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", clientIP)

	resp, err := do(req)
	if err != nil {
		t.Fatalf("POST %s error = %v", httpapi.PathRegister, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, wantCode int, v any) {
	t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantCode {
		t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, wantCode, data)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.Unmarshal(bytes.TrimSpace(data), v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func expectResponse(t *testing.T, resp *http.Response, wantCode int, want httpapi.Response) {
	t.Helper()

	var got httpapi.Response
	decode(t, resp, wantCode, &got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}
