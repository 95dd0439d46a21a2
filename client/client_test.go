package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"http", "http://localhost:5001", false},
		{"https with path", "https://example.com/api/", false},
		{"empty", "", true},
		{"no scheme", "localhost:5001", true},
		{"unsupported scheme", "ftp://example.com", true},
		{"no host", "http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.baseURL)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBaseURL) {
				t.Errorf("New(%q) error = %v, want ErrInvalidBaseURL", tt.baseURL, err)
			}
		})
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New("http://localhost:5001/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.BaseURL(); got != "http://localhost:5001" {
		t.Errorf("BaseURL() = %q, want http://localhost:5001", got)
	}
}

func TestRegister_Success(t *testing.T) {
	var gotBody, gotID, gotCT string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/register" {
			t.Errorf("request = %s %s, want POST /register", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotID = r.Header.Get(RequestIDHeader)
		gotCT = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"status":"success","message":"User registered successfully"}`)
	})

	msg, err := c.Register(context.Background(), "a@example.com", "secret1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if msg != "User registered successfully" {
		t.Errorf("Register() = %q", msg)
	}
	if gotBody != `{"email":"a@example.com","password":"secret1"}` {
		t.Errorf("request body = %s", gotBody)
	}
	if gotID == "" {
		t.Error("request should carry a request ID")
	}
	if gotCT != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotCT)
	}
}

func TestRegister_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"conflict", http.StatusConflict, `{"status":"error","message":"User already exists"}`, "User already exists"},
		{"bad request", http.StatusBadRequest, `{"message":"Password must be at least 6 characters long"}`, "Password must be at least 6 characters long"},
		{"no message", http.StatusInternalServerError, `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Register(context.Background(), "a@example.com", "secret1")
			var rej *RejectionError
			if !errors.As(err, &rej) {
				t.Fatalf("Register() error = %v, want *RejectionError", err)
			}
			if rej.Status != tt.status || rej.Message != tt.wantMsg {
				t.Errorf("RejectionError = %+v, want status %d message %q", rej, tt.status, tt.wantMsg)
			}
			if errors.Is(err, ErrTransport) {
				t.Error("a rejection is not a transport failure")
			}
		})
	}
}

func TestRegister_TransportFailures(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, "<html>ok</html>")
		})
		if _, err := c.Register(context.Background(), "a@example.com", "secret1"); !errors.Is(err, ErrTransport) {
			t.Errorf("Register() error = %v, want ErrTransport", err)
		}
	})

	t.Run("non-json error page", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		})
		if _, err := c.Register(context.Background(), "a@example.com", "secret1"); !errors.Is(err, ErrTransport) {
			t.Errorf("Register() error = %v, want ErrTransport", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := New(url, WithLogger(quietLogger()))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := c.Register(context.Background(), "a@example.com", "secret1"); !errors.Is(err, ErrTransport) {
			t.Errorf("Register() error = %v, want ErrTransport", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		c, err := New(srv.URL, WithTimeout(20*time.Millisecond), WithLogger(quietLogger()))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := c.Register(context.Background(), "a@example.com", "secret1"); !errors.Is(err, ErrTransport) {
			t.Errorf("Register() error = %v, want ErrTransport", err)
		}
	})
}

func TestListUsers(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodGet || r.URL.Path != "/users" {
			t.Errorf("request = %s %s, want GET /users", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"id":2,"email":"b@example.com","password":"secret"},{"id":1,"email":"a@example.com","password":"[HASHED]"}]`)
	})

	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}

	want := []User{
		{ID: 2, Email: "b@example.com", Password: "secret"},
		{ID: 1, Email: "a@example.com", Password: "[HASHED]"},
	}
	if diff := cmp.Diff(want, users); diff != "" {
		t.Errorf("ListUsers() mismatch (-want +got):\n%s", diff)
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}
}

func TestListUsers_Empty(t *testing.T) {
	for _, body := range []string{`[]`, `null`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		})

		users, err := c.ListUsers(context.Background())
		if err != nil {
			t.Fatalf("ListUsers() error = %v", err)
		}
		if users == nil || len(users) != 0 {
			t.Errorf("ListUsers() with body %s = %#v, want empty slice", body, users)
		}
	}
}

func TestListUsers_Failures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"status":"error","message":"Failed to fetch users"}`)
		})

		_, err := c.ListUsers(context.Background())
		var se *StatusError
		if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
			t.Errorf("ListUsers() error = %v, want *StatusError 500", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"not":"a list"}`)
		})
		if _, err := c.ListUsers(context.Background()); !errors.Is(err, ErrTransport) {
			t.Errorf("ListUsers() error = %v, want ErrTransport", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[]`)
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.ListUsers(ctx); !errors.Is(err, ErrTransport) {
			t.Errorf("ListUsers() error = %v, want ErrTransport", err)
		}
	})
}

func TestErrorStrings(t *testing.T) {
	rej := &RejectionError{Status: 409, Message: "User already exists"}
	if !strings.Contains(rej.Error(), "User already exists") {
		t.Errorf("RejectionError.Error() = %q", rej.Error())
	}
	if !strings.Contains((&RejectionError{Status: 500}).Error(), "500") {
		t.Error("RejectionError without message should report the status")
	}
	if got := (&StatusError{Status: 503}).Error(); got != "unexpected status 503" {
		t.Errorf("StatusError.Error() = %q", got)
	}
}
