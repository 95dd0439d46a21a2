package echo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aloks98/userreg"
	"github.com/aloks98/userreg/httpapi"
	"github.com/aloks98/userreg/httpapi/httpapitest"
	"github.com/aloks98/userreg/ratelimit"
	"github.com/aloks98/userreg/store"
)

func TestServer(t *testing.T) {
	httpapitest.Run(t, func(_ *testing.T, svc httpapi.Service, opts *httpapi.Options) httpapitest.Doer {
		return httpapitest.HandlerDoer(NewServer(svc, opts))
	})
}

type panicService struct{}

func (panicService) Register(context.Context, userreg.RegisterRequest) (*store.User, error) {
	panic("register")
}

func (panicService) ListUsers(context.Context) ([]userreg.UserRecord, error) {
	panic("list")
}

func (panicService) Status() userreg.StatusInfo {
	panic("status")
}

func TestServer_Recovers(t *testing.T) {
	e := NewServer(panicService{}, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, httpapi.PathStatus, nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("limiter down")
}

func (brokenLimiter) Close() error { return nil }

func TestRateLimit_FailsOpen(t *testing.T) {
	e := NewServer(httpapitest.NewService(t), &Options{Limiter: brokenLimiter{}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, httpapi.PathRegister,
		strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}
