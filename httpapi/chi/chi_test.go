package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aloks98/userreg"
	"github.com/aloks98/userreg/httpapi"
	"github.com/aloks98/userreg/httpapi/httpapitest"
	"github.com/aloks98/userreg/store"
)

func TestRouter(t *testing.T) {
	httpapitest.Run(t, func(_ *testing.T, svc httpapi.Service, opts *httpapi.Options) httpapitest.Doer {
		return httpapitest.HandlerDoer(NewRouter(svc, opts))
	})
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := NewRouter(httpapitest.NewService(t), &Options{DisableCORS: true})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, httpapi.PathUsers, nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestRouter_NilOptions(t *testing.T) {
	r := NewRouter(httpapitest.NewService(t), nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, httpapi.PathStatus, nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequestLogger_Recovers(t *testing.T) {
	r := NewRouter(panicService{}, &Options{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, httpapi.PathStatus, nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
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
