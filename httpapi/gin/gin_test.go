package gin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/aloks98/userreg/httpapi"
	"github.com/aloks98/userreg/httpapi/httpapitest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestEngine(t *testing.T) {
	httpapitest.Run(t, func(_ *testing.T, svc httpapi.Service, opts *httpapi.Options) httpapitest.Doer {
		return httpapitest.HandlerDoer(NewEngine(svc, opts))
	})
}

func TestEngine_MethodNotAllowed(t *testing.T) {
	r := NewEngine(httpapitest.NewService(t), &Options{DisableCORS: true})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, httpapi.PathUsers, nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = c.Writer.Header().Get(httpapi.RequestIDHeader)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Error("request ID header should be set before handlers run")
	}
}
