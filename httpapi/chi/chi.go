// Package chi serves the registration API with a go-chi router.
package chi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aloks98/userreg/httpapi"
	"github.com/aloks98/userreg/internal/ctxlog"
	"github.com/aloks98/userreg/ratelimit"
)

// Options is an alias for httpapi.Options.
type Options = httpapi.Options

// NewRouter returns a chi router serving svc.
func NewRouter(svc httpapi.Service, opts *Options) http.Handler {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.LoggerOrDefault()
	h := httpapi.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Use(chimw.Recoverer)
	if !opts.DisableCORS {
		r.Use(httpapi.CORS)
	}

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			keyFunc := ratelimit.GetClientIP
			if opts.TrustProxyHeaders {
				keyFunc = ratelimit.GetForwardedClientIP
			}
			r.Use(ratelimit.Middleware(opts.Limiter, &ratelimit.Config{
				KeyFunc:   keyFunc,
				OnLimited: httpapi.RateLimitedJSON,
				Logger:    logger,
			}))
		}
		r.Post(httpapi.PathRegister, h.Register)
	})
	r.Get(httpapi.PathUsers, h.Users)
	r.Get(httpapi.PathStatus, h.Status)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteJSON(w, http.StatusNotFound, httpapi.Failure("Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteJSON(w, http.StatusMethodNotAllowed, httpapi.Failure("Method not allowed"))
	})

	return r
}

// RequestLogger tags each request with an ID, stores a request-scoped logger
// in its context, and logs the outcome.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := httpapi.RequestID(r.Header.Get(httpapi.RequestIDHeader))
			w.Header().Set(httpapi.RequestIDHeader, id)

			reqLogger := logger.With("request_id", id)
			ctx := ctxlog.WithLogger(r.Context(), reqLogger)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				httpapi.LogRequest(ctx, reqLogger, r.Method, r.URL.Path, status, time.Since(start))
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
