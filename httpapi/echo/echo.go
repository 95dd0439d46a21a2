// Package echo serves the registration API with labstack/echo.
package echo

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/aloks98/userreg/httpapi"
	"github.com/aloks98/userreg/internal/ctxlog"
	"github.com/aloks98/userreg/ratelimit"
)

// Options is an alias for httpapi.Options.
type Options = httpapi.Options

// NewServer returns an echo instance serving svc.
func NewServer(svc httpapi.Service, opts *Options) *echo.Echo {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.LoggerOrDefault()
	h := &handler{svc: svc}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	if !opts.TrustProxyHeaders {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	e.Use(RequestLogger(logger))
	e.Use(echomw.Recover())
	if !opts.DisableCORS {
		e.Use(CORS())
	}

	register := []echo.MiddlewareFunc{}
	if opts.Limiter != nil {
		register = append(register, RateLimit(opts.Limiter, logger))
	}
	e.POST(httpapi.PathRegister, h.register, register...)
	e.GET(httpapi.PathUsers, h.users)
	e.GET(httpapi.PathStatus, h.status)

	return e
}

type handler struct {
	svc httpapi.Service
}

func (h *handler) register(c echo.Context) error {
	req, err := httpapi.DecodeRegister(c.Request().Body)
	if err != nil {
		return writeError(c, err)
	}
	if _, err := h.svc.Register(c.Request().Context(), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, httpapi.Success(httpapi.MessageRegistered))
}

func (h *handler) users(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *handler) status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Status())
}

func writeError(c echo.Context, err error) error {
	status, body := httpapi.ErrorResponse(err)
	return c.JSON(status, body)
}

// errorHandler renders echo's own errors (404, 405, panics) as JSON.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := httpapi.MessageInternal
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = http.StatusText(code)
	}
	_ = c.JSON(code, httpapi.Failure(msg))
}

// CORS returns middleware that applies httpapi.CORSHeaders and answers preflight.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for k, v := range httpapi.CORSHeaders {
				c.Response().Header().Set(k, v)
			}
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

// RateLimit returns middleware that throttles requests per client IP.
// Limiter errors are logged and the request proceeds.
func RateLimit(limiter ratelimit.Limiter, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			res, err := limiter.Allow(c.Request().Context(), key)
			if err != nil {
				logger.ErrorContext(c.Request().Context(), "rate limit check failed", "key", key, "error", err)
				return next(c)
			}

			for k, v := range res.Headers() {
				c.Response().Header().Set(k, v)
			}
			if !res.Allowed {
				return c.JSON(http.StatusTooManyRequests, httpapi.Failure(httpapi.MessageRateLimited))
			}
			return next(c)
		}
	}
}

// RequestLogger tags each request with an ID, stores a request-scoped logger
// in its context, and logs the outcome.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			id := httpapi.RequestID(req.Header.Get(httpapi.RequestIDHeader))
			c.Response().Header().Set(httpapi.RequestIDHeader, id)

			reqLogger := logger.With("request_id", id)
			ctx := ctxlog.WithLogger(req.Context(), reqLogger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			httpapi.LogRequest(ctx, reqLogger, req.Method, req.URL.Path, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
