// Package gin serves the registration API with gin-gonic/gin.
package gin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aloks98/userreg/httpapi"
	"github.com/aloks98/userreg/internal/ctxlog"
	"github.com/aloks98/userreg/ratelimit"
)

// Options is an alias for httpapi.Options.
type Options = httpapi.Options

// NewEngine returns a gin engine serving svc.
func NewEngine(svc httpapi.Service, opts *Options) *gin.Engine {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.LoggerOrDefault()
	h := &handler{svc: svc}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.ForwardedByClientIP = opts.TrustProxyHeaders
	r.Use(RequestLogger(logger))
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, httpapi.Failure(httpapi.MessageInternal))
	}))
	if !opts.DisableCORS {
		r.Use(CORS())
	}

	register := []gin.HandlerFunc{}
	if opts.Limiter != nil {
		register = append(register, RateLimit(opts.Limiter, logger))
	}
	r.POST(httpapi.PathRegister, append(register, h.register)...)
	r.GET(httpapi.PathUsers, h.users)
	r.GET(httpapi.PathStatus, h.status)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httpapi.Failure("Not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, httpapi.Failure("Method not allowed"))
	})

	return r
}

type handler struct {
	svc httpapi.Service
}

func (h *handler) register(c *gin.Context) {
	req, err := httpapi.DecodeRegister(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := h.svc.Register(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpapi.Success(httpapi.MessageRegistered))
}

func (h *handler) users(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

func writeError(c *gin.Context, err error) {
	status, body := httpapi.ErrorResponse(err)
	c.JSON(status, body)
}

// CORS returns middleware that applies httpapi.CORSHeaders and answers preflight.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range httpapi.CORSHeaders {
			c.Header(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RateLimit returns middleware that throttles requests per client IP.
// Limiter errors are logged and the request proceeds.
func RateLimit(limiter ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		res, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.ErrorContext(c.Request.Context(), "rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}

		for k, v := range res.Headers() {
			c.Header(k, v)
		}
		if !res.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httpapi.Failure(httpapi.MessageRateLimited))
			return
		}
		c.Next()
	}
}

// RequestLogger tags each request with an ID, stores a request-scoped logger
// in its context, and logs the outcome.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := httpapi.RequestID(c.GetHeader(httpapi.RequestIDHeader))
		c.Header(httpapi.RequestIDHeader, id)

		reqLogger := logger.With("request_id", id)
		ctx := ctxlog.WithLogger(c.Request.Context(), reqLogger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		httpapi.LogRequest(ctx, reqLogger, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
