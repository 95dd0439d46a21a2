// Package fiber serves the registration API with gofiber/fiber.
package fiber

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/aloks98/userreg/httpapi"
	"github.com/aloks98/userreg/internal/ctxlog"
	"github.com/aloks98/userreg/ratelimit"
)

// Options is an alias for httpapi.Options.
type Options = httpapi.Options

// NewApp returns a fiber app serving svc.
func NewApp(svc httpapi.Service, opts *Options) *fiber.App {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.LoggerOrDefault()
	h := &handler{svc: svc}

	cfg := fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	}
	if opts.TrustProxyHeaders {
		cfg.ProxyHeader = fiber.HeaderXForwardedFor
		cfg.EnableIPValidation = true
	}
	app := fiber.New(cfg)

	app.Use(RequestLogger(logger))
	app.Use(recover.New())
	if !opts.DisableCORS {
		app.Use(CORS())
	}

	register := []fiber.Handler{}
	if opts.Limiter != nil {
		register = append(register, RateLimit(opts.Limiter, logger))
	}
	app.Post(httpapi.PathRegister, append(register, h.register)...)
	app.Get(httpapi.PathUsers, h.users)
	app.Get(httpapi.PathStatus, h.status)

	return app
}

type handler struct {
	svc httpapi.Service
}

func (h *handler) register(c *fiber.Ctx) error {
	req, err := httpapi.DecodeRegister(bytes.NewReader(c.Body()))
	if err != nil {
		return writeError(c, err)
	}
	if _, err := h.svc.Register(c.UserContext(), req); err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(httpapi.Success(httpapi.MessageRegistered))
}

func (h *handler) users(c *fiber.Ctx) error {
	users, err := h.svc.ListUsers(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(users)
}

func (h *handler) status(c *fiber.Ctx) error {
	return c.JSON(h.svc.Status())
}

func writeError(c *fiber.Ctx, err error) error {
	status, body := httpapi.ErrorResponse(err)
	return c.Status(status).JSON(body)
}

// errorHandler renders fiber's own errors (404, 405, panics) as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := httpapi.MessageInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = http.StatusText(code)
	}
	return c.Status(code).JSON(httpapi.Failure(msg))
}

// CORS returns middleware that applies httpapi.CORSHeaders and answers preflight.
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for k, v := range httpapi.CORSHeaders {
			c.Set(k, v)
		}
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

// RateLimit returns middleware that throttles requests per client IP.
// Limiter errors are logged and the request proceeds.
func RateLimit(limiter ratelimit.Limiter, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		res, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			logger.ErrorContext(c.UserContext(), "rate limit check failed", "key", key, "error", err)
			return c.Next()
		}

		for k, v := range res.Headers() {
			c.Set(k, v)
		}
		if !res.Allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(httpapi.Failure(httpapi.MessageRateLimited))
		}
		return c.Next()
	}
}

// RequestLogger tags each request with an ID, stores a request-scoped logger
// in the user context, and logs the outcome.
func RequestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := httpapi.RequestID(c.Get(httpapi.RequestIDHeader))
		c.Set(httpapi.RequestIDHeader, id)

		reqLogger := logger.With("request_id", id)
		ctx := ctxlog.WithLogger(c.UserContext(), reqLogger)
		c.SetUserContext(ctx)

		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		httpapi.LogRequest(ctx, reqLogger, c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start))
		return nil
	}
}
