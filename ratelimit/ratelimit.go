// Package ratelimit provides fixed-window rate limiting for registration attempts.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Result describes the outcome of a single rate limit check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the number of requests permitted per window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is when the current window ends.
	ResetAt time.Time
}

// RetryAfter returns the whole seconds until the window resets, never negative.
func (r Result) RetryAfter() int {
	secs := int(time.Until(r.ResetAt).Round(time.Second).Seconds())
	return max(secs, 0)
}

// Headers returns the standard rate limit response headers for r.
func (r Result) Headers() map[string]string {
	h := map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(r.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(r.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(r.ResetAt.Unix(), 10),
	}
	if !r.Allowed {
		h["Retry-After"] = strconv.Itoa(r.RetryAfter())
	}
	return h
}

// Limiter defines the interface for rate limiters.
type Limiter interface {
	// Allow records one request for key and reports whether it is allowed.
	Allow(ctx context.Context, key string) (Result, error)

	// Close releases any resources held by the limiter.
	Close() error
}

// Config holds HTTP middleware configuration.
type Config struct {
	// KeyFunc extracts the rate limit key from an HTTP request.
	// Defaults to GetClientIP.
	KeyFunc func(r *http.Request) string

	// OnLimited writes the response for a rejected request.
	// Defaults to a plain-text 429 Too Many Requests.
	OnLimited func(w http.ResponseWriter, r *http.Request, res Result)

	// SkipFunc determines if a request should skip rate limiting.
	SkipFunc func(r *http.Request) bool

	// Logger receives limiter backend errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// GetClientIP returns the host part of the request's connection address.
func GetClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetForwardedClientIP prefers X-Forwarded-For, then X-Real-IP, then the
// connection address. Only use it behind a proxy that sets those headers.
func GetForwardedClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return GetClientIP(r)
}

// window is a fixed-window counter for one key.
type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is an in-memory fixed-window rate limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	rate    int
	period  time.Duration
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryLimiter creates an in-memory limiter allowing rate requests per period.
// A background goroutine evicts expired windows until Close is called.
func NewMemoryLimiter(rate int, period time.Duration) *MemoryLimiter {
	m := &MemoryLimiter{
		windows: make(map[string]*window),
		rate:    rate,
		period:  period,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.evictLoop()
	return m
}

// Allow records one request for key and reports whether it is allowed.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(m.period)}
		m.windows[key] = w
	}

	res := Result{Limit: m.rate, ResetAt: w.resetAt}
	if w.count >= m.rate {
		return res, nil
	}

	w.count++
	res.Allowed = true
	res.Remaining = m.rate - w.count
	return res, nil
}

// Close stops the eviction goroutine. It is safe to call more than once.
func (m *MemoryLimiter) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryLimiter) evictLoop() {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *MemoryLimiter) evictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}

// Middleware creates net/http middleware that applies rate limiting.
// Backend errors are logged and the request is let through.
func Middleware(limiter Limiter, cfg *Config) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = &Config{}
	}

	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = GetClientIP
	}

	onLimited := cfg.OnLimited
	if onLimited == nil {
		onLimited = func(w http.ResponseWriter, _ *http.Request, _ Result) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.SkipFunc != nil && cfg.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.ErrorContext(r.Context(), "rate limit check failed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			for k, v := range res.Headers() {
				w.Header().Set(k, v)
			}

			if !res.Allowed {
				onLimited(w, r, res)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
