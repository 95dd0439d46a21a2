package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/aloks98/userreg"
	"github.com/aloks98/userreg/httpapi"
	chiapi "github.com/aloks98/userreg/httpapi/chi"
	echoapi "github.com/aloks98/userreg/httpapi/echo"
	fiberapi "github.com/aloks98/userreg/httpapi/fiber"
	ginapi "github.com/aloks98/userreg/httpapi/gin"
	"github.com/aloks98/userreg/internal/ctxlog"
	"github.com/aloks98/userreg/password"
	"github.com/aloks98/userreg/ratelimit"
	"github.com/aloks98/userreg/store"
	"github.com/aloks98/userreg/store/memory"
	redisstore "github.com/aloks98/userreg/store/redis"
	sqlstore "github.com/aloks98/userreg/store/sql"
)

// App is an assembled registration server.
type App struct {
	cfg     *Config
	logger  *slog.Logger
	svc     *userreg.Service
	limiter ratelimit.Limiter

	// redis is closed by App only when the store does not own it.
	redis *goredis.Client

	closeOnce sync.Once
	closeErr  error
}

// New builds the store, hasher, limiter and service described by cfg. It
// blocks until the store answers or the configured retries run out.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx = ctxlog.WithLogger(ctx, logger)

	var rdb *goredis.Client
	if cfg.Store.Driver == StoreRedis || (cfg.RateLimit.Enabled && cfg.RateLimit.Backend == LimiterRedis) {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	st, err := newStore(cfg, rdb)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("create store: %w", err)
	}
	release := func() {
		_ = st.Close()
		if rdb != nil && cfg.Store.Driver != StoreRedis {
			_ = rdb.Close()
		}
	}

	hasher, err := newHasher(cfg)
	if err != nil {
		release()
		return nil, err
	}

	svc, err := userreg.NewContext(ctx,
		userreg.WithStore(st),
		userreg.WithPasswordHasher(hasher),
		userreg.WithLogger(logger),
		userreg.WithMinPasswordLength(cfg.Password.MinLength),
		userreg.WithPasswordMasking(cfg.Password.Masked, cfg.Password.Mask),
		userreg.WithConnectRetries(cfg.Store.ConnectRetries, time.Duration(cfg.Store.ConnectRetryDelay)),
	)
	if err != nil {
		release()
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, svc: svc}
	if rdb != nil && cfg.Store.Driver != StoreRedis {
		a.redis = rdb
	}
	if cfg.RateLimit.Enabled {
		a.limiter = newLimiter(cfg, rdb)
	}

	logger.InfoContext(ctx, "application configured",
		"framework", cfg.Framework,
		"store", cfg.Store.Driver,
		"password_algorithm", hasher.Name(),
		"rate_limit", cfg.RateLimit.Enabled,
	)
	return a, nil
}

func newStore(cfg *Config, rdb *goredis.Client) (store.Store, error) {
	switch cfg.Store.Driver {
	case StoreMemory:
		return memory.New(), nil
	case StorePostgres:
		return sqlstore.New(&sqlstore.Config{Dialect: sqlstore.PostgreSQL, DSN: cfg.Store.DSN, TablePrefix: cfg.Store.TablePrefix})
	case StoreMySQL:
		return sqlstore.New(&sqlstore.Config{Dialect: sqlstore.MySQL, DSN: cfg.Store.DSN, TablePrefix: cfg.Store.TablePrefix})
	case StoreSQLite:
		return sqlstore.New(&sqlstore.Config{Dialect: sqlstore.SQLite, DSN: cfg.Store.DSN, TablePrefix: cfg.Store.TablePrefix})
	case StoreRedis:
		return redisstore.New(&redisstore.Config{Client: rdb})
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, cfg.Store.Driver)
	}
}

func newHasher(cfg *Config) (password.Hasher, error) {
	if cfg.Password.Algorithm == password.Bcrypt {
		return password.NewBcryptHasher(&password.BcryptConfig{Cost: cfg.Password.BcryptCost}), nil
	}
	return password.New(cfg.Password.Algorithm)
}

func newLimiter(cfg *Config, rdb *goredis.Client) ratelimit.Limiter {
	window := time.Duration(cfg.RateLimit.Window)
	if cfg.RateLimit.Backend == LimiterRedis {
		return ratelimit.NewRedisLimiter(&ratelimit.RedisConfig{
			Client: rdb,
			Rate:   cfg.RateLimit.Requests,
			Window: window,
		})
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, window)
}

// Service returns the registration service.
func (a *App) Service() *userreg.Service {
	return a.svc
}

func (a *App) options() *httpapi.Options {
	return &httpapi.Options{
		Logger:            a.logger,
		Limiter:           a.limiter,
		DisableCORS:       !a.cfg.CORS,
		TrustProxyHeaders: a.cfg.TrustProxyHeaders,
	}
}

// Handler returns the API as a net/http handler for the chi, echo and gin
// frameworks. Fiber serves on fasthttp and has no net/http handler.
func (a *App) Handler() (http.Handler, error) {
	opts := a.options()
	switch a.cfg.Framework {
	case FrameworkChi:
		return chiapi.NewRouter(a.svc, opts), nil
	case FrameworkEcho:
		return echoapi.NewServer(a.svc, opts), nil
	case FrameworkGin:
		gin.SetMode(gin.ReleaseMode)
		return ginapi.NewEngine(a.svc, opts), nil
	default:
		return nil, fmt.Errorf("%w: framework %q has no net/http handler", ErrInvalidConfig, a.cfg.Framework)
	}
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully within the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.logger.InfoContext(ctx, "server listening", "addr", ln.Addr().String(), "framework", a.cfg.Framework)

	if a.cfg.Framework == FrameworkFiber {
		return a.serveFiber(ctx, ln)
	}

	h, err := a.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctxlog.WithLogger(context.Background(), a.logger) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (a *App) serveFiber(ctx context.Context, ln net.Listener) error {
	app := fiberapi.NewApp(a.svc, a.options())

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.ShutdownTimeout))
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	return nil
}

// Close releases the limiter, the service and its store. It is safe to
// call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.limiter != nil {
			errs = append(errs, a.limiter.Close())
		}
		errs = append(errs, a.svc.Close())
		if a.redis != nil {
			errs = append(errs, a.redis.Close())
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
