// Package cli parses command-line arguments for the userreg binaries and
// carries process-level concerns such as exit codes.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aloks98/userreg/internal/app"
)

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// ParseServer builds the server configuration from defaults, an optional
// config file, the environment (via lookup) and flags, in that order of
// increasing precedence. It reports shouldExit when help was requested.
func ParseServer(args []string, output io.Writer, lookup func(string) (string, bool)) (*app.Config, bool, error) {
	fs := flag.NewFlagSet("userreg-server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
userreg-server - user registration HTTP service.

Usage:
  userreg-server [options]

Configuration is read from the defaults, then -config, then USERREG_*
environment variables (plus DATABASE_URL and REDIS_ADDR), then flags.

Options:
`)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "Path to a YAML or JSON config file.")
	addr := fs.String("addr", "", "Listen address, e.g. :5001.")
	framework := fs.String("framework", "", "HTTP framework: chi, echo, gin or fiber.")
	storeDriver := fs.String("store", "", "User store: memory, postgres, mysql, sqlite or redis.")
	dsn := fs.String("dsn", "", "Database connection string for SQL stores.")
	redisAddr := fs.String("redis-addr", "", "Redis address for the redis store or rate limiter.")
	algorithm := fs.String("password-algorithm", "", "Password hashing: argon2id or bcrypt.")
	rateLimit := fs.Int("rate-limit", 0, "Registrations allowed per client per window; enables rate limiting when positive.")
	logLevel := fs.String("log-level", "", "Logging level: debug, info, warn or error.")
	logFormat := fs.String("log-format", "", "Log output format: text or json.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError(err)
	}
	if fs.NArg() > 0 {
		return nil, false, usageError(fmt.Errorf("unexpected argument %q", fs.Arg(0)))
	}

	cfg := app.DefaultConfig()
	if *configPath != "" {
		loaded, err := app.LoadFile(*configPath)
		if err != nil {
			return nil, false, usageError(err)
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, false, usageError(err)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	override("addr", &cfg.Addr, *addr)
	override("framework", &cfg.Framework, strings.ToLower(*framework))
	override("store", &cfg.Store.Driver, strings.ToLower(*storeDriver))
	override("dsn", &cfg.Store.DSN, *dsn)
	override("redis-addr", &cfg.Redis.Addr, *redisAddr)
	override("password-algorithm", &cfg.Password.Algorithm, strings.ToLower(*algorithm))
	override("log-level", &cfg.LogLevel, strings.ToLower(*logLevel))
	override("log-format", &cfg.LogFormat, strings.ToLower(*logFormat))
	if set["rate-limit"] {
		cfg.RateLimit.Enabled = *rateLimit > 0
		if *rateLimit > 0 {
			cfg.RateLimit.Requests = *rateLimit
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, usageError(err)
	}
	return cfg, false, nil
}

// ClientConfig configures the interactive client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	LogLevel  string
	LogFormat string
}

// DefaultBaseURL is the service address the client uses when none is given.
const DefaultBaseURL = "http://localhost:5001"

// ParseClient parses the interactive client's flags. USERREG_URL, when set,
// replaces the default base URL.
func ParseClient(args []string, output io.Writer, lookup func(string) (string, bool)) (*ClientConfig, bool, error) {
	fs := flag.NewFlagSet("userreg-client", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
userreg-client - interactive terminal client for the registration service.

Usage:
  userreg-client [options]

Options:
`)
		fs.PrintDefaults()
	}

	defaultURL := DefaultBaseURL
	if v, ok := lookup("USERREG_URL"); ok && v != "" {
		defaultURL = v
	}

	baseURL := fs.String("url", defaultURL, "Base URL of the registration service.")
	timeout := fs.Duration("timeout", 0, "Per-request timeout; 0 uses the transport default.")
	logLevel := fs.String("log-level", "warn", "Logging level: debug, info, warn or error.")
	logFormat := fs.String("log-format", "text", "Log output format: text or json.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError(err)
	}

	if *timeout < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid timeout: must not be negative"}
	}
	level := strings.ToLower(*logLevel)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	format := strings.ToLower(*logFormat)
	if format != "text" && format != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	return &ClientConfig{
		BaseURL:   *baseURL,
		Timeout:   *timeout,
		LogLevel:  level,
		LogFormat: format,
	}, false, nil
}
