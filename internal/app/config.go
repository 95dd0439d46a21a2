package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/aloks98/userreg"
	"github.com/aloks98/userreg/password"
)

// Supported frameworks.
const (
	FrameworkChi   = "chi"
	FrameworkEcho  = "echo"
	FrameworkGin   = "gin"
	FrameworkFiber = "fiber"
)

// Supported store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

// Supported rate limiter backends.
const (
	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

var (
	// ErrInvalidConfig is wrapped by every configuration validation error.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidConfigPath is returned for config paths that are empty,
	// traverse directories or carry an unsupported extension.
	ErrInvalidConfigPath = errors.New("invalid config file path")
)

// Duration is a time.Duration written as a string ("2s", "1m") in YAML and
// JSON configuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// StoreConfig selects and configures the user store.
type StoreConfig struct {
	// Driver is one of memory, postgres, mysql, sqlite or redis.
	Driver string `yaml:"driver" json:"driver"`

	// DSN is the database connection string for the SQL drivers.
	DSN string `yaml:"dsn" json:"dsn"`

	// TablePrefix is prepended to SQL table names.
	TablePrefix string `yaml:"table_prefix" json:"table_prefix"`

	// ConnectRetries and ConnectRetryDelay control the startup wait for the store.
	ConnectRetries    int      `yaml:"connect_retries" json:"connect_retries"`
	ConnectRetryDelay Duration `yaml:"connect_retry_delay" json:"connect_retry_delay"`
}

// RedisConfig configures the Redis connection shared by the Redis store and
// the Redis rate limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// PasswordConfig configures hashing and listing of passwords.
type PasswordConfig struct {
	// Algorithm is argon2id or bcrypt.
	Algorithm string `yaml:"algorithm" json:"algorithm"`

	// BcryptCost is the bcrypt cost factor, used when Algorithm is bcrypt.
	BcryptCost int `yaml:"bcrypt_cost" json:"bcrypt_cost"`

	// MinLength is the minimum accepted password length.
	MinLength int `yaml:"min_length" json:"min_length"`

	// Mask replaces the stored hash in user listings. Set Masked to false
	// to list hashes instead.
	Masked bool   `yaml:"masked" json:"masked"`
	Mask   string `yaml:"mask" json:"mask"`
}

// RateLimitConfig configures throttling of POST /register.
type RateLimitConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Backend  string   `yaml:"backend" json:"backend"`
	Requests int      `yaml:"requests" json:"requests"`
	Window   Duration `yaml:"window" json:"window"`
}

// Config is the server configuration.
type Config struct {
	Addr            string   `yaml:"addr" json:"addr"`
	Framework       string   `yaml:"framework" json:"framework"`
	CORS            bool     `yaml:"cors" json:"cors"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// TrustProxyHeaders keys rate limiting on X-Forwarded-For instead of
	// the connection address.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" json:"trust_proxy_headers"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	Store     StoreConfig     `yaml:"store" json:"store"`
	Redis     RedisConfig     `yaml:"redis" json:"redis"`
	Password  PasswordConfig  `yaml:"password" json:"password"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// DefaultConfig returns the configuration used when nothing is overridden:
// an in-memory store served by chi on port 5001.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":5001",
		Framework:       FrameworkChi,
		CORS:            true,
		ShutdownTimeout: Duration(10 * time.Second),
		LogLevel:        "info",
		LogFormat:       "json",
		Store: StoreConfig{
			Driver:            StoreMemory,
			TablePrefix:       "userreg_",
			ConnectRetries:    userreg.DefaultConnectRetries,
			ConnectRetryDelay: Duration(userreg.DefaultConnectRetryDelay),
		},
		Password: PasswordConfig{
			Algorithm:  password.Argon2id,
			BcryptCost: password.DefaultBcryptConfig().Cost,
			MinLength:  userreg.DefaultMinPasswordLength,
			Masked:     true,
			Mask:       userreg.DefaultPasswordMask,
		},
		RateLimit: RateLimitConfig{
			Backend:  LimiterMemory,
			Requests: 10,
			Window:   Duration(time.Minute),
		},
	}
}

// LoadFile reads a YAML or JSON config file over the defaults.
// The path must not contain directory traversal.
func LoadFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadBytes(data, filepath.Ext(path))
}

func validateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidConfigPath)
	}

	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("%w: path contains directory traversal", ErrInvalidConfigPath)
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("%w: path must have .yaml, .yml, or .json extension", ErrInvalidConfigPath)
	}
	return nil
}

// LoadBytes parses configuration over the defaults. ext selects the format:
// ".json" for JSON, anything else for YAML.
func LoadBytes(data []byte, ext string) (*Config, error) {
	cfg := DefaultConfig()

	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from environment variables read through lookup
// (os.LookupEnv in production). USERREG_* variables map onto config fields;
// DATABASE_URL sets the DSN and REDIS_ADDR the Redis address. When no DSN is
// given, DB_HOST, DB_NAME, DB_USER and DB_PASS assemble a PostgreSQL DSN.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && v != "" {
			if err := dst.parse(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	str("USERREG_ADDR", &c.Addr)
	str("USERREG_FRAMEWORK", &c.Framework)
	boolean("USERREG_CORS", &c.CORS)
	boolean("USERREG_TRUST_PROXY_HEADERS", &c.TrustProxyHeaders)
	duration("USERREG_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	str("USERREG_LOG_LEVEL", &c.LogLevel)
	str("USERREG_LOG_FORMAT", &c.LogFormat)

	str("USERREG_STORE", &c.Store.Driver)
	str("USERREG_TABLE_PREFIX", &c.Store.TablePrefix)
	integer("USERREG_CONNECT_RETRIES", &c.Store.ConnectRetries)
	duration("USERREG_CONNECT_RETRY_DELAY", &c.Store.ConnectRetryDelay)
	str("DATABASE_URL", &c.Store.DSN)
	if c.Store.DSN == "" {
		if dsn := postgresDSNFromParts(lookup); dsn != "" {
			c.Store.DSN = dsn
			if c.Store.Driver == StoreMemory {
				c.Store.Driver = StorePostgres
			}
		}
	}

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	integer("REDIS_DB", &c.Redis.DB)

	str("USERREG_PASSWORD_ALGORITHM", &c.Password.Algorithm)
	integer("USERREG_BCRYPT_COST", &c.Password.BcryptCost)
	integer("USERREG_MIN_PASSWORD_LENGTH", &c.Password.MinLength)
	boolean("USERREG_MASK_PASSWORDS", &c.Password.Masked)

	boolean("USERREG_RATE_LIMIT", &c.RateLimit.Enabled)
	str("USERREG_RATE_LIMIT_BACKEND", &c.RateLimit.Backend)
	integer("USERREG_RATE_LIMIT_REQUESTS", &c.RateLimit.Requests)
	duration("USERREG_RATE_LIMIT_WINDOW", &c.RateLimit.Window)

	return errors.Join(errs...)
}

// postgresDSNFromParts builds a PostgreSQL URL from DB_HOST and friends, or
// returns "" when DB_HOST is unset.
func postgresDSNFromParts(lookup func(string) (string, bool)) string {
	host, ok := lookup("DB_HOST")
	if !ok || host == "" {
		return ""
	}
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(get("DB_USER", "postgres"), get("DB_PASS", "")),
		Host:     host,
		Path:     "/" + get("DB_NAME", "registration_db"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Addr == "" {
		fail("addr is required")
	}

	switch c.Framework {
	case FrameworkChi, FrameworkEcho, FrameworkGin, FrameworkFiber:
	default:
		fail("unknown framework %q", c.Framework)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		fail("log_level must be 'debug', 'info', 'warn', or 'error'")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		fail("log_format must be 'text' or 'json'")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres, StoreMySQL, StoreSQLite:
		if c.Store.DSN == "" {
			fail("store.dsn is required for the %s store", c.Store.Driver)
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			fail("redis.addr is required for the redis store")
		}
	default:
		fail("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.ConnectRetries < 1 {
		fail("store.connect_retries must be at least 1")
	}
	if c.Store.ConnectRetryDelay < 0 {
		fail("store.connect_retry_delay cannot be negative")
	}

	switch c.Password.Algorithm {
	case "", password.Argon2id:
	case password.Bcrypt:
		if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
			fail("password.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	default:
		fail("unknown password algorithm %q", c.Password.Algorithm)
	}
	if c.Password.MinLength < 1 {
		fail("password.min_length must be at least 1")
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case LimiterMemory:
		case LimiterRedis:
			if c.Redis.Addr == "" {
				fail("redis.addr is required for the redis rate limiter")
			}
		default:
			fail("unknown rate limit backend %q", c.RateLimit.Backend)
		}
		if c.RateLimit.Requests < 1 {
			fail("rate_limit.requests must be at least 1")
		}
		if c.RateLimit.Window <= 0 {
			fail("rate_limit.window must be positive")
		}
	}

	if c.ShutdownTimeout < 0 {
		fail("shutdown_timeout cannot be negative")
	}

	return errors.Join(errs...)
}
