package userreg

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aloks98/userreg/password"
	"github.com/aloks98/userreg/store"
)

// Default configuration values.
const (
	DefaultMinPasswordLength = 6
	DefaultPasswordMask      = "[HASHED]"
	DefaultConnectRetries    = 5
	DefaultConnectRetryDelay = 2 * time.Second
	DefaultVersion           = "1.1.0"
	DefaultStatusMessage     = "User service is running"
)

// Config holds all configuration for a Service.
type Config struct {
	// Store persists registered users. Required.
	Store store.Store

	// Hasher hashes passwords before they are stored.
	// Defaults to Argon2id.
	Hasher password.Hasher

	// Logger receives service logs. Defaults to slog.Default().
	Logger *slog.Logger

	// MinPasswordLength is the minimum password length in characters.
	MinPasswordLength int

	// MaskPasswords replaces the stored hash with PasswordMask in listings.
	MaskPasswords bool

	// PasswordMask is the placeholder shown instead of password hashes.
	PasswordMask string

	// AutoMigrate creates the store schema on startup.
	AutoMigrate bool

	// ConnectRetries is how many times the store is pinged on startup
	// before giving up.
	ConnectRetries int

	// ConnectRetryDelay is the pause between startup pings.
	ConnectRetryDelay time.Duration

	// Version is reported by the status endpoint.
	Version string

	// StatusMessage is reported by the status endpoint.
	StatusMessage string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MinPasswordLength: DefaultMinPasswordLength,
		MaskPasswords:     true,
		PasswordMask:      DefaultPasswordMask,
		AutoMigrate:       true,
		ConnectRetries:    DefaultConnectRetries,
		ConnectRetryDelay: DefaultConnectRetryDelay,
		Version:           DefaultVersion,
		StatusMessage:     DefaultStatusMessage,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MinPasswordLength < 1 {
		return fmt.Errorf("%w: minimum password length must be at least 1", ErrConfigInvalid)
	}
	if c.MaskPasswords && c.PasswordMask == "" {
		return fmt.Errorf("%w: password mask cannot be empty when masking is enabled", ErrConfigInvalid)
	}
	if c.ConnectRetries < 1 {
		return fmt.Errorf("%w: connect retries must be at least 1", ErrConfigInvalid)
	}
	if c.ConnectRetryDelay < 0 {
		return fmt.Errorf("%w: connect retry delay cannot be negative", ErrConfigInvalid)
	}
	if c.Version == "" {
		return fmt.Errorf("%w: version cannot be empty", ErrConfigInvalid)
	}
	return nil
}
