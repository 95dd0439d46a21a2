package userreg

import (
	"log/slog"
	"time"

	"github.com/aloks98/userreg/password"
	"github.com/aloks98/userreg/store"
)

// Option is a function that modifies the configuration.
type Option func(*Config)

// WithStore sets the user store. This is a required option.
func WithStore(s store.Store) Option {
	return func(c *Config) {
		c.Store = s
	}
}

// WithPasswordHasher sets the password hashing algorithm.
func WithPasswordHasher(h password.Hasher) Option {
	return func(c *Config) {
		c.Hasher = h
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMinPasswordLength sets the minimum password length in characters.
func WithMinPasswordLength(n int) Option {
	return func(c *Config) {
		c.MinPasswordLength = n
	}
}

// WithPasswordMasking enables or disables masking of password hashes in
// user listings. An empty mask keeps the current one.
func WithPasswordMasking(enabled bool, mask string) Option {
	return func(c *Config) {
		c.MaskPasswords = enabled
		if mask != "" {
			c.PasswordMask = mask
		}
	}
}

// WithAutoMigrate enables or disables automatic schema migration.
func WithAutoMigrate(enabled bool) Option {
	return func(c *Config) {
		c.AutoMigrate = enabled
	}
}

// WithConnectRetries sets how many startup pings are attempted and the
// delay between them.
func WithConnectRetries(retries int, delay time.Duration) Option {
	return func(c *Config) {
		c.ConnectRetries = retries
		c.ConnectRetryDelay = delay
	}
}

// WithVersion sets the version reported by the status endpoint.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.Version = version
	}
}
