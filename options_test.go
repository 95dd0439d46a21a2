package userreg

import (
	"log/slog"
	"testing"
	"time"

	"github.com/aloks98/userreg/password"
	"github.com/aloks98/userreg/store/memory"
)

func TestWithStore(t *testing.T) {
	s := memory.New()
	cfg := NewConfig()
	WithStore(s)(cfg)

	if cfg.Store != s {
		t.Error("WithStore() did not set the store")
	}
}

func TestWithPasswordHasher(t *testing.T) {
	h := password.NewBcryptHasher(nil)
	cfg := NewConfig()
	WithPasswordHasher(h)(cfg)

	if cfg.Hasher != h {
		t.Error("WithPasswordHasher() did not set the hasher")
	}
}

func TestWithLogger(t *testing.T) {
	l := slog.Default()
	cfg := NewConfig()
	WithLogger(l)(cfg)

	if cfg.Logger != l {
		t.Error("WithLogger() did not set the logger")
	}
}

func TestWithPasswordMasking(t *testing.T) {
	cfg := NewConfig()

	WithPasswordMasking(true, "***")(cfg)
	if !cfg.MaskPasswords || cfg.PasswordMask != "***" {
		t.Errorf("MaskPasswords/PasswordMask = %v/%q, want true/***", cfg.MaskPasswords, cfg.PasswordMask)
	}

	WithPasswordMasking(false, "")(cfg)
	if cfg.MaskPasswords {
		t.Error("WithPasswordMasking(false) should disable masking")
	}
	if cfg.PasswordMask != "***" {
		t.Errorf("empty mask should keep the previous one, got %q", cfg.PasswordMask)
	}
}

func TestOptionChaining(t *testing.T) {
	cfg := NewConfig()
	opts := []Option{
		WithMinPasswordLength(10),
		WithAutoMigrate(false),
		WithConnectRetries(3, 50*time.Millisecond),
		WithVersion("2.0.0"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.MinPasswordLength != 10 {
		t.Errorf("MinPasswordLength = %d, want 10", cfg.MinPasswordLength)
	}
	if cfg.AutoMigrate {
		t.Error("AutoMigrate should be false")
	}
	if cfg.ConnectRetries != 3 || cfg.ConnectRetryDelay != 50*time.Millisecond {
		t.Errorf("ConnectRetries/Delay = %d/%v, want 3/50ms", cfg.ConnectRetries, cfg.ConnectRetryDelay)
	}
	if cfg.Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", cfg.Version)
	}
}
