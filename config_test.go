package userreg

import (
	"errors"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.MinPasswordLength != DefaultMinPasswordLength {
		t.Errorf("MinPasswordLength = %d, want %d", cfg.MinPasswordLength, DefaultMinPasswordLength)
	}
	if !cfg.MaskPasswords {
		t.Error("MaskPasswords should default to true")
	}
	if cfg.PasswordMask != "[HASHED]" {
		t.Errorf("PasswordMask = %q, want %q", cfg.PasswordMask, "[HASHED]")
	}
	if !cfg.AutoMigrate {
		t.Error("AutoMigrate should default to true")
	}
	if cfg.ConnectRetries != 5 {
		t.Errorf("ConnectRetries = %d, want 5", cfg.ConnectRetries)
	}
	if cfg.ConnectRetryDelay != 2*time.Second {
		t.Errorf("ConnectRetryDelay = %v, want 2s", cfg.ConnectRetryDelay)
	}
	if cfg.Version != "1.1.0" {
		t.Errorf("Version = %q, want %q", cfg.Version, "1.1.0")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:    "defaults",
			modify:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "zero password length",
			modify:  func(c *Config) { c.MinPasswordLength = 0 },
			wantErr: ErrConfigInvalid,
		},
		{
			name:    "empty mask while masking",
			modify:  func(c *Config) { c.PasswordMask = "" },
			wantErr: ErrConfigInvalid,
		},
		{
			name: "empty mask without masking",
			modify: func(c *Config) {
				c.MaskPasswords = false
				c.PasswordMask = ""
			},
			wantErr: nil,
		},
		{
			name:    "no connect attempts",
			modify:  func(c *Config) { c.ConnectRetries = 0 },
			wantErr: ErrConfigInvalid,
		},
		{
			name:    "negative retry delay",
			modify:  func(c *Config) { c.ConnectRetryDelay = -time.Second },
			wantErr: ErrConfigInvalid,
		},
		{
			name:    "empty version",
			modify:  func(c *Config) { c.Version = "" },
			wantErr: ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
