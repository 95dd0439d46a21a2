// Package userreg implements a user registration service: it validates
// email/password registrations, stores users with hashed passwords, and
// lists registered users.
//
// Basic usage:
//
//	svc, err := userreg.New(
//	    userreg.WithStore(memory.New()),
//	)
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	user, err := svc.Register(ctx, userreg.RegisterRequest{
//	    Email:    "a@example.com",
//	    Password: "secret1",
//	})
package userreg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/aloks98/userreg/internal/ctxlog"
	"github.com/aloks98/userreg/password"
	"github.com/aloks98/userreg/store"
)

// RegisterRequest is the body of a registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

// UserRecord is a user as exposed by the listing operation.
type UserRecord struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StatusInfo is the payload of the status endpoint.
type StatusInfo struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// Service registers and lists users.
type Service struct {
	config   *Config
	store    store.Store
	hasher   password.Hasher
	logger   *slog.Logger
	validate *validator.Validate

	// mu protects closed
	mu     sync.RWMutex
	closed bool
}

// New creates a Service with the given options. WithStore is required.
// The store is pinged until it answers or ConnectRetries is exhausted, then
// migrated when AutoMigrate is set.
func New(opts ...Option) (*Service, error) {
	return NewContext(context.Background(), opts...)
}

// NewContext is New with a context that bounds the startup wait and migration.
func NewContext(ctx context.Context, opts ...Option) (*Service, error) {
	cfg := NewConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}

	if cfg.Hasher == nil {
		cfg.Hasher = password.NewArgon2Hasher(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Service{
		config:   cfg,
		store:    cfg.Store,
		hasher:   cfg.Hasher,
		logger:   cfg.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	if err := s.waitForStore(ctx); err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := s.store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate store: %w", err)
		}
	}

	if n, err := s.store.CountUsers(ctx); err == nil {
		s.logger.InfoContext(ctx, "user store ready", "users", n, "hasher", s.hasher.Name())
	}

	return s, nil
}

// waitForStore pings the store up to ConnectRetries times.
func (s *Service) waitForStore(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= s.config.ConnectRetries; attempt++ {
		if err = s.store.Ping(ctx); err == nil {
			return nil
		}

		remaining := s.config.ConnectRetries - attempt
		s.logger.WarnContext(ctx, "store connection failed, retrying",
			"attempt", attempt,
			"remaining", remaining,
			"error", err,
		)
		if remaining == 0 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.config.ConnectRetryDelay):
		}
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Register validates req, hashes the password, and stores a new user.
// Validation failures, conflicts, and store failures are returned as *Error
// wrapping the matching sentinel.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*store.User, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContextOr(ctx, s.logger)

	req.Email = store.NormalizeEmail(req.Email)
	if err := s.validateRequest(req); err != nil {
		logger.DebugContext(ctx, "registration rejected", "email", req.Email, "error", err)
		return nil, err
	}

	existing, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		logger.ErrorContext(ctx, "registration lookup failed", "error", err)
		return nil, NewError(CodeInternal, "Internal server error", err)
	}
	if existing != nil {
		return nil, NewError(CodeUserExists, "User already exists", ErrUserExists)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		logger.ErrorContext(ctx, "password hashing failed", "error", err)
		return nil, NewError(CodeInternal, "Internal server error", err)
	}

	user := &store.User{
		Email:        req.Email,
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, NewError(CodeUserExists, "User already exists", ErrUserExists)
		}
		logger.ErrorContext(ctx, "registration insert failed", "error", err)
		return nil, NewError(CodeInternal, "Internal server error", err)
	}

	logger.InfoContext(ctx, "user registered", "id", user.ID, "email", user.Email)
	return user, nil
}

func (s *Service) validateRequest(req RegisterRequest) error {
	err := s.validate.Struct(req)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return NewError(CodeMissingFields, "Email and password are required", ErrMissingFields)
			}
		}
		return NewError(CodeInvalidEmail, "Invalid email address", ErrInvalidEmail)
	}
	if err != nil {
		return NewError(CodeInternal, "Internal server error", err)
	}

	if utf8.RuneCountInString(req.Password) < s.config.MinPasswordLength {
		msg := fmt.Sprintf("Password must be at least %d characters long", s.config.MinPasswordLength)
		return NewError(CodePasswordTooShort, msg, ErrPasswordTooShort)
	}
	if limit := s.hasher.MaxLength(); limit > 0 && len(req.Password) > limit {
		msg := fmt.Sprintf("Password must be at most %d bytes long", limit)
		return NewError(CodePasswordTooLong, msg, ErrPasswordTooLong)
	}
	return nil
}

// ListUsers returns every registered user ordered by ID. The password field
// carries the mask when masking is enabled, else the stored hash.
func (s *Service) ListUsers(ctx context.Context) ([]UserRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		ctxlog.FromContextOr(ctx, s.logger).ErrorContext(ctx, "listing users failed", "error", err)
		return nil, NewError(CodeInternal, "Failed to fetch users", err)
	}

	records := make([]UserRecord, len(users))
	for i, u := range users {
		pw := u.PasswordHash
		if s.config.MaskPasswords {
			pw = s.config.PasswordMask
		}
		records[i] = UserRecord{ID: u.ID, Email: u.Email, Password: pw}
	}
	return records, nil
}

// Status reports that the service is running.
func (s *Service) Status() StatusInfo {
	return StatusInfo{
		Status:  "success",
		Message: s.config.StatusMessage,
		Version: s.config.Version,
	}
}

// Ping verifies the store connection is alive.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes the store. After Close the service rejects all calls.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.store.Close()
}

func (s *Service) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
