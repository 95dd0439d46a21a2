// Package store defines the storage interface for registered users.
package store

import (
	"context"
	"errors"
)

// Errors returned by Store implementations.
var (
	// ErrDuplicateEmail is returned by CreateUser when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("store is closed")
)

// Store defines the interface for user persistence.
// All methods should be safe for concurrent use.
type Store interface {
	// Lifecycle methods

	// Close releases any resources held by the store.
	Close() error

	// Ping verifies the store connection is alive.
	Ping(ctx context.Context) error

	// Migrate creates or updates the database schema.
	Migrate(ctx context.Context) error

	// User methods

	// CreateUser persists a new user and assigns its ID.
	// Returns ErrDuplicateEmail if the email is taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByEmail retrieves a user by email.
	// Returns nil, nil when no user matches.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers returns every user ordered by ID ascending.
	ListUsers(ctx context.Context) ([]*User, error)

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int64, error)
}
