package store

import (
	"strings"
	"time"
)

// User represents a stored user account.
type User struct {
	// ID is assigned by the store on creation and increases monotonically.
	ID int64 `db:"id" json:"id"`

	// Email is unique across all users.
	Email string `db:"email" json:"email"`

	// PasswordHash is the encoded hash produced by a password.Hasher.
	// The raw password is never stored.
	PasswordHash string `db:"password" json:"password_hash"`

	// CreatedAt is when the user registered.
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NormalizeEmail returns the canonical form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a copy of the user so callers cannot mutate stored state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
