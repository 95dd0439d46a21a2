// Package password provides password hashing for stored user credentials.
package password

import (
	"errors"
	"fmt"
	"strings"
)

// Supported algorithm names, as used in configuration.
const (
	Argon2id = "argon2id"
	Bcrypt   = "bcrypt"
)

// ErrUnknownAlgorithm is returned by New for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown password hashing algorithm")

// Hasher defines the interface for password hashing algorithms.
type Hasher interface {
	// Name returns the algorithm name.
	Name() string

	// Hash creates an encoded hash from a password.
	Hash(password string) (string, error)

	// MaxLength is the longest password in bytes that Hash accepts,
	// or 0 when there is no limit.
	MaxLength() int
}

// New returns a Hasher for the named algorithm with default parameters.
// An empty name selects Argon2id.
func New(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Argon2id:
		return NewArgon2Hasher(nil), nil
	case Bcrypt:
		return NewBcryptHasher(nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}
