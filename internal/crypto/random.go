// Package crypto provides cryptographic random input for password hashing.
package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrInvalidLength is returned for a non-positive length.
var ErrInvalidLength = errors.New("length must be positive")

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}
