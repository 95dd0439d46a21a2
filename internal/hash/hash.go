// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256 computes the SHA256 hash of the input and returns it as a hex string.
func SHA256(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// EmailKey returns a fixed-length, opaque key for an already normalized email.
// Keys are safe to embed in storage keys without escaping.
func EmailKey(email string) string {
	return SHA256(email)
}
