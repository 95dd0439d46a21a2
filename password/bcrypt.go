package password

import "golang.org/x/crypto/bcrypt"

// MaxBcryptLength is the longest password bcrypt accepts, in bytes.
const MaxBcryptLength = 72

// BcryptConfig holds the configuration for bcrypt hashing.
type BcryptConfig struct {
	// Cost is the bcrypt cost factor (4-31).
	Cost int
}

// DefaultBcryptConfig returns default parameters for bcrypt.
func DefaultBcryptConfig() *BcryptConfig {
	return &BcryptConfig{Cost: 12}
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	config *BcryptConfig
}

// NewBcryptHasher creates a bcrypt hasher. The cost is clamped to the range
// bcrypt accepts. If config is nil, DefaultBcryptConfig is used.
func NewBcryptHasher(config *BcryptConfig) *BcryptHasher {
	if config == nil {
		config = DefaultBcryptConfig()
	}
	cost := min(max(config.Cost, bcrypt.MinCost), bcrypt.MaxCost)
	return &BcryptHasher{config: &BcryptConfig{Cost: cost}}
}

// Name returns "bcrypt".
func (h *BcryptHasher) Name() string { return Bcrypt }

// Hash creates a bcrypt hash. Passwords longer than MaxBcryptLength bytes
// are rejected.
func (h *BcryptHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.config.Cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// MaxLength returns MaxBcryptLength.
func (h *BcryptHasher) MaxLength() int { return MaxBcryptLength }

// Ensure BcryptHasher implements Hasher.
var _ Hasher = (*BcryptHasher)(nil)
