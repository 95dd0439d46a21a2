package password

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/aloks98/userreg/internal/crypto"
)

// Argon2Config holds the configuration for Argon2id hashing.
type Argon2Config struct {
	// Memory is the amount of memory used in KiB.
	Memory uint32

	// Iterations is the number of passes over the memory.
	Iterations uint32

	// Parallelism is the number of threads to use.
	Parallelism uint8

	// SaltLength is the length of the random salt in bytes.
	SaltLength uint32

	// KeyLength is the length of the generated key in bytes.
	KeyLength uint32
}

// DefaultArgon2Config returns the OWASP-recommended Argon2id parameters.
func DefaultArgon2Config() *Argon2Config {
	return &Argon2Config{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2Hasher implements Hasher using Argon2id.
type Argon2Hasher struct {
	config *Argon2Config
}

// NewArgon2Hasher creates an Argon2id hasher.
// If config is nil, DefaultArgon2Config is used.
func NewArgon2Hasher(config *Argon2Config) *Argon2Hasher {
	if config == nil {
		config = DefaultArgon2Config()
	}
	return &Argon2Hasher{config: config}
}

// Name returns "argon2id".
func (h *Argon2Hasher) Name() string { return Argon2id }

// Hash returns the password hash in PHC format:
// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt, err := crypto.RandomBytes(int(h.config.SaltLength))
	if err != nil {
		return "", err
	}

	p := argon2Hash{
		memory:      h.config.Memory,
		iterations:  h.config.Iterations,
		parallelism: h.config.Parallelism,
		salt:        salt,
	}
	p.key = p.derive(password, h.config.KeyLength)
	return p.String(), nil
}

// MaxLength returns 0; Argon2id accepts passwords of any length.
func (h *Argon2Hasher) MaxLength() int { return 0 }

// argon2Hash holds the parameters and output of one derivation.
type argon2Hash struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p argon2Hash) derive(password string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.iterations, p.memory, p.parallelism, keyLen)
}

func (p argon2Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		Argon2id,
		argon2.Version,
		p.memory, p.iterations, p.parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

// Ensure Argon2Hasher implements Hasher.
var _ Hasher = (*Argon2Hasher)(nil)
