// Package redis provides Redis storage for registered users.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aloks98/userreg/internal/hash"
	"github.com/aloks98/userreg/store"
)

// Key prefixes for Redis storage.
const (
	prefixUser      = "userreg:user:"
	prefixUserEmail = "userreg:user_email:"
	keyUserSequence = "userreg:user_seq"
	keyUsersByID    = "userreg:users"
)

// createUser registers a user atomically. It returns 0 when the email
// index key already exists, otherwise the new user ID.
//
// KEYS[1] email index, KEYS[2] id sequence, KEYS[3] id sorted set.
// ARGV[1] user key prefix, ARGV[2] user JSON.
var createUser = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local id = redis.call('INCR', KEYS[2])
redis.call('SET', ARGV[1] .. id, ARGV[2])
redis.call('SET', KEYS[1], id)
redis.call('ZADD', KEYS[3], id, id)
return id
`)

// userRecord is the JSON stored per user. The ID lives in the key.
type userRecord struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"password"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store implements store.Store using Redis.
type Store struct {
	client redis.UniversalClient
}

// Config holds Redis store configuration.
type Config struct {
	// Client is an existing Redis client.
	// If provided, other options are ignored.
	Client redis.UniversalClient

	// Addr is the Redis server address (host:port).
	Addr string

	// Password is the Redis password.
	Password string

	// DB is the Redis database number.
	DB int

	// PoolSize is the maximum number of connections.
	PoolSize int
}

// New creates a new Redis store.
func New(cfg *Config) (*Store, error) {
	var client redis.UniversalClient

	if cfg.Client != nil {
		client = cfg.Client
	} else {
		opts := &redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		client = redis.NewClient(opts)
	}

	return &Store{client: client}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Migrate is a no-op for Redis as it doesn't require schema migration.
func (s *Store) Migrate(ctx context.Context) error {
	return nil
}

// CreateUser persists a user and sets its generated ID.
func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(userRecord{
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return err
	}

	keys := []string{emailKey(user.Email), keyUserSequence, keyUsersByID}
	id, err := createUser.Run(ctx, s.client, keys, prefixUser, data).Int64()
	if err != nil {
		return err
	}
	if id == 0 {
		return store.ErrDuplicateEmail
	}

	user.ID = id
	return nil
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	idStr, err := s.client.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, prefixUser+idStr).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return decodeUser(id, data)
}

// ListUsers returns all users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]*store.User, error) {
	ids, err := s.client.ZRange(ctx, keyUsersByID, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	users := make([]*store.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = prefixUser + id
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(ids[i], 10, 64)
		if err != nil {
			return nil, err
		}
		user, err := decodeUser(id, []byte(raw))
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

// CountUsers returns the number of users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.client.ZCard(ctx, keyUsersByID).Result()
}

func emailKey(email string) string {
	return prefixUserEmail + hash.EmailKey(email)
}

func decodeUser(id int64, data []byte) (*store.User, error) {
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &store.User{
		ID:           id,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
