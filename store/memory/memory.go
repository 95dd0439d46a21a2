// Package memory provides an in-memory store implementation for testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aloks98/userreg/store"
)

// Store is an in-memory implementation of the store.Store interface.
// It is intended for testing and development purposes.
type Store struct {
	mu sync.RWMutex

	users   map[int64]*store.User
	byEmail map[string]int64
	nextID  int64

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:   make(map[int64]*store.User),
		byEmail: make(map[string]int64),
	}
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping reports ErrClosed once the store has been closed.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(ctx context.Context) error {
	return nil
}

// CreateUser stores a copy of user and assigns the next sequential ID.
func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	if _, exists := s.byEmail[user.Email]; exists {
		return store.ErrDuplicateEmail
	}

	s.nextID++
	user.ID = s.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.users[user.ID] = user.Clone()
	s.byEmail[user.Email] = user.ID
	return nil
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrClosed
	}

	id, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	return s.users[id].Clone(), nil
}

// ListUsers returns all users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrClosed
	}

	result := make([]*store.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CountUsers returns the number of stored users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, store.ErrClosed
	}
	return int64(len(s.users)), nil
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
