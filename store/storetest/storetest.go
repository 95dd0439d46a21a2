// Package storetest provides a conformance suite shared by every store.Store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aloks98/userreg/store"
)

// Run exercises s against the store.Store contract. The store must be
// migrated and empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("EmptyList", func(t *testing.T) {
		testEmptyList(t, s)
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		testCreateAndGet(t, s)
	})

	t.Run("Duplicate", func(t *testing.T) {
		testDuplicate(t, s)
	})

	t.Run("ListOrder", func(t *testing.T) {
		testListOrder(t, s)
	})

	t.Run("Concurrent", func(t *testing.T) {
		testConcurrent(t, s)
	})
}

func testEmptyList(t *testing.T, s store.Store) {
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if users == nil {
		t.Error("ListUsers() should return an empty slice, not nil")
	}
	if len(users) != 0 {
		t.Errorf("ListUsers() returned %d users, want 0", len(users))
	}

	count, err := s.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountUsers() = %d, want 0", count)
	}
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()

	user := &store.User{
		Email:        "create@example.com",
		PasswordHash: "hash-1",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("CreateUser() should assign an ID")
	}

	got, err := s.GetUserByEmail(ctx, "create@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetUserByEmail() returned nil")
	}
	if got.ID != user.ID {
		t.Errorf("ID = %d, want %d", got.ID, user.ID)
	}
	if got.PasswordHash != "hash-1" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "hash-1")
	}
	if !got.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, user.CreatedAt)
	}

	missing, err := s.GetUserByEmail(ctx, "missing@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetUserByEmail(missing) = %+v, want nil", missing)
	}
}

func testDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := &store.User{Email: "dup@example.com", PasswordHash: "hash-a"}
	if err := s.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	second := &store.User{Email: "dup@example.com", PasswordHash: "hash-b"}
	err := s.CreateUser(ctx, second)
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("CreateUser(duplicate) error = %v, want ErrDuplicateEmail", err)
	}

	got, err := s.GetUserByEmail(ctx, "dup@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got == nil || got.PasswordHash != "hash-a" {
		t.Errorf("duplicate insert should not overwrite the original user, got %+v", got)
	}
}

func testListOrder(t *testing.T, s store.Store) {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		u := &store.User{
			Email:        fmt.Sprintf("order-%d@example.com", i),
			PasswordHash: "hash",
		}
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	for i := 1; i < len(users); i++ {
		if users[i-1].ID >= users[i].ID {
			t.Fatalf("ListUsers() not ordered by ID: %d before %d", users[i-1].ID, users[i].ID)
		}
	}

	count, err := s.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers() error = %v", err)
	}
	if count != int64(len(users)) {
		t.Errorf("CountUsers() = %d, want %d", count, len(users))
	}
}

func testConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := &store.User{Email: "race@example.com", PasswordHash: "hash"}
			err := s.CreateUser(ctx, u)
			switch {
			case err == nil:
				succeeded.Add(1)
			case !errors.Is(err, store.ErrDuplicateEmail):
				t.Errorf("CreateUser() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := succeeded.Load(); n != 1 {
		t.Errorf("%d concurrent creates succeeded, want 1", n)
	}
}
