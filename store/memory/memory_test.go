package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aloks98/userreg/store"
	"github.com/aloks98/userreg/store/storetest"
)

func TestNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() returned nil")
	}
	defer s.Close()
}

func TestStore_PingAndClose(t *testing.T) {
	s := New()

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := s.Ping(context.Background()); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Ping() after Close error = %v, want %v", err, store.ErrClosed)
	}
}

func TestStore_Migrate(t *testing.T) {
	s := New()
	defer s.Close()

	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() error = %v", err)
	}
}

func TestStore_CreateAndGetUser(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	u := &store.User{Email: "a@example.com", PasswordHash: "hash-a"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID != 1 {
		t.Errorf("ID = %d, want 1", u.ID)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := s.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetUserByEmail() returned nil")
	}
	if got.PasswordHash != "hash-a" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "hash-a")
	}

	missing, err := s.GetUserByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if missing != nil {
		t.Error("GetUserByEmail() for unknown email should return nil")
	}
}

func TestStore_CreateUser_Duplicate(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	if err := s.CreateUser(ctx, &store.User{Email: "a@example.com"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	err := s.CreateUser(ctx, &store.User{Email: "a@example.com"})
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Errorf("CreateUser() duplicate error = %v, want %v", err, store.ErrDuplicateEmail)
	}

	count, _ := s.CountUsers(ctx)
	if count != 1 {
		t.Errorf("CountUsers() = %d, want 1", count)
	}
}

func TestStore_ListUsers_Ordered(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		u := &store.User{Email: fmt.Sprintf("user%d@example.com", i)}
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 10 {
		t.Fatalf("len(users) = %d, want 10", len(users))
	}
	for i, u := range users {
		if u.ID != int64(i+1) {
			t.Errorf("users[%d].ID = %d, want %d", i, u.ID, i+1)
		}
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	u := &store.User{Email: "a@example.com", PasswordHash: "h"}
	_ = s.CreateUser(ctx, u)
	u.PasswordHash = "mutated"

	got, _ := s.GetUserByEmail(ctx, "a@example.com")
	if got.PasswordHash != "h" {
		t.Errorf("stored PasswordHash = %q, want %q", got.PasswordHash, "h")
	}
}

func TestStore_ConcurrentCreate(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.CreateUser(ctx, &store.User{Email: "same@example.com"}); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
}

func TestStore_UseAfterClose(t *testing.T) {
	s := New()
	_ = s.Close()
	ctx := context.Background()

	if err := s.CreateUser(ctx, &store.User{Email: "a@example.com"}); !errors.Is(err, store.ErrClosed) {
		t.Errorf("CreateUser() error = %v, want %v", err, store.ErrClosed)
	}
	if _, err := s.ListUsers(ctx); !errors.Is(err, store.ErrClosed) {
		t.Errorf("ListUsers() error = %v, want %v", err, store.ErrClosed)
	}
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, New())
}
