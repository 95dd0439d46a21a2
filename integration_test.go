//go:build integration

package userreg

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/aloks98/userreg/internal/testutil"
	"github.com/aloks98/userreg/password"
	"github.com/aloks98/userreg/store"
	redisstore "github.com/aloks98/userreg/store/redis"
	sqlstore "github.com/aloks98/userreg/store/sql"
)

// integrationStores returns one migrated store per available backend.
// PostgreSQL and Redis run in containers; MySQL runs when MYSQL_DSN is set.
func integrationStores(t *testing.T) map[string]store.Store {
	t.Helper()
	ctx := context.Background()

	stores := map[string]store.Store{
		"postgres": testutil.SetupPostgresWithPrefix(t, "int_test_"),
	}

	rs, err := redisstore.New(&redisstore.Config{Client: testutil.SetupRedis(t)})
	if err != nil {
		t.Fatalf("redis store: %v", err)
	}
	stores["redis"] = rs

	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		ms, err := sqlstore.New(&sqlstore.Config{Dialect: sqlstore.MySQL, DSN: dsn, TablePrefix: "int_test_"})
		if err != nil {
			t.Fatalf("mysql store: %v", err)
		}
		if err := ms.Migrate(ctx); err != nil {
			t.Fatalf("mysql migrate: %v", err)
		}
		t.Cleanup(func() { ms.Close() })
		stores["mysql"] = ms
	}

	return stores
}

func integrationService(t *testing.T, s store.Store) *Service {
	t.Helper()
	svc, err := New(
		WithStore(s),
		WithPasswordHasher(password.NewBcryptHasher(&password.BcryptConfig{Cost: bcrypt.MinCost})),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithConnectRetries(3, 0),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc
}

func TestE2E_RegisterAndList(t *testing.T) {
	for name, s := range integrationStores(t) {
		t.Run(name, func(t *testing.T) {
			svc := integrationService(t, s)
			ctx := context.Background()

			for _, email := range []string{"first@example.com", "second@example.com"} {
				if _, err := svc.Register(ctx, RegisterRequest{Email: email, Password: "secret1"}); err != nil {
					t.Fatalf("Register(%s) error = %v", email, err)
				}
			}

			_, err := svc.Register(ctx, RegisterRequest{Email: "FIRST@example.com", Password: "secret1"})
			if !IsConflictError(err) {
				t.Errorf("duplicate Register() error = %v, want conflict", err)
			}

			users, err := svc.ListUsers(ctx)
			if err != nil {
				t.Fatalf("ListUsers() error = %v", err)
			}
			if len(users) != 2 || users[0].Email != "first@example.com" || users[1].Email != "second@example.com" {
				t.Errorf("ListUsers() = %+v", users)
			}
			for _, u := range users {
				if u.Password != DefaultPasswordMask {
					t.Errorf("user %d password = %q, want mask", u.ID, u.Password)
				}
			}
		})
	}
}

func TestE2E_ConcurrentDuplicateRegistration(t *testing.T) {
	for name, s := range integrationStores(t) {
		t.Run(name, func(t *testing.T) {
			svc := integrationService(t, s)
			ctx := context.Background()

			const workers = 8
			var wg sync.WaitGroup
			results := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Register(ctx, RegisterRequest{Email: "race@example.com", Password: "secret1"})
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			var ok, conflicts int
			for err := range results {
				switch {
				case err == nil:
					ok++
				case IsConflictError(err):
					conflicts++
				default:
					t.Errorf("Register() unexpected error = %v", err)
				}
			}
			if ok != 1 || conflicts != workers-1 {
				t.Errorf("ok = %d, conflicts = %d, want 1 and %d", ok, conflicts, workers-1)
			}
		})
	}
}
