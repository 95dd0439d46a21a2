// Package testutil provides container-backed fixtures for integration tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aloks98/userreg/store"
	sqlstore "github.com/aloks98/userreg/store/sql"
)

// SetupPostgres creates a PostgreSQL testcontainer and returns a migrated store.
// The container is automatically cleaned up when the test finishes.
func SetupPostgres(t testing.TB) store.Store {
	return SetupPostgresWithPrefix(t, "test_")
}

// SetupPostgresWithPrefix is SetupPostgres with a custom table prefix.
func SetupPostgresWithPrefix(t testing.TB, tablePrefix string) store.Store {
	t.Helper()
	ctx := context.Background()

	dsn := PostgresDSN(t)

	s, err := sqlstore.New(&sqlstore.Config{
		Dialect:     sqlstore.PostgreSQL,
		DSN:         dsn,
		TablePrefix: tablePrefix,
	})
	if err != nil {
		t.Fatalf("Failed to create SQL store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("Failed to close store: %v", err)
		}
	})

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return s
}

// PostgresDSN starts a PostgreSQL testcontainer and returns its DSN.
func PostgresDSN(t testing.TB) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("userreg_test"),
		postgres.WithUsername("userreg"),
		postgres.WithPassword("userreg"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}
	return dsn
}
