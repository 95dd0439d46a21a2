package userreg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/aloks98/userreg/password"
	"github.com/aloks98/userreg/store"
	"github.com/aloks98/userreg/store/memory"
)

func newBenchService(b *testing.B, s store.Store, h password.Hasher) *Service {
	b.Helper()
	svc, err := New(
		WithStore(s),
		WithPasswordHasher(h),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithConnectRetries(1, 0),
	)
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}
	b.Cleanup(func() { svc.Close() })
	return svc
}

func BenchmarkRegister_Bcrypt(b *testing.B) {
	svc := newBenchService(b, memory.New(), password.NewBcryptHasher(&password.BcryptConfig{Cost: bcrypt.MinCost}))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := RegisterRequest{Email: fmt.Sprintf("user%d@example.com", i), Password: "secret1"}
		if _, err := svc.Register(ctx, req); err != nil {
			b.Fatalf("Register() error = %v", err)
		}
	}
}

func BenchmarkRegister_Argon2id(b *testing.B) {
	svc := newBenchService(b, memory.New(), password.NewArgon2Hasher(nil))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := RegisterRequest{Email: fmt.Sprintf("user%d@example.com", i), Password: "secret1"}
		if _, err := svc.Register(ctx, req); err != nil {
			b.Fatalf("Register() error = %v", err)
		}
	}
}

func BenchmarkRegister_Duplicate(b *testing.B) {
	svc := newBenchService(b, memory.New(), password.NewBcryptHasher(&password.BcryptConfig{Cost: bcrypt.MinCost}))
	ctx := context.Background()
	req := RegisterRequest{Email: "taken@example.com", Password: "secret1"}
	if _, err := svc.Register(ctx, req); err != nil {
		b.Fatalf("Register() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Register(ctx, req); !IsConflictError(err) {
			b.Fatalf("Register() error = %v, want conflict", err)
		}
	}
}

func BenchmarkListUsers(b *testing.B) {
	for _, n := range []int{10, 1000} {
		b.Run(fmt.Sprintf("users=%d", n), func(b *testing.B) {
			svc := newBenchService(b, memory.New(), password.NewBcryptHasher(&password.BcryptConfig{Cost: bcrypt.MinCost}))
			ctx := context.Background()
			for i := 0; i < n; i++ {
				req := RegisterRequest{Email: fmt.Sprintf("user%d@example.com", i), Password: "secret1"}
				if _, err := svc.Register(ctx, req); err != nil {
					b.Fatalf("Register() error = %v", err)
				}
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := svc.ListUsers(ctx); err != nil {
					b.Fatalf("ListUsers() error = %v", err)
				}
			}
		})
	}
}
