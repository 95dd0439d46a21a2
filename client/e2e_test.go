package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/aloks98/userreg"
	"github.com/aloks98/userreg/client"
	"github.com/aloks98/userreg/httpapi"
	"github.com/aloks98/userreg/httpapi/chi"
	"github.com/aloks98/userreg/password"
	"github.com/aloks98/userreg/store/memory"
)

func TestClientAgainstService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := userreg.New(
		userreg.WithStore(memory.New()),
		userreg.WithPasswordHasher(password.NewBcryptHasher(&password.BcryptConfig{Cost: bcrypt.MinCost})),
		userreg.WithLogger(logger),
		userreg.WithConnectRetries(1, 0),
	)
	if err != nil {
		t.Fatalf("userreg.New() error = %v", err)
	}
	defer svc.Close()

	srv := httptest.NewServer(chi.NewRouter(svc, &httpapi.Options{Logger: logger}))
	defer srv.Close()

	c, err := client.New(srv.URL, client.WithLogger(logger))
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	ctx := context.Background()

	msg, err := c.Register(ctx, "a@example.com", "secret1")
	if err != nil || msg != httpapi.MessageRegistered {
		t.Fatalf("Register() = %q, %v", msg, err)
	}

	_, err = c.Register(ctx, "a@example.com", "secret1")
	var rej *client.RejectionError
	if !errors.As(err, &rej) || rej.Message != "User already exists" {
		t.Fatalf("duplicate Register() error = %v, want rejection", err)
	}

	users, err := c.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 || users[0].Email != "a@example.com" || users[0].Password != userreg.DefaultPasswordMask {
		t.Errorf("ListUsers() = %+v", users)
	}
}
