package password

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr error
	}{
		{"", Argon2id, nil},
		{"argon2id", Argon2id, nil},
		{" BCRYPT ", Bcrypt, nil},
		{"md5", "", ErrUnknownAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(tt.name)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New(%q) error = %v, want %v", tt.name, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if h.Name() != tt.want {
				t.Errorf("New(%q).Name() = %q, want %q", tt.name, h.Name(), tt.want)
			}
		})
	}
}
