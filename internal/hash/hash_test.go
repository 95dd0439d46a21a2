package hash

import (
	"testing"
)

func TestSHA256(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			input:    "hello",
			expected: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			input:    "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SHA256(tt.input)
			if got != tt.expected {
				t.Errorf("SHA256(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEmailKey(t *testing.T) {
	a := EmailKey("user@example.com")
	b := EmailKey("user@example.com")
	c := EmailKey("other@example.com")

	if a != b {
		t.Error("EmailKey() should be deterministic")
	}
	if a == c {
		t.Error("EmailKey() should differ for different emails")
	}
	if len(a) != 64 {
		t.Errorf("EmailKey() length = %d, want 64", len(a))
	}
}
