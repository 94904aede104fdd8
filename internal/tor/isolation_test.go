package tor

import (
	"strings"
	"testing"
)

// TestNewIsolationToken tests isolation token generation.
func TestNewIsolationToken(t *testing.T) {
	t.Parallel()

	t.Run("generates distinct tokens", func(t *testing.T) {
		t.Parallel()

		first := NewIsolationToken()
		second := NewIsolationToken()

		if first == second {
			t.Error("expected distinct tokens from successive calls")
		}
	})

	t.Run("generated token is not zero", func(t *testing.T) {
		t.Parallel()

		token := NewIsolationToken()
		if token.IsZero() {
			t.Error("expected generated token to be non-zero")
		}
	})

	t.Run("zero value reports zero", func(t *testing.T) {
		t.Parallel()

		var token IsolationToken
		if !token.IsZero() {
			t.Error("expected zero value to report IsZero")
		}
	})
}

// TestIsolationTokenAuth tests SOCKS5 credential conversion.
func TestIsolationTokenAuth(t *testing.T) {
	t.Parallel()

	t.Run("generated token carries credentials", func(t *testing.T) {
		t.Parallel()

		token := NewIsolationToken()
		auth := token.auth()
		if auth == nil {
			t.Fatal("expected non-nil auth")
		}
		if auth.User != isolationUser {
			t.Errorf("expected user %q, got %q", isolationUser, auth.User)
		}
		if auth.Password == "" {
			t.Error("expected non-empty password")
		}
	})

	t.Run("zero token has no credentials", func(t *testing.T) {
		t.Parallel()

		var token IsolationToken
		if token.auth() != nil {
			t.Error("expected nil auth for zero token")
		}
	})
}

// TestIsolationTokenString tests that tokens never leak their full secret.
func TestIsolationTokenString(t *testing.T) {
	t.Parallel()

	t.Run("redacts the secret", func(t *testing.T) {
		t.Parallel()

		token := NewIsolationToken()
		s := token.String()

		if !strings.HasPrefix(s, "isolation:") {
			t.Errorf("expected isolation: prefix, got %q", s)
		}
		if strings.Contains(s, token.pass) {
			t.Errorf("String() leaked the full secret: %q", s)
		}
	})

	t.Run("zero token renders as none", func(t *testing.T) {
		t.Parallel()

		var token IsolationToken
		if token.String() != "isolation:none" {
			t.Errorf("expected isolation:none, got %q", token.String())
		}
	})
}
