package tor

import (
	"github.com/google/uuid"
	"golang.org/x/net/proxy"
)

// IsolationToken separates streams onto distinct Tor circuits.
//
// Tor isolates streams that present different SOCKS5 credentials
// (IsolateSOCKSAuth, on by default), so the token is realized as a
// username/password pair. Two sessions holding different tokens never share
// a circuit; all streams opened with the same token may.
//
// Design decision: The token is an opaque value type created once per
// session and immutable afterward. Sessions own their token and pass it
// into every Open call; nothing else reads the credentials, and String()
// never reveals them, so they cannot leak through logs or errors.
type IsolationToken struct {
	user string
	pass string
}

// isolationUser is the fixed username half of every token. Using a stable
// username keeps proxy-side logs legible; uniqueness comes from the
// password half.
const isolationUser = "torcollect"

// NewIsolationToken creates a fresh token. Each call yields a token that
// maps to its own circuit family.
func NewIsolationToken() IsolationToken {
	return IsolationToken{
		user: isolationUser,
		pass: uuid.NewString(),
	}
}

// IsZero reports whether the token is the zero value. The zero token opens
// streams without SOCKS authentication, sharing the proxy's default circuit.
func (t IsolationToken) IsZero() bool {
	return t == IsolationToken{}
}

// auth returns the SOCKS5 credentials for the dialer, or nil for the zero
// token.
func (t IsolationToken) auth() *proxy.Auth {
	if t.IsZero() {
		return nil
	}
	return &proxy.Auth{User: t.user, Password: t.pass}
}

// String identifies the token in logs without exposing the credentials.
func (t IsolationToken) String() string {
	if t.IsZero() {
		return "isolation:none"
	}
	// The first UUID group is enough to tell sessions apart in a log.
	return "isolation:" + t.pass[:8]
}
