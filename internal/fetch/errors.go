package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// Fetch errors, grouped by failure class.
//
// Design decision: We keep one sentinel per distinct failure mode instead of
// a single generic fetch error. Callers react differently to each class:
// policy violations are caller bugs and fail fast, protocol violations point
// at a broken or hostile upstream, and transport failures are worth a retry
// on a fresh circuit.
var (
	// Policy errors. The request is refused before any network activity.

	// ErrSchemeNotSupported is returned for any URL scheme other than https.
	ErrSchemeNotSupported = errors.New("only HTTPS is supported")

	// ErrTooManyRedirects is returned when a redirect chain exceeds the
	// session's redirect budget. The check runs before each fetch, so the
	// budget bounds the number of requests actually sent.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrNoHost is returned when the request URL has no host component.
	ErrNoHost = errors.New("URL has no host")

	// Protocol errors. The upstream sent bytes we refuse to interpret.

	// ErrInvalidResponse is returned when the response stream has no
	// header/body separator.
	ErrInvalidResponse = errors.New("invalid HTTP response")

	// ErrNoLocation is returned for a redirect status without a Location
	// header.
	ErrNoLocation = errors.New("redirect response without Location header")

	// ErrIncompleteChunk is returned when a chunk announces more payload
	// than the stream contains.
	ErrIncompleteChunk = errors.New("incomplete chunk data")

	// ErrMalformedChunkSize is returned when a chunk size line is not valid
	// hexadecimal or is missing its CRLF terminator.
	ErrMalformedChunkSize = errors.New("malformed chunk size")

	// ErrTLSHandshake is returned when the TLS handshake with the upstream
	// fails.
	ErrTLSHandshake = errors.New("TLS handshake failed")
)

// StatusError reports a terminal upstream status: anything that is not a
// success, a follow-able redirect, or a retryable 429. The verbatim status
// line rides along for diagnostics.
type StatusError struct {
	// StatusLine is the upstream status line as received.
	StatusLine string

	// Code is the parsed status code, 0 if unparsable.
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected upstream status: %s", strings.TrimSpace(e.StatusLine))
}
