package fetch

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Response is a parsed HTTP/1.1 response frame.
//
// Design decision: We keep header lines verbatim rather than folding them
// into a map. Order and duplicates are preserved exactly as received, which
// matters for provenance (the raw head can be reproduced) and keeps lookup
// semantics explicit: helpers scan in order and the first match wins.
type Response struct {
	// StatusLine is the first line of the response, verbatim
	// (e.g. "HTTP/1.1 302 Found").
	StatusLine string

	// Headers holds the literal header lines in received order.
	Headers []string

	// Body is the raw payload after the header terminator. Still chunked
	// when the upstream sent Transfer-Encoding: chunked.
	Body []byte
}

// ParseResponse splits a raw response byte stream at the first blank line
// into head and body. A stream without the CRLFCRLF separator is not an
// HTTP response we can interpret.
func ParseResponse(raw []byte) (*Response, error) {
	head, body, found := bytes.Cut(raw, []byte("\r\n\r\n"))
	if !found {
		return nil, fmt.Errorf("%w: missing header terminator", ErrInvalidResponse)
	}

	lines := strings.Split(string(head), "\r\n")
	if lines[0] == "" {
		return nil, fmt.Errorf("%w: empty status line", ErrInvalidResponse)
	}

	return &Response{
		StatusLine: lines[0],
		Headers:    lines[1:],
		Body:       body,
	}, nil
}

// StatusCode returns the numeric status code from the status line, or 0
// when the line does not carry a parsable code.
func (r *Response) StatusCode() int {
	fields := strings.Fields(r.StatusLine)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

// Header returns the value of the first header line matching name
// (case-insensitive). Surrounding whitespace is trimmed from the value.
func (r *Response) Header(name string) (string, bool) {
	for _, line := range r.Headers {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

// IsChunked reports whether the body was sent with chunked transfer
// encoding.
func (r *Response) IsChunked() bool {
	value, ok := r.Header("Transfer-Encoding")
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(value), "chunked")
}

// Location returns the redirect target header, if present.
func (r *Response) Location() (string, bool) {
	return r.Header("Location")
}

// ContentType returns the Content-Type header value, or "" when absent.
func (r *Response) ContentType() string {
	value, _ := r.Header("Content-Type")
	return value
}

// RetryAfterSeconds returns the Retry-After header interpreted as integer
// seconds. Absent, non-integer or negative values yield the fallback;
// HTTP-date forms are deliberately not parsed.
func (r *Response) RetryAfterSeconds(fallback int) int {
	value, ok := r.Header("Retry-After")
	if !ok {
		return fallback
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return fallback
	}
	return seconds
}

// ContentDispositionFilename extracts the filename parameter from a
// Content-Disposition header. Trailing ;-separated parameters are stripped
// and surrounding quotes and whitespace trimmed. Returns false when the
// header or parameter is absent, or the name is empty after trimming.
func (r *Response) ContentDispositionFilename() (string, bool) {
	value, ok := r.Header("Content-Disposition")
	if !ok {
		return "", false
	}

	_, after, found := strings.Cut(value, "filename=")
	if !found {
		return "", false
	}

	name := after
	if idx := strings.Index(name, ";"); idx != -1 {
		name = name[:idx]
	}
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"`)
	name = strings.TrimSpace(name)

	if name == "" {
		return "", false
	}
	return name, true
}
