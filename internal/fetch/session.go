package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/decisym/torcollect/internal/model"
	"github.com/decisym/torcollect/internal/tor"
)

// Session defaults. Every knob is overridable with a SessionOption.
const (
	// DefaultWait is the polite pause before every request attempt.
	DefaultWait = time.Second

	// DefaultUserAgent presents the session as a mainstream browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

	// DefaultMaxRedirects bounds how many redirect hops a fetch follows.
	DefaultMaxRedirects = 5

	// DefaultBufferSize is the read buffer size in bytes.
	DefaultBufferSize = 8192

	// DefaultFilename is used when neither the response headers nor the URL
	// path yield a filename.
	DefaultFilename = "index.html"

	// defaultRetryAfterSeconds is the wait applied to a 429 response whose
	// Retry-After header is absent or not an integer.
	defaultRetryAfterSeconds = 60

	// schemeHTTPS is the only scheme the session will fetch.
	schemeHTTPS = "https"

	// defaultHTTPSPort is used when the URL carries no explicit port.
	defaultHTTPSPort = 443
)

// browserHeaders mirror what a mainstream browser sends on a top-level
// navigation, so file fetches blend into ordinary traffic.
var browserHeaders = []string{
	"Accept: text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language: en-US,en;q=0.9",
	"Upgrade-Insecure-Requests: 1",
	"Sec-Fetch-Dest: document",
	"Sec-Fetch-Mode: navigate",
	"Sec-Fetch-Site: none",
	"Sec-Fetch-User: ?1",
}

// Transport is the surface the session needs from the anonymized transport:
// an isolated byte stream to a host and port. *tor.Transport satisfies it.
type Transport interface {
	Open(ctx context.Context, host string, port int, token tor.IsolationToken) (net.Conn, error)
}

// Session fetches HTTPS resources through an anonymized transport.
//
// Design decision: All configuration is fixed at construction and the
// session keeps no per-request mutable state, so one session is safe for
// concurrent use without locks. Each session owns exactly one isolation
// token, created at construction: everything fetched through a session
// shares circuits with itself and with nothing else.
type Session struct {
	transport Transport
	token     tor.IsolationToken
	logger    *slog.Logger

	wait         time.Duration
	userAgent    string
	maxRedirects int
	insecure     bool
	bufferSize   int
	defaultName  string

	// hostHeaders carries extra header lines per lowercased host name,
	// appended to file fetches for that host.
	hostHeaders map[string][]string

	// sleep pauses between attempts. Only tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// SessionOption configures a Session at construction.
type SessionOption func(*Session)

// WithWait sets the polite pause before every request attempt.
func WithWait(d time.Duration) SessionOption {
	return func(s *Session) {
		s.wait = d
	}
}

// WithUserAgent sets the User-Agent header value.
func WithUserAgent(agent string) SessionOption {
	return func(s *Session) {
		s.userAgent = agent
	}
}

// WithMaxRedirects sets the redirect budget per fetch.
func WithMaxRedirects(n int) SessionOption {
	return func(s *Session) {
		s.maxRedirects = n
	}
}

// WithInsecure disables upstream certificate verification. Required for
// onion services with self-signed certificates.
func WithInsecure(insecure bool) SessionOption {
	return func(s *Session) {
		s.insecure = insecure
	}
}

// WithBufferSize sets the read buffer size in bytes.
func WithBufferSize(size int) SessionOption {
	return func(s *Session) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

// WithDefaultFilename sets the filename used when nothing better can be
// derived from the response or the URL.
func WithDefaultFilename(name string) SessionOption {
	return func(s *Session) {
		if name != "" {
			s.defaultName = name
		}
	}
}

// WithHostHeaders sets extra header lines to send with file fetches,
// keyed by lowercased host name.
func WithHostHeaders(headers map[string][]string) SessionOption {
	return func(s *Session) {
		s.hostHeaders = headers
	}
}

// WithSessionLogger sets a custom logger for the session.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session over the given transport with a fresh
// isolation token.
func NewSession(transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		transport:    transport,
		token:        tor.NewIsolationToken(),
		wait:         DefaultWait,
		userAgent:    DefaultUserAgent,
		maxRedirects: DefaultMaxRedirects,
		bufferSize:   DefaultBufferSize,
		defaultName:  DefaultFilename,
		sleep:        sleepContext,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Token returns the session's isolation token. Its String form is redacted
// and safe to log.
func (s *Session) Token() tor.IsolationToken {
	return s.token
}

// RequestOptions carries the knobs for an in-memory fetch.
type RequestOptions struct {
	// Method is the HTTP method, GET when empty.
	Method string

	// Headers are extra header lines sent verbatim, e.g.
	// "Accept: text/csv".
	Headers []string

	// Body is an optional request body. A Content-Length header is added
	// when it is non-empty.
	Body []byte
}

// Result is the outcome of an in-memory fetch.
type Result struct {
	// Body is the response payload, de-chunked when necessary.
	Body []byte

	// SuggestedName is a filename proposal derived from the response.
	SuggestedName string

	// StatusLine is the final response status line, verbatim.
	StatusLine string

	// ContentType is the final response content type, "" when absent.
	ContentType string

	// FinalURL is the URL that produced the final response.
	FinalURL string

	// RedirectChain lists each followed redirect target in order.
	RedirectChain []string

	// Retries counts 429 retries performed during the fetch.
	Retries int
}

// FetchFile fetches rawURL with browser-style headers and writes the body
// to outDir under a name resolved from the response and the URL.
func (s *Session) FetchFile(ctx context.Context, rawURL, outDir string) (*model.Artifact, error) {
	start := time.Now()

	ex, err := s.run(ctx, rawURL, requestSpec{method: http.MethodGet, browser: true})
	if err != nil {
		return nil, err
	}

	name := ResolveFilename(ex.resp, ex.finalURL, s.defaultName)
	// Confine the write to the output directory.
	name = filepath.Base(name)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		name = s.defaultName
	}

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outDir, name)
	if err := os.WriteFile(path, ex.body, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	artifact := &model.Artifact{
		URL:           rawURL,
		FinalURL:      ex.finalURL.String(),
		RedirectChain: ex.chain,
		Method:        http.MethodGet,
		Filename:      name,
		Path:          path,
		Size:          int64(len(ex.body)),
		SHA256:        model.Digest(ex.body),
		StatusLine:    ex.resp.StatusLine,
		ContentType:   ex.resp.ContentType(),
		Retries:       ex.retries,
		Elapsed:       time.Since(start),
		FetchedAt:     time.Now().UTC(),
	}

	s.logger.Info("fetched resource",
		"url", rawURL,
		"final_url", artifact.FinalURL,
		"path", path,
		"size", artifact.Size,
		"redirects", len(ex.chain),
	)

	return artifact, nil
}

// Fetch fetches rawURL and returns the body in memory together with a
// suggested filename. Callers control method, extra headers and body.
func (s *Session) Fetch(ctx context.Context, rawURL string, opts RequestOptions) (*Result, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	ex, err := s.run(ctx, rawURL, requestSpec{
		method:  method,
		headers: opts.Headers,
		body:    opts.Body,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Body:          ex.body,
		SuggestedName: SuggestedFilename(ex.resp),
		StatusLine:    ex.resp.StatusLine,
		ContentType:   ex.resp.ContentType(),
		FinalURL:      ex.finalURL.String(),
		RedirectChain: ex.chain,
		Retries:       ex.retries,
	}, nil
}

// requestSpec describes one request to compose.
type requestSpec struct {
	method  string
	headers []string
	body    []byte
	browser bool
}

// exchange is the outcome of the fetch loop: the final parsed response with
// its body de-chunked, plus how we got there.
type exchange struct {
	resp     *Response
	body     []byte
	finalURL *url.URL
	chain    []string
	retries  int
}

// run drives the fetch loop: budget check, rate limit, one round trip, then
// interpret the response into done, redirect or retry.
func (s *Session) run(ctx context.Context, rawURL string, spec requestSpec) (*exchange, error) {
	current, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", rawURL, err)
	}

	var (
		chain     []string
		redirects int
		retries   int
	)

	for {
		// Budget check precedes the fetch, so a chain that never settles
		// costs exactly maxRedirects requests.
		if redirects >= s.maxRedirects {
			return nil, fmt.Errorf("%w: limit %d reached at %s", ErrTooManyRedirects, s.maxRedirects, current.Redacted())
		}

		// Polite pause before every attempt, the first one included.
		if err := s.sleep(ctx, s.wait); err != nil {
			return nil, err
		}

		resp, err := s.roundTrip(ctx, current, spec)
		if err != nil {
			return nil, err
		}

		v, err := interpret(resp)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", current.Redacted(), err)
		}

		switch v.kind {
		case verdictRedirect:
			next, err := resolveRedirect(current, v.location)
			if err != nil {
				return nil, err
			}
			s.logger.Debug("following redirect",
				"from", current.String(),
				"to", next.String(),
				"redirects", redirects+1,
			)
			chain = append(chain, next.String())
			current = next
			redirects++

		case verdictRetry:
			s.logger.Warn("throttled by upstream",
				"url", current.String(),
				"wait", v.wait,
			)
			if err := s.sleep(ctx, v.wait); err != nil {
				return nil, err
			}
			retries++
			// Retrying the same URL does not consume redirect budget.

		case verdictDone:
			body := resp.Body
			if resp.IsChunked() {
				body, err = DecodeChunkedBody(resp.Body)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", current.Redacted(), err)
				}
			}
			return &exchange{
				resp:     resp,
				body:     body,
				finalURL: current,
				chain:    chain,
				retries:  retries,
			}, nil
		}
	}
}

// roundTrip performs one connect/TLS/send/receive cycle against the target.
func (s *Session) roundTrip(ctx context.Context, target *url.URL, spec requestSpec) (*Response, error) {
	if target.Scheme != schemeHTTPS {
		return nil, fmt.Errorf("%w, got %q", ErrSchemeNotSupported, target.Scheme)
	}

	host := target.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoHost, target.String())
	}

	port := defaultHTTPSPort
	if p := target.Port(); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q in URL: %w", p, err)
		}
		port = parsed
	}

	conn, err := s.transport.Open(ctx, host, port, s.token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", net.JoinHostPort(host, strconv.Itoa(port)), err)
	}
	defer conn.Close()

	// Cancellation closes the connection, which unblocks any pending read.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close() //nolint:errcheck // best effort unblock
	})
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // reads still fail without it
	}

	tlsConn, err := wrapTLS(ctx, conn, host, s.insecure)
	if err != nil {
		return nil, err
	}

	if _, err := tlsConn.Write(s.buildRequest(target, spec)); err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", target.Host, err)
	}

	raw, err := s.readAll(tlsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", target.Host, err)
	}

	return ParseResponse(raw)
}

// buildRequest composes the request bytes for the target.
//
// Requests are composed manually because the session speaks
// request-then-close HTTP/1.1 over an already-opened stream: no connection
// reuse, no pipelining, every header under our control.
func (s *Session) buildRequest(target *url.URL, spec requestSpec) []byte {
	requestTarget := target.EscapedPath()
	if requestTarget == "" {
		requestTarget = "/"
	}
	if target.RawQuery != "" {
		requestTarget += "?" + target.RawQuery
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", spec.method, requestTarget)
	fmt.Fprintf(&b, "Host: %s\r\n", target.Host)
	fmt.Fprintf(&b, "User-Agent: %s\r\n", s.userAgent)

	if spec.browser {
		for _, line := range browserHeaders {
			b.WriteString(line)
			b.WriteString("\r\n")
		}
		for _, line := range s.hostHeaders[strings.ToLower(target.Hostname())] {
			b.WriteString(line)
			b.WriteString("\r\n")
		}
	}

	for _, line := range spec.headers {
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	if len(spec.body) > 0 {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(spec.body))
	}

	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")

	if len(spec.body) > 0 {
		b.Write(spec.body)
	}

	return b.Bytes()
}

// readAll drains the connection until the upstream closes it. EOF and
// unexpected EOF both mark the clean end of data under request-then-close.
func (s *Session) readAll(conn net.Conn) ([]byte, error) {
	var data []byte
	buf := make([]byte, s.bufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return data, nil
			}
			return nil, err
		}
	}
}

// verdictKind enumerates what to do with an interpreted response.
type verdictKind int

const (
	// verdictDone means the response is the final success.
	verdictDone verdictKind = iota

	// verdictRedirect means follow the Location target.
	verdictRedirect

	// verdictRetry means wait and re-fetch the same URL.
	verdictRetry
)

// verdict is the interpreted next step for a response.
type verdict struct {
	kind     verdictKind
	location string        // set for verdictRedirect
	wait     time.Duration // set for verdictRetry
}

// interpret decides the next transition from a parsed response. It is a
// pure function so redirect and retry behavior is testable without any
// network involved.
func interpret(resp *Response) (verdict, error) {
	code := resp.StatusCode()

	switch {
	case isRedirectStatus(code):
		location, ok := resp.Location()
		if !ok || location == "" {
			return verdict{}, fmt.Errorf("%w: status %d", ErrNoLocation, code)
		}
		return verdict{kind: verdictRedirect, location: location}, nil

	case code == http.StatusTooManyRequests:
		seconds := resp.RetryAfterSeconds(defaultRetryAfterSeconds)
		return verdict{kind: verdictRetry, wait: time.Duration(seconds) * time.Second}, nil

	case code >= 200 && code < 300:
		return verdict{kind: verdictDone}, nil

	default:
		return verdict{}, &StatusError{StatusLine: resp.StatusLine, Code: code}
	}
}

// isRedirectStatus reports whether the code is a follow-able redirect.
func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// resolveRedirect resolves a Location value against the current URL.
// Absolute locations are taken verbatim; root-relative and path-relative
// locations resolve against the current URL, preserving scheme, host and
// any explicit port.
func resolveRedirect(current *url.URL, location string) (*url.URL, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redirect location %q: %w", location, err)
	}
	return current.ResolveReference(ref), nil
}

// sleepContext pauses for d or returns early with the context error.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
