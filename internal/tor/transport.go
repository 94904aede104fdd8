package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

// Bootstrap retry policy. Tor daemons fail to come up for transient reasons
// (directory fetch timeouts, slow circuit builds), so a failed attempt is
// retried after a pause before the transport is declared unusable.
const (
	// bootstrapAttempts is the maximum number of bootstrap attempts.
	bootstrapAttempts = 3

	// bootstrapRetryPause is the wait between failed bootstrap attempts.
	bootstrapRetryPause = 5 * time.Second
)

// checkProxyTimeout is the timeout for probing the SOCKS5 proxy.
// We use a short timeout here because this is just a connectivity check,
// not an actual request through Tor.
const checkProxyTimeout = 2 * time.Second

// Transport opens isolated byte streams through the Tor network.
//
// A Transport either owns an embedded Tor daemon (the default) or attaches
// to an external SOCKS5 proxy. Either way, streams are opened with
// Open(ctx, host, port, token): every distinct IsolationToken gets its own
// SOCKS5 credentials and therefore its own circuits.
//
// A single Transport is safe for concurrent use and is meant to be shared
// by all sessions of one process; isolation between sessions comes from
// their tokens, not from separate transports.
type Transport struct {
	// socksAddr is the SOCKS5 proxy address in "host:port" format.
	// Set by WithSocksAddr for external mode, or after launch in embedded
	// mode.
	socksAddr string

	// embedded is the daemon this transport launched, nil in external mode.
	embedded *EmbeddedTor

	// startupTimeout bounds embedded daemon bootstrap.
	startupTimeout time.Duration

	// retryPause is the wait between bootstrap attempts. Only tests change
	// it from bootstrapRetryPause.
	retryPause time.Duration

	// logger receives bootstrap progress and stream-open failures.
	logger *slog.Logger

	// dialers caches one SOCKS5 dialer per isolation token so repeated
	// opens by the same session reuse the dialer.
	mu      sync.Mutex
	dialers map[IsolationToken]proxy.Dialer
}

// TransportOption configures a Transport before bootstrap.
type TransportOption func(*Transport)

// WithSocksAddr attaches the transport to an already-running SOCKS5 proxy
// at the given "host:port" address instead of launching an embedded daemon.
func WithSocksAddr(addr string) TransportOption {
	return func(t *Transport) {
		t.socksAddr = addr
	}
}

// WithBootstrapTimeout sets the maximum time to wait for the embedded
// daemon to bootstrap on each attempt.
func WithBootstrapTimeout(timeout time.Duration) TransportOption {
	return func(t *Transport) {
		t.startupTimeout = timeout
	}
}

// WithTransportLogger sets a custom logger for the transport.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger
	}
}

// newTransport builds an un-bootstrapped transport with options applied.
func newTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		startupTimeout: defaultStartupTimeout,
		retryPause:     bootstrapRetryPause,
		dialers:        make(map[IsolationToken]proxy.Dialer),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		t.logger = slog.Default()
	}

	return t
}

// Bootstrap creates the transport and brings it up, retrying up to
// bootstrapAttempts times with a pause between failures. In embedded mode
// each attempt launches a fresh daemon; in external mode each attempt
// re-probes the configured proxy.
//
// All attempts failing yields ErrBootstrapFailed wrapping the last cause.
func Bootstrap(ctx context.Context, opts ...TransportOption) (*Transport, error) {
	t := newTransport(opts...)
	if err := t.bootstrap(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// bootstrap runs the attempt loop for an already-constructed transport.
func (t *Transport) bootstrap(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= bootstrapAttempts; attempt++ {
		err := t.start(ctx)
		if err == nil {
			t.logger.Info("transport ready",
				"socks_addr", t.socksAddr,
				"embedded", t.embedded != nil,
				"attempt", attempt,
			)
			return nil
		}
		// Cancellation is not a bootstrap failure; surface it directly.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		lastErr = err
		t.logger.Warn("transport bootstrap attempt failed",
			"attempt", attempt,
			"max_attempts", bootstrapAttempts,
			"error", err,
		)

		if attempt < bootstrapAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.retryPause):
			}
		}
	}

	return fmt.Errorf("%w (last error: %v)", ErrBootstrapFailed, lastErr)
}

// start performs a single bootstrap attempt.
func (t *Transport) start(ctx context.Context) error {
	// External mode: verify the configured proxy actually speaks SOCKS5.
	if t.embedded == nil && t.socksAddr != "" {
		if !isValidProxyAddress(t.socksAddr) {
			return ErrInvalidProxyAddress
		}
		if status := t.CheckConnection(ctx); status != ProxyStatusOK {
			return status.Error()
		}
		return nil
	}

	embedded := NewEmbeddedTor(WithStartupTimeout(t.startupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return err
	}

	t.embedded = embedded
	t.socksAddr = embedded.SocksAddr()
	return nil
}

// Close shuts down the embedded daemon if this transport launched one.
// It is safe to call on an external-mode transport and to call repeatedly.
func (t *Transport) Close() error {
	if t.embedded == nil {
		return nil
	}
	err := t.embedded.Stop()
	t.embedded = nil
	return err
}

// SocksAddr returns the SOCKS5 proxy address the transport dials through.
func (t *Transport) SocksAddr() string {
	return t.socksAddr
}

// Embedded reports whether this transport owns an embedded daemon.
func (t *Transport) Embedded() bool {
	return t.embedded != nil
}

// Open establishes a TCP stream to host:port through the transport,
// isolated from streams opened under other tokens.
//
// Design decision: We wrap the blocking SOCKS5 dial with a goroutine and
// select on the context because proxy.Dialer has no context support. If the
// context is cancelled the goroutine closes the late connection when the
// dial eventually completes, so no descriptor leaks.
func (t *Transport) Open(ctx context.Context, host string, port int, token IsolationToken) (net.Conn, error) {
	if host == "" {
		return nil, ErrMissingHost
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	dialer, err := t.dialerFor(token)
	if err != nil {
		return nil, err
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := dialer.Dial("tcp", address)
		select {
		case resultCh <- dialResult{conn, err}:
		default:
			// Receiver gave up; don't leak the connection.
			if conn != nil {
				_ = conn.Close() //nolint:errcheck // best effort
			}
		}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return nil, fmt.Errorf("open stream to %s: %w", address, result.err)
		}
		return result.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dialerFor returns the cached SOCKS5 dialer for the token, creating it on
// first use.
func (t *Transport) dialerFor(token IsolationToken) (proxy.Dialer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if dialer, ok := t.dialers[token]; ok {
		return dialer, nil
	}

	dialer, err := proxy.SOCKS5("tcp", t.socksAddr, token.auth(), proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	t.dialers[token] = dialer
	return dialer, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
// We use a simple check rather than a full URL parser because the format
// is very specific (no scheme, no path, just host and port).
func isValidProxyAddress(address string) bool {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return false
	}
	if host == "" {
		return false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return false
	}
	return port >= 1 && port <= 65535
}

// SOCKS5 protocol constants for the probe.
const (
	socks5Version        = 0x05
	socks5AuthNone       = 0x00
	socks5AuthNoAccept   = 0xFF
	socks5CmdConnect     = 0x01
	socks5AddrTypeDomain = 0x03

	// socks5TestOnion is a synthetic .onion address used for SOCKS5
	// verification. This is intentionally a non-existent address - we only
	// need to verify the proxy responds to SOCKS5 CONNECT requests, not
	// that the connection succeeds. Using a fake address avoids any
	// interaction with real services.
	socks5TestOnion = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
)

// CheckConnection verifies that the proxy is running and speaks SOCKS5.
// It returns a ProxyStatus indicating the result of the check.
//
// The check performs a real SOCKS5 handshake rather than a banner match:
// a fake proxy cannot easily mimic proper SOCKS5 protocol behavior.
func (t *Transport) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.socksAddr)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Version negotiation: offer no-auth only. The probe never sends
	// isolation credentials; Tor accepts no-auth on the same port.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if authResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	if authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// CONNECT to a synthetic onion. Any proper SOCKS5 reply (success or
	// host-unreachable) proves the proxy processes requests.
	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrTypeDomain,
		byte(len(socks5TestOnion)),
	}
	connectReq = append(connectReq, []byte(socks5TestOnion)...)
	connectReq = append(connectReq, 0x00, 0x50) // port 80

	if _, err := conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}
