// Package tor provides the anonymized transport for torcollect.
//
// This package owns the connection to the Tor network: it launches an
// embedded Tor daemon via tornago (or attaches to an already-running SOCKS5
// proxy), verifies the proxy actually speaks SOCKS5, and opens byte streams
// through it. Streams opened with different isolation tokens are guaranteed
// by Tor to travel over different circuits (IsolateSOCKSAuth), which keeps
// unrelated collection sessions unlinkable at the network layer.
//
// Design decision: We use tornago for daemon management instead of requiring
// a system-wide Tor installation because collection runs are ad hoc; the
// tool should work out of the box on an analyst workstation. Attaching to an
// external daemon remains available for long-lived setups.
//
// The package is designed to be used with dependency injection - bootstrap a
// Transport once and pass it to the sessions that need it rather than using
// global state.
package tor
