// Package fetch implements the HTTPS retrieval engine that runs over the
// anonymized transport.
//
// The engine deliberately avoids net/http's client. Requests are composed
// by hand, sent request-then-close over a stream the transport opened, and
// responses are parsed from raw bytes. That trade buys complete control
// over what goes on the wire (every header, the exact request target, no
// automatic redirects, no connection reuse that would correlate requests)
// at the cost of re-implementing a small, well-understood slice of
// HTTP/1.1: response framing (ParseResponse), chunked transfer decoding
// (DecodeChunkedBody) and filename resolution (ResolveFilename).
//
// Session is the entry point. Each session owns one isolation token, so all
// of its fetches share circuits with each other and with nothing else:
//
//	transport, err := tor.Bootstrap(ctx)
//	if err != nil { ... }
//	defer transport.Close()
//
//	session := fetch.NewSession(transport, fetch.WithWait(2*time.Second))
//	artifact, err := session.FetchFile(ctx, "https://example.onion/report.pdf", "./out")
//
// The per-request loop is an explicit state machine: redirect budget check,
// polite rate-limit pause, connect, TLS, send, receive, then a pure
// interpret step that turns the parsed response into done, redirect or
// retry. Redirects (301, 302, 303, 307, 308) are followed up to the
// configured budget; 429 responses wait Retry-After seconds and retry
// without consuming that budget; only https URLs are ever fetched.
package fetch
