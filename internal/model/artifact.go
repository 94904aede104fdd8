package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Artifact records the provenance of a single fetched resource.
// One Artifact is produced per completed fetch, whether the body was
// written to disk or returned in memory and persisted by the caller.
// Locally derived outputs (format conversions, enrichment responses)
// reuse the type with an empty URL and status line.
//
// Design decision: The artifact carries the full redirect chain rather than
// only the final URL because downstream consumers (reports, the ledger) need
// to answer "what did we ask for" and "what did we actually get" separately.
type Artifact struct {
	// URL is the originally requested URL.
	URL string `json:"url"`

	// FinalURL is the URL that actually produced the body after redirects.
	// Equal to URL when no redirect occurred.
	FinalURL string `json:"final_url"`

	// RedirectChain lists each followed redirect target in order. Empty
	// when the fetch was not redirected.
	RedirectChain []string `json:"redirect_chain,omitempty"`

	// Method is the HTTP method used (GET, POST, ...).
	Method string `json:"method"`

	// Filename is the resolved local filename for the body.
	Filename string `json:"filename"`

	// Path is the absolute or relative path the body was written to.
	// Empty for in-memory fetches that were never persisted.
	Path string `json:"path,omitempty"`

	// Size is the decoded body size in bytes.
	Size int64 `json:"size"`

	// SHA256 is the hex-encoded digest of the decoded body.
	SHA256 string `json:"sha256"`

	// StatusLine is the final HTTP status line verbatim.
	StatusLine string `json:"status_line"`

	// ContentType is the final response Content-Type header value, if any.
	ContentType string `json:"content_type,omitempty"`

	// Retries counts 429 retries performed during the fetch.
	Retries int `json:"retries,omitempty"`

	// Source names the workflow stage that produced the artifact
	// (e.g. "collect", "wikidata", "graph", "enrich").
	Source string `json:"source"`

	// Elapsed is the wall-clock duration of the fetch including rate-limit
	// and retry waits.
	Elapsed time.Duration `json:"elapsed"`

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// Digest returns the hex-encoded SHA-256 of body. Used when building
// artifacts so every producer hashes the same way.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Redirected reports whether the fetch was redirected away from the
// originally requested URL.
func (a *Artifact) Redirected() bool {
	return a.FinalURL != "" && a.FinalURL != a.URL
}
