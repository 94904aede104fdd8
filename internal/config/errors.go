package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoURL is returned when no URL to collect is specified.
	// This error occurs when no positional argument provides a target.
	ErrNoURL = errors.New("no URL specified: provide at least one HTTPS URL")

	// ErrInvalidWait is returned when the polite wait is negative.
	// A negative wait is invalid; use 0 to disable the pause between requests.
	ErrInvalidWait = errors.New("invalid wait: must be non-negative")

	// ErrInvalidMaxRedirects is returned when the redirect budget is not
	// positive. The budget is checked before the first request, so a zero
	// budget would refuse every fetch.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be positive")

	// ErrInvalidBufferSize is returned when the read buffer size is not positive.
	ErrInvalidBufferSize = errors.New("invalid buffer size: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	// A concurrency of zero would mean no fetches run at all.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidStartupTimeout is returned when the embedded Tor daemon is
	// selected but the bootstrap deadline is not positive.
	ErrInvalidStartupTimeout = errors.New("invalid startup timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
