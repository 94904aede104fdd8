package enrich

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration and response errors.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances at each call site. This allows callers to
// use errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoAPIURL is returned when the configuration has no api_url.
	ErrNoAPIURL = errors.New("invalid enrichment config: api_url is required")

	// ErrNoModel is returned when the configuration has no model name.
	ErrNoModel = errors.New("invalid enrichment config: model is required")

	// ErrNoPrompt is returned when neither a prompt nor messages are configured.
	ErrNoPrompt = errors.New("invalid enrichment config: prompt or messages is required")

	// ErrAmbiguousPrompt is returned when both a prompt and messages are
	// configured. The two select different endpoints, so exactly one must be set.
	ErrAmbiguousPrompt = errors.New("invalid enrichment config: prompt and messages are mutually exclusive")

	// ErrUnsupportedConfigFormat is returned for config files whose extension
	// is neither YAML nor JSON.
	ErrUnsupportedConfigFormat = errors.New("unsupported config format: must be .yaml, .yml, or .json")

	// ErrNoChoices is returned when the API response contains no choices.
	ErrNoChoices = errors.New("no completion returned")
)

// APIError is returned when the API answers with a non-2xx status.
// The body is included because OpenAI-compatible servers put the useful
// diagnostics (quota, model name typos, context overflow) there.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Body is the raw response body.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed with status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}
