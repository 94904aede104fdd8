// Package log provides logging with automatic masking of credentials,
// built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic masking of credential-bearing values (API keys, bearer
//     tokens, SOCKS isolation credentials)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//   - Compatibility with tornago's slog-based logging
//
// # Why masking matters here
//
// torcollect handles two kinds of secrets: the per-session circuit isolation
// credentials sent to the SOCKS proxy, and the API key for the enrichment
// endpoint. Both travel through code paths that log request metadata, so the
// SecureHandler masks them even in verbose mode. Logs must stay shareable.
//
// # Usage
//
//	// Create a masking logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("enrichment request",
//	    "api_key", cfg.APIKey, // Masked to ***REDACTED***
//	    "url", cfg.APIURL,
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
