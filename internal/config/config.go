package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/decisym/torcollect/internal/fetch"
)

// Default configuration values. The per-request defaults (wait, user agent,
// redirect budget, buffer size, default filename) live in the fetch package
// next to the code that applies them; this package only adds the defaults
// for concerns the session does not own.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "torcollect"

	// DefaultOutputDir is where fetched files land when no output directory
	// is given. A named subdirectory keeps collected material out of the
	// working directory root.
	DefaultOutputDir = "collected"

	// DefaultConcurrency of 10 concurrent fetches balances throughput with
	// the load placed on the local Tor client. Each concurrent session holds
	// its own circuit, so higher values multiply circuit build time.
	DefaultConcurrency = 10

	// DefaultStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap. 3 minutes is typically sufficient for most
	// network conditions, but may need to be increased for slow connections.
	DefaultStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for torcollect.
// This struct is populated from the defaults, then the optional
// .torcollect.yaml file, then CLI flags, and passed through the application
// via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// SocksAddr is the address of an external Tor SOCKS5 proxy in
	// "host:port" format. When empty (default), torcollect starts an
	// embedded Tor daemon instead.
	//
	// Note: The embedded Tor daemon takes 1-3 minutes to bootstrap and
	// connect to the Tor network on first start.
	SocksAddr string

	// StartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to start and bootstrap. Only used when SocksAddr is empty.
	StartupTimeout time.Duration

	// Wait is the polite pause applied before every request attempt.
	// Lower values may trigger rate limiting on the target service.
	Wait time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxRedirects bounds how many redirect hops a fetch follows before
	// giving up. The bound is checked before each request is sent.
	MaxRedirects int

	// Insecure disables TLS certificate verification. Needed for onion
	// services with self-signed certificates; leave off for clearnet hosts.
	Insecure bool

	// BufferSize is the read buffer size in bytes for response bodies.
	BufferSize int

	// DefaultFilename is used for fetched files when neither the response
	// headers nor the URL path yield a name.
	DefaultFilename string

	// OutputDir is the directory fetched files are written to.
	// It is created if it does not exist.
	OutputDir string

	// DataDir is the directory for the collection ledger database.
	// Defaults to the XDG data directory (~/.local/share/torcollect on Linux).
	DataDir string

	// Concurrency is the number of concurrent fetches when collecting
	// multiple URLs. Each fetch runs in its own isolated session.
	Concurrency int

	// Inspect enables EXIF metadata inspection of fetched files.
	Inspect bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable
	// format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .torcollect.yaml in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// Hosts holds the loaded configuration file, including per-host extra
	// header lines. Populated by LoadFile and nil when no file was found.
	Hosts *File

	// URLs is the list of resources to collect.
	// Must contain at least one HTTPS URL.
	URLs []string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., the redirect budget
// and the polite wait). This also serves as documentation of what the
// defaults are.
func NewConfig() *Config {
	return &Config{
		StartupTimeout:  DefaultStartupTimeout,
		Wait:            fetch.DefaultWait,
		UserAgent:       fetch.DefaultUserAgent,
		MaxRedirects:    fetch.DefaultMaxRedirects,
		BufferSize:      fetch.DefaultBufferSize,
		DefaultFilename: fetch.DefaultFilename,
		OutputDir:       DefaultOutputDir,
		DataDir:         XDGDataDir(),
		Concurrency:     DefaultConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for torcollect.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/torcollect
// On macOS: ~/Library/Application Support/torcollect
// On Windows: %LOCALAPPDATA%\torcollect
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for torcollect.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/torcollect
// On macOS: ~/Library/Application Support/torcollect
// On Windows: %APPDATA%\torcollect
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for torcollect.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/torcollect
// On macOS: ~/Library/Caches/torcollect
// On Windows: %LOCALAPPDATA%\torcollect\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any network activity begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one URL to collect
	if len(c.URLs) == 0 {
		return ErrNoURL
	}

	// A negative wait is invalid; zero disables the polite pause
	if c.Wait < 0 {
		return ErrInvalidWait
	}

	// The redirect budget must be positive; zero would refuse every fetch
	if c.MaxRedirects <= 0 {
		return ErrInvalidMaxRedirects
	}

	// BufferSize must be positive; zero would make reads impossible
	if c.BufferSize <= 0 {
		return ErrInvalidBufferSize
	}

	// Concurrency must be positive; zero would mean no fetching
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	// The embedded daemon needs a positive bootstrap deadline
	if c.SocksAddr == "" && c.StartupTimeout <= 0 {
		return ErrInvalidStartupTimeout
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// SessionOptions translates the configuration into fetch session options.
// The returned slice is safe to extend with caller-specific options.
func (c *Config) SessionOptions() []fetch.SessionOption {
	opts := []fetch.SessionOption{
		fetch.WithWait(c.Wait),
		fetch.WithUserAgent(c.UserAgent),
		fetch.WithMaxRedirects(c.MaxRedirects),
		fetch.WithInsecure(c.Insecure),
		fetch.WithBufferSize(c.BufferSize),
		fetch.WithDefaultFilename(c.DefaultFilename),
	}

	if c.Hosts != nil {
		if headers := c.Hosts.HeaderMap(); len(headers) > 0 {
			opts = append(opts, fetch.WithHostHeaders(headers))
		}
	}

	return opts
}
