package config

import "strings"

// HostConfig holds host-specific configuration for a single target host.
// This allows customizing request behavior per service, e.g. an access
// cookie or an authorization header a research account was issued.
type HostConfig struct {
	// Headers are extra header lines sent verbatim with every request to
	// this host, e.g. "Cookie: session=abc" or "X-Research-Note: approved".
	Headers []string `yaml:"headers,omitempty"`
}

// File represents the structure of the .torcollect.yaml configuration file.
// Scalar fields mirror the collect command's flags; flags override file
// values, and file values override the built-in defaults.
type File struct {
	// WaitSeconds is the polite pause between request attempts, in seconds.
	WaitSeconds int `yaml:"wait_seconds,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// MaxRedirects overrides the redirect budget.
	MaxRedirects int `yaml:"max_redirects,omitempty"`

	// Insecure disables TLS certificate verification.
	Insecure bool `yaml:"insecure,omitempty"`

	// BufferSize overrides the response read buffer size in bytes.
	BufferSize int `yaml:"buffer_size,omitempty"`

	// DefaultFilename overrides the fallback filename for fetched files.
	DefaultFilename string `yaml:"default_filename,omitempty"`

	// SocksAddr points at an external Tor SOCKS5 proxy. When set, the
	// embedded Tor daemon is not started.
	SocksAddr string `yaml:"socks_addr,omitempty"`

	// DataDir overrides the ledger database directory.
	DataDir string `yaml:"data_dir,omitempty"`

	// OutputDir overrides where fetched files are written.
	OutputDir string `yaml:"output_dir,omitempty"`

	// Defaults contains header lines prepended to the headers of every
	// host listed under Hosts.
	Defaults HostConfig `yaml:"defaults,omitempty"`

	// Hosts maps host names to their host-specific configurations.
	// Keys are bare host names without a scheme (e.g. "example.onion").
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`
}

// HeadersFor returns the extra header lines for a specific host.
// Default header lines come first, followed by the host-specific ones, so a
// host-specific line wins when a server honors the later occurrence.
func (f *File) HeadersFor(host string) []string {
	var result []string
	result = append(result, f.Defaults.Headers...)

	if hostConfig, ok := f.Hosts[canonicalHost(host)]; ok {
		result = append(result, hostConfig.Headers...)
	}

	return result
}

// HeaderMap flattens the file into the per-host header map the fetch
// session consumes. Keys are lowercased host names. Hosts that end up with
// no header lines are omitted.
func (f *File) HeaderMap() map[string][]string {
	result := make(map[string][]string, len(f.Hosts))
	for host := range f.Hosts {
		if headers := f.HeadersFor(host); len(headers) > 0 {
			result[canonicalHost(host)] = headers
		}
	}
	return result
}

// canonicalHost normalizes a host key for lookup: lowercased, with any
// stray scheme prefix stripped.
func canonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}
