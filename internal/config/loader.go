package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".torcollect.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadFile loads settings and per-host headers from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	// Initialize Hosts map if nil
	if f.Hosts == nil {
		f.Hosts = make(map[string]HostConfig)
	}

	return &f, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .torcollect.yaml in the current directory
// 3. Look for .torcollect.yaml in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	// If explicit path is provided, use it
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// ApplyFile overlays non-zero file values onto the configuration.
// CLI flag handling runs after this, so the precedence is flags over file
// over built-in defaults.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}

	if f.WaitSeconds > 0 {
		c.Wait = time.Duration(f.WaitSeconds) * time.Second
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.MaxRedirects > 0 {
		c.MaxRedirects = f.MaxRedirects
	}
	if f.Insecure {
		c.Insecure = true
	}
	if f.BufferSize > 0 {
		c.BufferSize = f.BufferSize
	}
	if f.DefaultFilename != "" {
		c.DefaultFilename = f.DefaultFilename
	}
	if f.SocksAddr != "" {
		c.SocksAddr = f.SocksAddr
	}
	if f.DataDir != "" {
		c.DataDir = f.DataDir
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}

	c.Hosts = f
}
