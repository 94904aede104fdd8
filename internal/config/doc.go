// Package config provides configuration structures and utilities for
// torcollect. It defines the collection options, the .torcollect.yaml file
// format with per-host header lines, and the XDG directory helpers.
package config
