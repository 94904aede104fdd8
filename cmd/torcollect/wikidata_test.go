package main

import (
	"testing"

	"github.com/decisym/torcollect/internal/config"
)

// TestNewWikidataCmd tests the wikidata command creation.
func TestNewWikidataCmd(t *testing.T) {
	t.Parallel()

	cmd := NewWikidataCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "wikidata" {
			t.Errorf("expected use 'wikidata', got %q", cmd.Use)
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
		if flag.DefValue != "data" {
			t.Errorf("expected default 'data', got %q", flag.DefValue)
		}
	})

	t.Run("has count-only flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("count-only")
		if flag == nil {
			t.Fatal("expected count-only flag")
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has rdf flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("rdf")
		if flag == nil {
			t.Fatal("expected rdf flag")
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has socks flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("socks")
		if flag == nil {
			t.Fatal("expected socks flag")
		}
		if flag.Shorthand != "s" {
			t.Errorf("expected shorthand 's', got %q", flag.Shorthand)
		}
	})

	t.Run("has tor-timeout flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("tor-timeout")
		if flag == nil {
			t.Fatal("expected tor-timeout flag")
		}
		if flag.DefValue != config.DefaultStartupTimeout.String() {
			t.Errorf("expected default %q, got %q", config.DefaultStartupTimeout.String(), flag.DefValue)
		}
	})

	t.Run("takes no arguments", func(t *testing.T) {
		t.Parallel()
		if cmd.Args == nil {
			t.Error("expected args validator")
		}
	})
}
