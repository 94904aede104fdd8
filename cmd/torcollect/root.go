// Package main provides the entry point for the torcollect CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for torcollect.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "torcollect",
		Short: "Collect web resources through the Tor network",
		Long: `Torcollect fetches web resources through the Tor network with circuit
isolation between runs, and records every completed fetch in a
provenance ledger. It also ships the supporting tools of a collection
workflow: Wikidata table pulls with CSV-to-RDF conversion, language
model enrichment of collected pages, and EXIF metadata inspection.

By default, torcollect starts an embedded Tor daemon automatically.
Use --socks to use an existing Tor proxy instead.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCollectCmd())
	cmd.AddCommand(NewEnrichCmd())
	cmd.AddCommand(NewWikidataCmd())
	cmd.AddCommand(NewCaseStudyCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
