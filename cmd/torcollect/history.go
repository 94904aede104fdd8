package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/decisym/torcollect/internal/config"
	"github.com/decisym/torcollect/internal/ledger"
	"github.com/decisym/torcollect/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently recorded fetches",
		Long: `History lists the most recent entries of the collection ledger, newest
first. The ledger records every completed fetch across all runs: the
URL, the file it was saved as, its digest, and when it was fetched.

Examples:
  # The last 20 fetches
  torcollect history

  # More of them, with the full provenance records as JSON
  torcollect history -n 100 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", ledger.DefaultRecentLimit,
		"Maximum number of entries to show")
	cmd.Flags().BoolP("json", "j", false,
		"Output the full provenance records as JSON")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	led, err := ledger.Open(config.XDGDataDir(), ledger.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer led.Close()

	if jsonOut {
		artifacts, err := led.RecentArtifacts(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to read ledger: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(artifacts)
	}

	entries, err := led.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No fetches recorded yet.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %-24s %10s  %s\n",
			e.FetchedAt.Local().Format("2006-01-02 15:04:05"),
			e.Filename,
			report.FormatBytes(e.Size),
			e.URL)
	}

	return nil
}
