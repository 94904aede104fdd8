package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/decisym/torcollect/internal/inspect"
	"github.com/decisym/torcollect/internal/model"
	"github.com/spf13/cobra"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Inspect local files for embedded metadata",
		Long: `Inspect examines local files for embedded metadata that could identify
people, places, or tools: GPS positions, camera models and serial
numbers, author fields, editing software, and the like. Findings are
graded by severity.

Inspection is local; nothing touches the network.

Examples:
  torcollect inspect collected/photo.jpg
  torcollect inspect --json collected/*.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInspectCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output findings as JSON")

	return cmd
}

// runInspectCmd executes the inspect command.
func runInspectCmd(cmd *cobra.Command, args []string) error {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	logger := setupLogger(getVerboseFlag(cmd))
	inspector := inspect.NewInspector(inspect.WithLogger(logger))

	findings := make([]model.Finding, 0)
	for _, path := range args {
		if !inspect.Supported(path) {
			logger.Warn("skipping unsupported file", "path", path)
			continue
		}

		fileFindings, err := inspector.InspectFile(path)
		if err != nil {
			// Explicitly named files should fail loudly, unlike the
			// best-effort sweep of a collection run.
			return fmt.Errorf("failed to inspect %s: %w", path, err)
		}
		findings = append(findings, fileFindings...)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(findings)
	}

	if len(findings) == 0 {
		fmt.Println("No metadata findings.")
		return nil
	}

	for _, f := range findings {
		fmt.Printf("[%s] %s: %s (%s)\n", f.SeverityText, f.Title, f.Value, f.Location)
	}

	return nil
}
