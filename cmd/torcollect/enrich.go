package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/decisym/torcollect/internal/enrich"
	"github.com/spf13/cobra"
)

// NewEnrichCmd creates the enrich command.
func NewEnrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich [FILE]",
		Short: "Run a language model job over collected material",
		Long: `Enrich sends a prompt to an OpenAI-compatible completions API and prints
the model's answer. When FILE is given, its content is appended to the
prompt (or to the last message of a chat job), so a collected page can
be handed to the model for extraction or summarization.

The job file describes the request: endpoint, model, prompt or chat
messages, and sampling parameters. Generate a starting point with
"torcollect init". The API key, if any, is read from the job file and
never logged.

Examples:
  # Ask the model a standalone question
  torcollect enrich -c job.yaml

  # Extract structured data from a collected page
  torcollect enrich -c extract.yaml collected/index.html

  # Save the answer instead of printing it
  torcollect enrich -c job.yaml -o answer.txt collected/index.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEnrichCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Enrichment job file (YAML or JSON)")
	cmd.Flags().StringP("output", "o", "",
		"Write the model output to specified file instead of stdout")

	return cmd
}

// runEnrichCmd executes the enrich command.
func runEnrichCmd(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if configPath == "" {
		return errors.New("no job file provided (specify one with -c)")
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	cfg, err := enrich.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load job file %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid enrichment job: %w", err)
	}

	if len(args) == 1 {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		cfg.AttachInput(string(content))
	}

	logger := setupLogger(getVerboseFlag(cmd))

	ctx, cancel := signalContext(logger)
	defer cancel()

	client := enrich.NewClient(enrich.WithLogger(logger))

	spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
	spin.Suffix = " Waiting for the model..."
	spin.Start()
	result, err := client.Run(ctx, cfg)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(result), 0600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", outputPath, len(result))
		return nil
	}

	fmt.Println(result)
	return nil
}
