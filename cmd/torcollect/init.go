package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decisym/torcollect/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/torcollect.yaml templates/enrich.yaml
var configTemplates embed.FS

// enrichFileName is the default enrichment job template file name.
const enrichFileName = "enrich.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize torcollect configuration files",
		Long: `Initialize creates a .torcollect.yaml defaults file and an enrichment
job template in the current directory.

The defaults file includes:
- Default settings for request pacing and redirect limits
- Commented examples for per-host request headers
- Documentation for all available options

The job template describes a language model request for the enrich
command: endpoint, model, messages, and sampling parameters.

Examples:
  # Create .torcollect.yaml and enrich.yaml in current directory
  torcollect init

  # Create the defaults file at a specific path
  torcollect init -o myconfig.yaml

  # Force overwrite existing files
  torcollect init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the defaults file")
	cmd.Flags().String("enrich-output", enrichFileName,
		"Output file path for the enrichment job template")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing files")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	enrichPath, err := cmd.Flags().GetString("enrich-output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeTemplate("templates/torcollect.yaml", outputPath, force); err != nil {
		return err
	}
	fmt.Printf("Created configuration file: %s\n", outputPath)

	if err := writeTemplate("templates/enrich.yaml", enrichPath, force); err != nil {
		return err
	}
	fmt.Printf("Created enrichment job template: %s\n", enrichPath)

	fmt.Println("\nEdit these files to configure settings such as:")
	fmt.Println("  - Request pacing and redirect limits")
	fmt.Println("  - Per-host cookies and headers")
	fmt.Println("  - The model endpoint and extraction prompt")

	return nil
}

// writeTemplate copies one embedded template to outputPath.
func writeTemplate(templatePath, outputPath string, force bool) error {
	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplates.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
