package main

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/decisym/torcollect/internal/config"
	"github.com/decisym/torcollect/internal/ledger"
	"github.com/decisym/torcollect/internal/model"
	"github.com/decisym/torcollect/internal/wikidata"
	"github.com/spf13/cobra"
)

// NewWikidataCmd creates the wikidata command.
func NewWikidataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikidata",
		Short: "Download the security company table from Wikidata",
		Long: `Wikidata queries the public Wikidata SPARQL endpoint for companies in
the computer security industry and writes the result table into the
output directory. The query travels through Tor like every other fetch,
identified by a bot user agent per the Wikimedia policy for automated
clients.

With --rdf the table is additionally converted to a Turtle knowledge
graph next to the CSV file. With --count-only the command reports how
many companies the query matches and downloads nothing.

Examples:
  # Check the result size first
  torcollect wikidata --count-only

  # Download the table and build the knowledge graph
  torcollect wikidata --rdf -o data`,
		Args: cobra.NoArgs,
		RunE: runWikidataCmd,
	}

	cmd.Flags().StringP("output", "o", "data",
		"Directory the table is written to")
	cmd.Flags().Bool("count-only", false,
		"Report the number of matching companies without downloading")
	cmd.Flags().Bool("rdf", false,
		"Convert the downloaded table to a Turtle knowledge graph")
	cmd.Flags().StringP("socks", "s", "",
		"Use external Tor proxy at specified address (e.g., 127.0.0.1:9050)")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultStartupTimeout,
		"Timeout for embedded Tor startup")

	return cmd
}

// runWikidataCmd executes the wikidata command.
func runWikidataCmd(cmd *cobra.Command, args []string) error {
	outputDir, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	countOnly, err := cmd.Flags().GetBool("count-only")
	if err != nil {
		return err
	}

	rdf, err := cmd.Flags().GetBool("rdf")
	if err != nil {
		return err
	}

	socksAddr, err := cmd.Flags().GetString("socks")
	if err != nil {
		return err
	}

	torTimeout, err := cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return err
	}

	logger := setupLogger(getVerboseFlag(cmd))

	ctx, cancel := signalContext(logger)
	defer cancel()

	// Open the ledger before anything touches the network, so a recording
	// problem surfaces before minutes of Tor bootstrap.
	led, err := ledger.Open(config.XDGDataDir(), ledger.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer led.Close()

	transport, err := bootstrapTransport(ctx, socksAddr, torTimeout, logger)
	if err != nil {
		return err
	}
	defer closeTransport(transport, logger)

	client := wikidata.NewClient(transport, outputDir, wikidata.WithLogger(logger))

	start := time.Now()

	spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
	spin.Suffix = " Querying Wikidata..."
	spin.Start()

	if countOnly {
		count, err := client.CompanyCount(ctx)
		spin.Stop()
		if err != nil {
			return fmt.Errorf("count query failed: %w", err)
		}
		fmt.Printf("%d companies match the query\n", count)
		return nil
	}

	var artifacts []*model.Artifact
	if rdf {
		artifacts, err = client.DownloadAndConvert(ctx)
	} else {
		var artifact *model.Artifact
		artifact, err = client.DownloadCSV(ctx)
		if artifact != nil {
			artifacts = append(artifacts, artifact)
		}
	}
	spin.Stop()
	if err != nil {
		return fmt.Errorf("wikidata download failed: %w", err)
	}

	for _, artifact := range artifacts {
		fmt.Printf("Wrote %s (%d bytes)\n", artifact.Path, artifact.Size)
		if artifact.URL == "" {
			// The Turtle file is derived locally, not fetched.
			continue
		}
		if _, err := led.Record(context.WithoutCancel(ctx), artifact); err != nil {
			logger.Error("failed to record fetch", "url", artifact.URL, "error", err)
		}
	}

	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
