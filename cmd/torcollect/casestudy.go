package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/decisym/torcollect/internal/config"
	"github.com/decisym/torcollect/internal/enrich"
	"github.com/decisym/torcollect/internal/fetch"
	"github.com/decisym/torcollect/internal/inspect"
	"github.com/decisym/torcollect/internal/ledger"
	"github.com/decisym/torcollect/internal/model"
	"github.com/decisym/torcollect/internal/pipeline"
	"github.com/decisym/torcollect/internal/report"
	"github.com/decisym/torcollect/internal/wikidata"
	"github.com/spf13/cobra"
)

// caseStudyURLs lists the pages the demonstration workflow collects.
var caseStudyURLs = []string{"https://www.reconvillage.org/"}

// NewCaseStudyCmd creates the casestudy command.
func NewCaseStudyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "casestudy",
		Short: "Run the end-to-end OSINT demonstration workflow",
		Long: `Casestudy runs the complete workflow against a fixed public target, the
Recon Village conference site. It fetches the site through Tor, pulls
the security company table from Wikidata, converts it to a Turtle
knowledge graph, optionally extracts structured data from the collected
page with a language model, and inspects everything for embedded
metadata. All fetches are recorded in the collection ledger.

The enrichment stage runs only when a job file is supplied; generate a
starting point with "torcollect init".

Examples:
  # The whole workflow, without the model stage
  torcollect casestudy

  # Include speaker extraction via a local model and keep a JSON report
  torcollect casestudy --enrich enrich.yaml --json -r report.json`,
		Args: cobra.NoArgs,
		RunE: runCaseStudyCmd,
	}

	cmd.Flags().StringP("output", "o", "casestudy",
		"Directory collected material is written to")
	cmd.Flags().String("enrich", "",
		"Enrichment job file enabling the language model stage")
	cmd.Flags().StringP("socks", "s", "",
		"Use external Tor proxy at specified address (e.g., 127.0.0.1:9050)")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCaseStudyCmd executes the casestudy command.
func runCaseStudyCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	cfg.URLs = caseStudyURLs

	var err error

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	cfg.SocksAddr, err = cmd.Flags().GetString("socks")
	if err != nil {
		return err
	}

	cfg.StartupTimeout, err = cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return err
	}

	enrichPath, err := cmd.Flags().GetString("enrich")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var enrichCfg *enrich.Config
	if enrichPath != "" {
		enrichCfg, err = enrich.Load(enrichPath)
		if err != nil {
			return fmt.Errorf("failed to load job file %s: %w", enrichPath, err)
		}
		if err := enrichCfg.Validate(); err != nil {
			return fmt.Errorf("invalid enrichment job: %w", err)
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	led, err := ledger.Open(cfg.DataDir, ledger.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer led.Close()

	transport, err := bootstrapTransport(ctx, cfg.SocksAddr, cfg.StartupTimeout, logger)
	if err != nil {
		return err
	}
	defer closeTransport(transport, logger)

	session := fetch.NewSession(transport,
		append(cfg.SessionOptions(), fetch.WithSessionLogger(logger))...)

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(
		pipeline.NewCollectStep(session, cfg.URLs, cfg.OutputDir,
			pipeline.WithCollectLogger(logger)),
		pipeline.NewWikidataStep(
			wikidata.NewClient(transport, cfg.OutputDir, wikidata.WithLogger(logger)),
			pipeline.WithWikidataLogger(logger)),
		pipeline.NewGraphStep(pipeline.WithGraphLogger(logger)),
		pipeline.NewEnrichStep(
			enrich.NewClient(enrich.WithLogger(logger)),
			enrichCfg, cfg.OutputDir,
			pipeline.WithEnrichLogger(logger)),
		pipeline.NewInspectStep(
			inspect.NewInspector(inspect.WithLogger(logger)),
			pipeline.WithInspectLogger(logger)),
	)
	if cfg.ReportFile != "" {
		// The full report goes to the file; keep a condensed summary on
		// the console so the run still ends with visible results.
		p.AddStep(pipeline.NewReportStep(report.NewSimpleWriter(os.Stdout),
			pipeline.WithReportSummary(true),
			pipeline.WithReportLogger(logger)))
	}

	collection := model.NewCollection(cfg.OutputDir)

	fmt.Printf("Running case study (%d steps)...\n\n", p.StepCount())
	startTime := time.Now()

	execErr := p.Execute(ctx, collection)
	if execErr != nil {
		logger.Error("case study failed", "error", execErr)
	}
	collection.Finish()

	elapsed := time.Since(startTime)
	if execErr != nil {
		fmt.Fprintf(os.Stderr, "Case study stopped after %s: %v\n", elapsed.Round(time.Millisecond), execErr)
	} else {
		fmt.Printf("Case study completed in %s\n\n", elapsed.Round(time.Millisecond))
	}

	if err := outputReport(cfg, collection); err != nil {
		logger.Error("report failed", "error", err)
	}

	recordArtifacts(ctx, led, collection, logger)

	return execErr
}
