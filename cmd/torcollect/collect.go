package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/decisym/torcollect/internal/config"
	"github.com/decisym/torcollect/internal/fetch"
	"github.com/decisym/torcollect/internal/inspect"
	"github.com/decisym/torcollect/internal/ledger"
	"github.com/decisym/torcollect/internal/log"
	"github.com/decisym/torcollect/internal/model"
	"github.com/decisym/torcollect/internal/pipeline"
	"github.com/decisym/torcollect/internal/report"
	"github.com/decisym/torcollect/internal/tor"
	"github.com/spf13/cobra"
)

// NewCollectCmd creates the collect command.
func NewCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect URL...",
		Short: "Fetch web resources through the Tor network",
		Long: `Collect fetches one or more HTTPS resources through the Tor network and
writes them into the output directory.

Each invocation runs under its own isolation credentials: Tor builds a
dedicated set of circuits for it, shared with nothing else on the
machine. Every completed fetch is recorded in the collection ledger.

Examples:
  # Fetch a single page with the embedded Tor daemon
  torcollect collect https://example.com/report.pdf

  # Use an already-running Tor client
  torcollect collect --socks 127.0.0.1:9050 https://example.com/

  # Fetch several resources and inspect them for embedded metadata
  torcollect collect --inspect -o downloads https://a.example/ https://b.example/

  # Write a JSON report to a file
  torcollect collect --json -r report.json https://example.com/

Defaults file (.torcollect.yaml) example:
  wait_seconds: 2
  hosts:
    example.onion:
      headers:
        - "Cookie: session=abc123"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCollectCmd,
	}

	// Tor connection flags
	cmd.Flags().StringP("socks", "s", "",
		"Use external Tor proxy at specified address (e.g., 127.0.0.1:9050)")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultStartupTimeout,
		"Timeout for embedded Tor startup")

	// Fetch behavior flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory fetched files are written to")
	cmd.Flags().DurationP("wait", "w", fetch.DefaultWait,
		"Polite pause before every request attempt")
	cmd.Flags().IntP("max-redirects", "R", fetch.DefaultMaxRedirects,
		"Maximum redirect hops per fetch")
	cmd.Flags().BoolP("insecure", "k", false,
		"Disable TLS certificate verification (needed for most onion services)")
	cmd.Flags().StringP("user-agent", "A", fetch.DefaultUserAgent,
		"User-Agent header value")

	// Batch collection flags
	cmd.Flags().IntP("batch", "b", config.DefaultConcurrency,
		"Number of concurrent fetches")

	// Inspection flag
	cmd.Flags().BoolP("inspect", "i", false,
		"Inspect fetched files for embedded metadata")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .torcollect.yaml in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCollectCmd executes the collect command.
func runCollectCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runCollect(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load the defaults file before reading the remaining flags.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently skip when no file is found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	// Flags that mirror a defaults-file key are applied only when changed on
	// the command line, so a file value survives a flag left at its default.
	if cmd.Flags().Changed("socks") {
		cfg.SocksAddr, err = cmd.Flags().GetString("socks")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("wait") {
		cfg.Wait, err = cmd.Flags().GetDuration("wait")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("max-redirects") {
		cfg.MaxRedirects, err = cmd.Flags().GetInt("max-redirects")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("insecure") {
		cfg.Insecure, err = cmd.Flags().GetBool("insecure")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("user-agent") {
		cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("output") {
		cfg.OutputDir, err = cmd.Flags().GetString("output")
		if err != nil {
			return nil, err
		}
	}

	cfg.StartupTimeout, err = cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.Inspect, err = cmd.Flags().GetBool("inspect")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	// Get positional arguments (URLs to collect)
	cfg.URLs = args

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
// Credential-bearing attributes (isolation credentials, API keys) are
// masked before they reach the output.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// runCollect executes the collection.
func runCollect(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.URLs) == 0 {
		return errors.New("no URLs provided (specify one or more HTTPS URLs as arguments)")
	}

	// Reject bad targets before any network activity, so mistakes surface
	// immediately rather than minutes into a Tor bootstrap.
	for _, rawURL := range cfg.URLs {
		if err := validateTarget(rawURL); err != nil {
			return err
		}
	}

	logger.Info("starting collection",
		"urls", cfg.URLs,
		"outputDir", cfg.OutputDir,
		"concurrency", cfg.Concurrency,
		"inspect", cfg.Inspect,
	)

	led, err := ledger.Open(cfg.DataDir, ledger.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer led.Close()
	logger.Info("ledger opened", "dir", cfg.DataDir)

	transport, err := bootstrapTransport(ctx, cfg.SocksAddr, cfg.StartupTimeout, logger)
	if err != nil {
		return err
	}
	defer closeTransport(transport, logger)

	// One session per invocation: every URL of this run shares the same
	// isolation credentials and therefore the same circuits.
	session := fetch.NewSession(transport,
		append(cfg.SessionOptions(), fetch.WithSessionLogger(logger))...)

	// Concurrent collection when there are multiple URLs and budget for it
	if len(cfg.URLs) > 1 && cfg.Concurrency > 1 {
		return runBatchCollect(ctx, cfg, session, led, logger)
	}

	// Single URL or sequential collection
	return runSequentialCollect(ctx, cfg, session, led, logger)
}

// validateTarget rejects URLs the fetch session would refuse anyway, plus
// malformed onion hosts.
func validateTarget(rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if !strings.EqualFold(target.Scheme, "https") {
		return fmt.Errorf("invalid URL %q: only https URLs are fetched", rawURL)
	}
	if target.Hostname() == "" {
		return fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	if tor.IsOnionHost(target.Hostname()) {
		if _, err := tor.NormalizeAddress(target.Hostname()); err != nil {
			return fmt.Errorf("invalid onion address %q: %w", target.Hostname(), err)
		}
	}
	return nil
}

// runSequentialCollect fetches all URLs through one pipeline run.
func runSequentialCollect(ctx context.Context, cfg *config.Config, session *fetch.Session, led *ledger.Ledger, logger *slog.Logger) error {
	collection := model.NewCollection(cfg.OutputDir)
	p := buildCollectPipeline(cfg, session, cfg.URLs, logger)

	fmt.Printf("Collecting %d resource(s)...\n", len(cfg.URLs))
	startTime := time.Now()

	execErr := p.Execute(ctx, collection)
	if execErr != nil {
		logger.Error("collection failed", "error", execErr)
	}
	collection.Finish()

	elapsed := time.Since(startTime)
	if execErr != nil {
		fmt.Fprintf(os.Stderr, "Collection stopped after %s: %v\n", elapsed.Round(time.Millisecond), execErr)
	} else {
		fmt.Printf("Collection completed in %s\n\n", elapsed.Round(time.Millisecond))
	}

	// Generate and output report
	if err := outputReport(cfg, collection); err != nil {
		logger.Error("report failed", "error", err)
	}

	recordArtifacts(ctx, led, collection, logger)

	return execErr
}

// runBatchCollect fetches URLs concurrently, one pipeline per URL, and
// reports the merged result.
func runBatchCollect(ctx context.Context, cfg *config.Config, session *fetch.Session, led *ledger.Ledger, logger *slog.Logger) error {
	fmt.Printf("Starting batch collection of %d resources (concurrency: %d)...\n\n",
		len(cfg.URLs), cfg.Concurrency)

	startTime := time.Now()

	bc := pipeline.NewBatchCollector(
		cfg.OutputDir,
		func(rawURL string) *pipeline.Pipeline {
			return buildCollectPipeline(cfg, session, []string{rawURL}, logger)
		},
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	// Stream progress and ledger rows as each URL finishes; the merged
	// report waits for the whole batch.
	results := make([]*model.Collection, len(cfg.URLs))
	var mu sync.Mutex
	err := bc.ProcessBatchWithCallback(ctx, cfg.URLs, func(collection *model.Collection, index int) {
		mu.Lock()
		defer mu.Unlock()

		results[index] = collection
		fmt.Printf("[%d/%d] Collected %s (%d artifact(s))\n",
			index+1, len(cfg.URLs), cfg.URLs[index], len(collection.Artifacts))

		recordArtifacts(ctx, led, collection, logger)
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch collection completed in %s\n\n", elapsed.Round(time.Millisecond))

	merged := mergeCollections(cfg.OutputDir, results)
	if reportErr := outputReport(cfg, merged); reportErr != nil {
		logger.Error("report failed", "error", reportErr)
	}

	return err
}

// mergeCollections folds per-URL collections into one invocation-wide
// collection so a batch run still yields a single report.
func mergeCollections(outputDir string, results []*model.Collection) *model.Collection {
	merged := model.NewCollection(outputDir)
	seen := make(map[string]bool)

	for _, collection := range results {
		if collection == nil {
			continue
		}
		if !collection.StartedAt.IsZero() && collection.StartedAt.Before(merged.StartedAt) {
			merged.StartedAt = collection.StartedAt
		}
		merged.Artifacts = append(merged.Artifacts, collection.Artifacts...)
		merged.Findings = append(merged.Findings, collection.Findings...)
		merged.Errors = append(merged.Errors, collection.Errors...)
		for _, step := range collection.PerformedSteps {
			if !seen[step] {
				seen[step] = true
				merged.PerformedSteps = append(merged.PerformedSteps, step)
			}
		}
		if collection.Interrupted {
			merged.Interrupted = true
		}
	}

	merged.Finish()
	return merged
}

// buildCollectPipeline assembles the fetch pipeline for a set of URLs.
func buildCollectPipeline(cfg *config.Config, session *fetch.Session, urls []string, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)

	p.AddStep(pipeline.NewCollectStep(session, urls, cfg.OutputDir,
		pipeline.WithCollectInsecure(cfg.Insecure),
		pipeline.WithCollectLogger(logger),
	))

	if cfg.Inspect {
		p.AddStep(pipeline.NewInspectStep(
			inspect.NewInspector(inspect.WithLogger(logger)),
			pipeline.WithInspectLogger(logger),
		))
	}

	return p
}

// outputReport outputs the collection report in the requested format.
func outputReport(cfg *config.Config, collection *model.Collection) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with secure permissions (0600)
		// Reports may contain sensitive information that should only be readable by the owner
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (full report with version stamp)
	if cfg.JSONReport {
		writer := report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
		_, err := writer.Write(collection)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(collection)
		return err
	}

	// Human-readable report (default)
	writer := report.NewSimpleWriter(output)
	_, err := writer.Write(collection)
	return err
}

// bootstrapTransport brings up the Tor transport: an external proxy when
// socksAddr is set, an embedded daemon otherwise.
func bootstrapTransport(ctx context.Context, socksAddr string, startupTimeout time.Duration, logger *slog.Logger) (*tor.Transport, error) {
	if socksAddr != "" {
		transport, err := tor.Bootstrap(ctx,
			tor.WithSocksAddr(socksAddr),
			tor.WithTransportLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("tor proxy check failed: %w (make sure Tor is running at %s)", err, socksAddr)
		}

		logger.Info("Tor proxy connection verified",
			"address", socksAddr,
		)
		return transport, nil
	}

	fmt.Println("Starting embedded Tor daemon...")
	fmt.Printf("This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
	spin.Suffix = " Bootstrapping Tor..."
	spin.Start()
	transport, err := tor.Bootstrap(ctx,
		tor.WithBootstrapTimeout(startupTimeout),
		tor.WithTransportLogger(logger),
	)
	spin.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	fmt.Printf("Embedded Tor daemon started successfully!\n")
	fmt.Printf("SOCKS proxy: %s\n\n", transport.SocksAddr())

	return transport, nil
}

// closeTransport stops the embedded daemon if the transport launched one.
func closeTransport(transport *tor.Transport, logger *slog.Logger) {
	if transport.Embedded() {
		logger.Info("stopping embedded Tor daemon...")
	}
	if err := transport.Close(); err != nil {
		logger.Error("failed to stop embedded Tor", "error", err)
	}
}

// recordArtifacts writes every fetched artifact into the ledger.
// If led is nil, this function is a no-op. Recording failures are logged
// but never fail the run; the files on disk are the primary record.
func recordArtifacts(ctx context.Context, led *ledger.Ledger, collection *model.Collection, logger *slog.Logger) {
	if led == nil {
		return
	}

	// Recording must survive an interrupt; what was fetched was fetched.
	ctx = context.WithoutCancel(ctx)

	recorded := 0
	for i := range collection.Artifacts {
		artifact := &collection.Artifacts[i]
		if artifact.URL == "" {
			// Derived artifacts (graph conversions, model output) are not fetches.
			continue
		}
		if _, err := led.Record(ctx, artifact); err != nil {
			logger.Error("failed to record fetch", "url", artifact.URL, "error", err)
			continue
		}
		recorded++
	}

	if recorded > 0 {
		logger.Info("fetches recorded", "count", recorded, "ledger", led.Path())
	}
}
