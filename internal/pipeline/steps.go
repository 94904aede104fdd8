package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/decisym/torcollect/internal/enrich"
	"github.com/decisym/torcollect/internal/inspect"
	"github.com/decisym/torcollect/internal/model"
	"github.com/decisym/torcollect/internal/report"
	"github.com/decisym/torcollect/internal/wikidata"
)

// enrichmentFileName is the file the model response is saved under.
const enrichmentFileName = "enrichment.txt"

// fileFetcher is the slice of the fetch session the collect step uses.
type fileFetcher interface {
	FetchFile(ctx context.Context, rawURL, outDir string) (*model.Artifact, error)
}

// tableDownloader is the slice of the knowledge-base client the step uses.
type tableDownloader interface {
	DownloadCSV(ctx context.Context) (*model.Artifact, error)
}

// enrichRunner is the slice of the enrichment client the step uses.
type enrichRunner interface {
	Run(ctx context.Context, cfg *enrich.Config) (string, error)
}

// fileInspector is the slice of the metadata inspector the step uses.
type fileInspector interface {
	InspectFile(path string) ([]model.Finding, error)
}

// CollectStep fetches a list of resources into the output directory.
// Each successful fetch is recorded as an artifact; failures are recorded
// as errors without aborting the remaining URLs.
//
// Design decision: Per-URL failures are non-fatal because:
// 1. A dead link shouldn't discard results from the live ones
// 2. The collection records the error, so nothing is silently lost
// 3. Transport-level problems that affect every URL surface as repeated
//    errors, which the caller can spot in the collection
type CollectStep struct {
	// fetcher performs the actual downloads.
	fetcher fileFetcher

	// urls lists the resources to fetch, in order.
	urls []string

	// outputDir is where fetched files are written.
	outputDir string

	// insecure records whether certificate verification was disabled
	// on the session, so each artifact carries a transport finding.
	insecure bool

	// logger for structured logging.
	logger *slog.Logger
}

// CollectStepOption configures a CollectStep.
type CollectStepOption func(*CollectStep)

// WithCollectInsecure marks the session as running without certificate
// verification. Every fetched artifact then raises a transport finding.
func WithCollectInsecure(insecure bool) CollectStepOption {
	return func(s *CollectStep) {
		s.insecure = insecure
	}
}

// WithCollectLogger sets a custom logger for the collect step.
func WithCollectLogger(logger *slog.Logger) CollectStepOption {
	return func(s *CollectStep) {
		s.logger = logger
	}
}

// NewCollectStep creates a new collection step.
// The fetcher must be pre-configured with the anonymizing transport.
func NewCollectStep(fetcher fileFetcher, urls []string, outputDir string, opts ...CollectStepOption) *CollectStep {
	s := &CollectStep{
		fetcher:   fetcher,
		urls:      urls,
		outputDir: outputDir,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CollectStep) Name() string {
	return "collect"
}

// Do executes the collect step.
func (s *CollectStep) Do(ctx context.Context, collection *model.Collection) error {
	fetched := 0
	for _, rawURL := range s.urls {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		artifact, err := s.fetcher.FetchFile(ctx, rawURL, s.outputDir)
		if err != nil {
			s.logger.Warn("fetch failed", "url", rawURL, "error", err)
			collection.RecordError(fmt.Sprintf("fetch %s: %v", rawURL, err))
			continue
		}

		artifact.Source = "collect"
		collection.AddArtifact(*artifact)
		for _, f := range fetchFindings(artifact, s.insecure) {
			collection.AddFinding(f)
		}
		fetched++
	}

	s.logger.Info("collection completed",
		"urls", len(s.urls),
		"fetched", fetched,
	)

	return nil
}

// fetchFindings derives transport findings from a completed fetch: redirects
// that left the original host, throttled requests, and fetches made without
// certificate verification.
func fetchFindings(a *model.Artifact, insecure bool) []model.Finding {
	var findings []model.Finding

	if origin, err := url.Parse(a.URL); err == nil {
		if final, err := url.Parse(a.FinalURL); err == nil &&
			final.Hostname() != "" && origin.Hostname() != final.Hostname() {
			findings = append(findings, model.NewFinding(
				"offsite_redirect",
				"Off-Site Redirect",
				"The request was redirected to a host other than the one originally addressed.",
				final.Hostname(),
				a.URL,
			))
		}
	}

	if a.Retries > 0 {
		findings = append(findings, model.NewFinding(
			"throttled_fetch",
			"Rate-Limited Fetch",
			"The server throttled the request; it succeeded only after waiting out retry delays.",
			strconv.Itoa(a.Retries),
			a.URL,
		))
	}

	if insecure {
		findings = append(findings, model.NewFinding(
			"insecure_transport",
			"Unverified TLS Fetch",
			"Certificate verification was disabled for this fetch, so the server identity was not confirmed.",
			a.FinalURL,
			a.URL,
		))
	}

	return findings
}

// WikidataStep downloads the security-company table from the public
// SPARQL endpoint and records it as an artifact.
type WikidataStep struct {
	// downloader performs the SPARQL query and CSV download.
	downloader tableDownloader

	// logger for structured logging.
	logger *slog.Logger
}

// WikidataStepOption configures a WikidataStep.
type WikidataStepOption func(*WikidataStep)

// WithWikidataLogger sets a custom logger for the download step.
func WithWikidataLogger(logger *slog.Logger) WikidataStepOption {
	return func(s *WikidataStep) {
		s.logger = logger
	}
}

// NewWikidataStep creates a new knowledge-base download step.
func NewWikidataStep(downloader tableDownloader, opts ...WikidataStepOption) *WikidataStep {
	s := &WikidataStep{
		downloader: downloader,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *WikidataStep) Name() string {
	return "wikidata"
}

// Do executes the download step. A failed download is critical: the graph
// and analysis stages have nothing to work with without the table.
func (s *WikidataStep) Do(ctx context.Context, collection *model.Collection) error {
	artifact, err := s.downloader.DownloadCSV(ctx)
	if err != nil {
		return err
	}

	collection.AddArtifact(*artifact)
	s.logger.Info("table downloaded",
		"file", artifact.Filename,
		"size", artifact.Size,
	)

	return nil
}

// GraphStep converts the downloaded company table into Turtle RDF and
// records the graph file as a derived artifact.
//
// Design decision: Conversion is a separate step from the download because:
// 1. The raw CSV stays on disk as provenance for the derived graph
// 2. A conversion bug can be re-run without burdening the public endpoint
// 3. The step can be dropped from pipelines that only need the table
type GraphStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// GraphStepOption configures a GraphStep.
type GraphStepOption func(*GraphStep)

// WithGraphLogger sets a custom logger for the graph step.
func WithGraphLogger(logger *slog.Logger) GraphStepOption {
	return func(s *GraphStep) {
		s.logger = logger
	}
}

// NewGraphStep creates a new graph conversion step.
func NewGraphStep(opts ...GraphStepOption) *GraphStep {
	s := &GraphStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *GraphStep) Name() string {
	return "graph"
}

// Do executes the graph conversion step. It operates on the most recent
// table artifact recorded by a previous step.
func (s *GraphStep) Do(_ context.Context, collection *model.Collection) error {
	var table *model.Artifact
	for i := len(collection.Artifacts) - 1; i >= 0; i-- {
		a := &collection.Artifacts[i]
		if a.Source == "wikidata" && strings.HasSuffix(a.Filename, ".csv") && a.Path != "" {
			table = a
			break
		}
	}
	if table == nil {
		s.logger.Debug("skipping graph conversion, no table downloaded")
		return nil
	}

	turtle, err := wikidata.ConvertFile(table.Path)
	if err != nil {
		return fmt.Errorf("convert %s: %w", table.Filename, err)
	}

	ttlPath := strings.TrimSuffix(table.Path, filepath.Ext(table.Path)) + ".ttl"
	if err := os.WriteFile(ttlPath, []byte(turtle), 0o600); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	collection.AddArtifact(model.Artifact{
		Filename:  filepath.Base(ttlPath),
		Path:      ttlPath,
		Size:      int64(len(turtle)),
		SHA256:    model.Digest([]byte(turtle)),
		Source:    "graph",
		FetchedAt: time.Now().UTC(),
	})

	s.logger.Info("graph written",
		"file", filepath.Base(ttlPath),
		"size", len(turtle),
	)

	return nil
}

// EnrichStep runs the collected material through a language model and
// saves the response as a derived artifact.
//
// Design decision: Only the first collected document is attached because:
// 1. It matches the workflow the step automates, one page per extraction
// 2. Attaching everything would overrun model context windows on large runs
// 3. Multi-document runs can invoke the enrichment command per file instead
type EnrichStep struct {
	// runner sends the enrichment request.
	runner enrichRunner

	// cfg is the request configuration. A nil config disables the step.
	cfg *enrich.Config

	// outputDir is where the model response is written.
	outputDir string

	// logger for structured logging.
	logger *slog.Logger
}

// EnrichStepOption configures an EnrichStep.
type EnrichStepOption func(*EnrichStep)

// WithEnrichLogger sets a custom logger for the enrichment step.
func WithEnrichLogger(logger *slog.Logger) EnrichStepOption {
	return func(s *EnrichStep) {
		s.logger = logger
	}
}

// NewEnrichStep creates a new enrichment step.
func NewEnrichStep(runner enrichRunner, cfg *enrich.Config, outputDir string, opts ...EnrichStepOption) *EnrichStep {
	s := &EnrichStep{
		runner:    runner,
		cfg:       cfg,
		outputDir: outputDir,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *EnrichStep) Name() string {
	return "enrich"
}

// Do executes the enrichment step.
func (s *EnrichStep) Do(ctx context.Context, collection *model.Collection) error {
	if s.cfg == nil {
		s.logger.Debug("skipping enrichment, no model configuration")
		return nil
	}

	// Work on a copy so repeated runs do not stack attachments.
	cfg := *s.cfg
	cfg.Messages = slices.Clone(cfg.Messages)

	for i := range collection.Artifacts {
		a := &collection.Artifacts[i]
		if a.Source != "collect" || a.Path == "" {
			continue
		}

		content, err := os.ReadFile(a.Path) //nolint:gosec // Paths originate from this run's own output directory
		if err != nil {
			collection.RecordError(fmt.Sprintf("read %s: %v", a.Filename, err))
			break
		}

		cfg.AttachInput(string(content))
		s.logger.Debug("attached document", "file", a.Filename)
		break
	}

	response, err := s.runner.Run(ctx, &cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.outputDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	outPath := filepath.Join(s.outputDir, enrichmentFileName)
	if err := os.WriteFile(outPath, []byte(response), 0o600); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	collection.AddArtifact(model.Artifact{
		Filename:  enrichmentFileName,
		Path:      outPath,
		Size:      int64(len(response)),
		SHA256:    model.Digest([]byte(response)),
		Source:    "enrich",
		FetchedAt: time.Now().UTC(),
	})

	s.logger.Info("enrichment completed",
		"file", enrichmentFileName,
		"size", len(response),
	)

	return nil
}

// InspectStep examines every collected file for embedded metadata.
// Findings accumulate on the collection; unsupported formats are skipped.
type InspectStep struct {
	// inspector extracts metadata findings from files.
	inspector fileInspector

	// logger for structured logging.
	logger *slog.Logger
}

// InspectStepOption configures an InspectStep.
type InspectStepOption func(*InspectStep)

// WithInspectLogger sets a custom logger for the inspection step.
func WithInspectLogger(logger *slog.Logger) InspectStepOption {
	return func(s *InspectStep) {
		s.logger = logger
	}
}

// NewInspectStep creates a new metadata inspection step.
func NewInspectStep(inspector fileInspector, opts ...InspectStepOption) *InspectStep {
	s := &InspectStep{
		inspector: inspector,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *InspectStep) Name() string {
	return "inspect"
}

// Do executes the inspection step.
func (s *InspectStep) Do(ctx context.Context, collection *model.Collection) error {
	inspected := 0
	found := 0
	for i := range collection.Artifacts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		a := &collection.Artifacts[i]
		if a.Path == "" || !inspect.Supported(a.Path) {
			continue
		}

		findings, err := s.inspector.InspectFile(a.Path)
		if err != nil {
			s.logger.Warn("inspection failed", "file", a.Filename, "error", err)
			collection.RecordError(fmt.Sprintf("inspect %s: %v", a.Filename, err))
			continue
		}

		inspected++
		found += len(findings)
		for _, f := range findings {
			collection.AddFinding(f)
		}
	}

	s.logger.Info("inspection completed",
		"inspected", inspected,
		"findings", found,
	)

	return nil
}

// ReportStep renders the collection through a report writer. As a final
// pipeline step it emits a progress view of the run so far; stamping the
// finish time and writing the definitive report stays with the caller.
type ReportStep struct {
	// writer renders the collection.
	writer report.Writer

	// summary selects the condensed form over the full report.
	summary bool

	// logger for structured logging.
	logger *slog.Logger
}

// ReportStepOption configures a ReportStep.
type ReportStepOption func(*ReportStep)

// WithReportSummary selects the condensed report form.
func WithReportSummary(summary bool) ReportStepOption {
	return func(s *ReportStep) {
		s.summary = summary
	}
}

// WithReportLogger sets a custom logger for the report step.
func WithReportLogger(logger *slog.Logger) ReportStepOption {
	return func(s *ReportStep) {
		s.logger = logger
	}
}

// NewReportStep creates a new report rendering step.
func NewReportStep(writer report.Writer, opts ...ReportStepOption) *ReportStep {
	s := &ReportStep{
		writer: writer,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do executes the report step.
func (s *ReportStep) Do(_ context.Context, collection *model.Collection) error {
	var (
		n   int
		err error
	)
	if s.summary {
		n, err = s.writer.WriteSummary(collection)
	} else {
		n, err = s.writer.Write(collection)
	}
	if err != nil {
		return err
	}

	s.logger.Debug("report rendered", "bytes", n)
	return nil
}
