package wikidata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/decisym/torcollect/internal/fetch"
	"github.com/decisym/torcollect/internal/model"
)

const (
	// DefaultEndpoint is the public Wikidata SPARQL endpoint.
	DefaultEndpoint = "https://query.wikidata.org/sparql"

	// BotUserAgent identifies the tool to the endpoint, per the Wikimedia
	// user-agent policy for automated clients.
	BotUserAgent = "OSINT-Research-Bot/1.0"

	// maxEntityCount refuses downloads the endpoint would likely time out on.
	maxEntityCount = 10000

	// Accept values selecting the response shape.
	acceptJSON = "application/sparql-results+json"
	acceptCSV  = "text/csv"

	// Fixed artifact names in the data directory.
	csvFileName = "security_companies.csv"
	ttlFileName = "security_companies.ttl"
)

var (
	// ErrNoCount is returned when the count response carries no binding.
	ErrNoCount = errors.New("no count found in SPARQL response")

	// ErrTooManyEntities is returned when the count exceeds maxEntityCount.
	ErrTooManyEntities = errors.New("too many entities: download would likely time out")
)

// fetcher is the slice of the fetch session the client uses.
type fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts fetch.RequestOptions) (*fetch.Result, error)
}

// Client downloads company data from the Wikidata SPARQL endpoint.
// It owns its fetch session, so all queries of one client share one
// isolated circuit and carry the bot user agent.
type Client struct {
	fetcher     fetcher
	dataDir     string
	endpoint    string
	logger      *slog.Logger
	sessionOpts []fetch.SessionOption
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at a different SPARQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithSessionOptions adds options to the client's fetch session, e.g.
// fetch.WithWait for a slower query cadence.
func WithSessionOptions(opts ...fetch.SessionOption) Option {
	return func(c *Client) {
		c.sessionOpts = append(c.sessionOpts, opts...)
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client writing artifacts into dataDir.
func NewClient(transport fetch.Transport, dataDir string, opts ...Option) *Client {
	c := &Client{
		dataDir:  dataDir,
		endpoint: DefaultEndpoint,
	}

	for _, opt := range opts {
		opt(c)
	}

	sessionOpts := append([]fetch.SessionOption{fetch.WithUserAgent(BotUserAgent)}, c.sessionOpts...)
	c.fetcher = fetch.NewSession(transport, sessionOpts...)

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// sparqlValue is one cell of a SPARQL JSON result.
type sparqlValue struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// sparqlResponse is the SPARQL JSON result envelope.
type sparqlResponse struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

// query executes a SPARQL query and returns the fetch result.
// The query travels as a form-urlencoded POST body, which keeps long
// queries out of the request target.
func (c *Client) query(ctx context.Context, sparql, accept string) (*fetch.Result, error) {
	c.logger.Info("executing SPARQL query", "endpoint", c.endpoint, "accept", accept)

	result, err := c.fetcher.Fetch(ctx, c.endpoint, fetch.RequestOptions{
		Method: http.MethodPost,
		Headers: []string{
			"Accept: " + accept,
			"Content-Type: application/x-www-form-urlencoded",
		},
		Body: []byte("query=" + url.QueryEscape(sparql)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute SPARQL query: %w", err)
	}

	return result, nil
}

// CompanyCount returns the number of companies the main query would match.
func (c *Client) CompanyCount(ctx context.Context) (int, error) {
	result, err := c.query(ctx, countQuery, acceptJSON)
	if err != nil {
		return 0, err
	}
	body := result.Body

	var parsed sparqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse count response: %w", err)
	}

	if len(parsed.Results.Bindings) == 0 {
		return 0, ErrNoCount
	}
	count, ok := parsed.Results.Bindings[0]["count"]
	if !ok {
		return 0, ErrNoCount
	}

	n, err := strconv.Atoi(count.Value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse count value %q: %w", count.Value, err)
	}
	return n, nil
}

// DownloadCSV downloads the company table and writes it into the data
// directory. It returns the provenance artifact for the written CSV file.
func (c *Client) DownloadCSV(ctx context.Context) (*model.Artifact, error) {
	start := time.Now()

	result, err := c.query(ctx, companiesQuery, acceptCSV)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	csvPath := filepath.Join(c.dataDir, csvFileName)
	if err := os.WriteFile(csvPath, result.Body, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	c.logger.Info("downloaded company data", "path", csvPath, "bytes", len(result.Body))

	return &model.Artifact{
		URL:           c.endpoint,
		FinalURL:      result.FinalURL,
		RedirectChain: result.RedirectChain,
		Method:        http.MethodPost,
		Filename:      csvFileName,
		Path:          csvPath,
		Size:          int64(len(result.Body)),
		SHA256:        model.Digest(result.Body),
		StatusLine:    result.StatusLine,
		ContentType:   result.ContentType,
		Retries:       result.Retries,
		Source:        "wikidata",
		Elapsed:       time.Since(start),
		FetchedAt:     time.Now().UTC(),
	}, nil
}

// DownloadAndConvert runs the complete workflow: count the matching
// companies, refuse oversized result sets, download the CSV, and convert
// it to a Turtle knowledge graph next to it. It returns the artifacts for
// the CSV and the derived Turtle file, in that order.
func (c *Client) DownloadAndConvert(ctx context.Context) ([]*model.Artifact, error) {
	count, err := c.CompanyCount(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("counted matching companies", "count", count)

	if count > maxEntityCount {
		return nil, fmt.Errorf("%w: %d entities", ErrTooManyEntities, count)
	}

	csvArtifact, err := c.DownloadCSV(ctx)
	if err != nil {
		return nil, err
	}

	rdf, err := ConvertFile(csvArtifact.Path)
	if err != nil {
		return nil, err
	}

	ttlPath := filepath.Join(c.dataDir, ttlFileName)
	if err := os.WriteFile(ttlPath, []byte(rdf), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write Turtle file: %w", err)
	}

	c.logger.Info("converted company data to RDF", "path", ttlPath)

	ttlArtifact := &model.Artifact{
		Filename:  ttlFileName,
		Path:      ttlPath,
		Size:      int64(len(rdf)),
		SHA256:    model.Digest([]byte(rdf)),
		Source:    "graph",
		FetchedAt: time.Now().UTC(),
	}
	return []*model.Artifact{csvArtifact, ttlArtifact}, nil
}
