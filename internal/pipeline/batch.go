package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/decisym/torcollect/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchCollector handles concurrent collection of multiple resources.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchCollector rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-run execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchCollector struct {
	// pipelineFactory creates a new pipeline for each URL.
	// We use a factory to ensure each run gets a fresh pipeline instance,
	// parameterized by the URL it is responsible for.
	pipelineFactory func(rawURL string) *Pipeline

	// outputDir is stamped on every collection the batch produces.
	outputDir string

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed collections.
	// Access is synchronized via mutex.
	results []*model.Collection
	mu      sync.Mutex
}

// BatchOption configures a BatchCollector.
type BatchOption func(*BatchCollector)

// WithBatchLogger sets a custom logger for batch collection.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchCollector) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Default is 10 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchCollector) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchCollector creates a new BatchCollector.
//
// The pipelineFactory function is called for each URL to create a fresh
// pipeline instance. This ensures that pipeline state doesn't leak between
// runs and lets the factory route each URL to its own collect step.
func NewBatchCollector(outputDir string, pipelineFactory func(rawURL string) *Pipeline, opts ...BatchOption) *BatchCollector {
	bc := &BatchCollector{
		pipelineFactory: pipelineFactory,
		outputDir:       outputDir,
		concurrency:     10,
		results:         make([]*model.Collection, 0),
	}

	for _, opt := range opts {
		opt(bc)
	}

	if bc.logger == nil {
		bc.logger = slog.Default()
	}

	return bc
}

// ProcessBatch collects multiple resources concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each URL gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all collections gathered, even for URLs that failed.
// The error return indicates if the batch was cancelled.
func (bc *BatchCollector) ProcessBatch(ctx context.Context, urls []string) ([]*model.Collection, error) {
	bc.logger.Info("starting batch collection",
		"total_urls", len(urls),
		"concurrency", bc.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bc.results = make([]*model.Collection, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bc.concurrency)

	for i, rawURL := range urls {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bc.logger.Info("collecting",
				"url", rawURL,
				"index", i+1,
				"total", len(urls),
			)

			// Create the collection for this URL
			collection := model.NewCollection(bc.outputDir)

			// Create and execute pipeline
			pipeline := bc.pipelineFactory(rawURL)
			err := pipeline.Execute(ctx, collection)
			collection.Finish()

			// Store result regardless of error
			// The collection contains error information if the run failed
			bc.mu.Lock()
			bc.results[i] = collection
			bc.mu.Unlock()

			if err != nil {
				bc.logger.Warn("collection failed",
					"url", rawURL,
					"error", err,
				)
				// Don't return error to errgroup - we want to continue other runs
				// The error is recorded in the collection
				return nil
			}

			bc.logger.Info("collection completed",
				"url", rawURL,
			)

			return nil
		})
	}

	// Wait for all runs to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	bc.logger.Info("batch collection complete",
		"total_urls", len(urls),
		"elapsed", elapsed,
	)

	return bc.results, err
}

// ProcessBatchWithCallback collects multiple resources and calls a callback
// for each completed run. This is useful for streaming results.
//
// The callback receives the collection and the index of the URL in the
// original slice. The callback is called from the goroutine that completed
// the run, so it should be thread-safe if it accesses shared state.
func (bc *BatchCollector) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(collection *model.Collection, index int),
) error {
	bc.logger.Info("starting batch collection with callback",
		"total_urls", len(urls),
		"concurrency", bc.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bc.concurrency)

	for i, rawURL := range urls {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			collection := model.NewCollection(bc.outputDir)
			pipeline := bc.pipelineFactory(rawURL)
			_ = pipeline.Execute(ctx, collection) //nolint:errcheck // Error is recorded in the collection
			collection.Finish()

			// Call the callback with the result
			callback(collection, i)

			return nil
		})
	}

	return g.Wait()
}
