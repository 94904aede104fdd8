package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/decisym/torcollect/internal/model"
)

// markingFactory builds pipelines whose only step records the URL it was
// created for, so tests can check routing and ordering.
func markingFactory() func(rawURL string) *Pipeline {
	return func(rawURL string) *Pipeline {
		p := New()
		p.AddStep(&mockStep{
			name: "mark",
			doFunc: func(_ context.Context, collection *model.Collection) error {
				collection.AddArtifact(model.Artifact{URL: rawURL, Source: "collect"})
				return nil
			},
		})
		return p
	}
}

// TestBatchCollectorNew tests the BatchCollector constructor.
func TestBatchCollectorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates collector with defaults", func(t *testing.T) {
		t.Parallel()

		bc := NewBatchCollector("/tmp/collected", func(_ string) *Pipeline { return New() })

		if bc == nil {
			t.Fatal("expected non-nil collector")
		}
		if bc.concurrency != 10 {
			t.Errorf("expected default concurrency 10, got %d", bc.concurrency)
		}
		if bc.outputDir != "/tmp/collected" {
			t.Errorf("expected output dir to be stored, got %q", bc.outputDir)
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bc := NewBatchCollector(
			"/tmp/collected",
			func(_ string) *Pipeline { return New() },
			WithConcurrency(5),
		)

		if bc.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bc.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bc := NewBatchCollector(
			"/tmp/collected",
			func(_ string) *Pipeline { return New() },
			WithConcurrency(0),
		)

		if bc.concurrency != 10 { // Should keep default
			t.Errorf("expected concurrency 10, got %d", bc.concurrency)
		}
	})

	t.Run("applies WithBatchLogger option", func(t *testing.T) {
		t.Parallel()

		bc := NewBatchCollector(
			"/tmp/collected",
			func(_ string) *Pipeline { return New() },
			WithBatchLogger(nil),
		)

		// When WithBatchLogger(nil) is passed, the logger should be set to default
		if bc == nil {
			t.Fatal("expected non-nil collector")
		}
		if bc.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestBatchCollectorProcessBatch tests batch collection.
func TestBatchCollectorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("processes all urls", func(t *testing.T) {
		t.Parallel()

		var processedCount atomic.Int32

		bc := NewBatchCollector("/tmp/collected", func(_ string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "counter",
				doFunc: func(_ context.Context, _ *model.Collection) error {
					processedCount.Add(1)
					return nil
				},
			})
			return p
		})

		urls := []string{
			"https://one.example/report.pdf",
			"https://two.example/report.pdf",
			"https://three.example/report.pdf",
		}

		results, err := bc.ProcessBatch(context.Background(), urls)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("expected 3 results, got %d", len(results))
		}
		if processedCount.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processedCount.Load())
		}
	})

	t.Run("stamps output dir and finish time", func(t *testing.T) {
		t.Parallel()

		bc := NewBatchCollector("/tmp/collected", markingFactory())

		results, err := bc.ProcessBatch(context.Background(), []string{"https://one.example/"})

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results[0].OutputDir != "/tmp/collected" {
			t.Errorf("expected output dir on collection, got %q", results[0].OutputDir)
		}
		if results[0].FinishedAt.IsZero() {
			t.Error("expected finish time to be stamped")
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var maxConcurrent atomic.Int32
		var currentConcurrent atomic.Int32
		var mu sync.Mutex

		bc := NewBatchCollector(
			"/tmp/collected",
			func(_ string) *Pipeline {
				p := New()
				p.AddStep(&mockStep{
					name: "concurrent-counter",
					doFunc: func(_ context.Context, _ *model.Collection) error {
						current := currentConcurrent.Add(1)

						// Update max if needed (with mutex for safety)
						mu.Lock()
						if current > maxConcurrent.Load() {
							maxConcurrent.Store(current)
						}
						mu.Unlock()

						// Simulate some work
						time.Sleep(50 * time.Millisecond)

						currentConcurrent.Add(-1)
						return nil
					},
				})
				return p
			},
			WithConcurrency(2),
		)

		urls := make([]string, 10)
		for i := range urls {
			urls[i] = "https://slow.example/"
		}

		_, err := bc.ProcessBatch(context.Background(), urls)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if maxConcurrent.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", maxConcurrent.Load())
		}
	})

	t.Run("maintains result order", func(t *testing.T) {
		t.Parallel()

		bc := NewBatchCollector("/tmp/collected", markingFactory())

		urls := []string{
			"https://first.example/",
			"https://second.example/",
			"https://third.example/",
		}

		results, err := bc.ProcessBatch(context.Background(), urls)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, result := range results {
			if len(result.Artifacts) != 1 {
				t.Fatalf("result[%d]: expected 1 artifact, got %d", i, len(result.Artifacts))
			}
			if result.Artifacts[0].URL != urls[i] {
				t.Errorf("result[%d]: got %q, expected %q",
					i, result.Artifacts[0].URL, urls[i])
			}
		}
	})

	t.Run("continues after individual run failure", func(t *testing.T) {
		t.Parallel()

		var processedCount atomic.Int32

		bc := NewBatchCollector("/tmp/collected", func(rawURL string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "sometimes-fails",
				doFunc: func(_ context.Context, _ *model.Collection) error {
					processedCount.Add(1)
					// Fail for the second URL only
					if rawURL == "https://fail.example/" {
						return errors.New("simulated fetch failure")
					}
					return nil
				},
			})
			return p
		})

		urls := []string{
			"https://first.example/",
			"https://fail.example/",
			"https://third.example/",
		}

		results, err := bc.ProcessBatch(context.Background(), urls)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processedCount.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processedCount.Load())
		}
		// Check that the failed run has an error recorded
		if len(results[1].Errors) == 0 {
			t.Error("expected error in second result")
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		var startedCount atomic.Int32

		bc := NewBatchCollector(
			"/tmp/collected",
			func(_ string) *Pipeline {
				p := New()
				p.AddStep(&mockStep{
					name: "slow-step",
					doFunc: func(ctx context.Context, _ *model.Collection) error {
						startedCount.Add(1)
						select {
						case <-ctx.Done():
							return ctx.Err()
						case <-time.After(time.Second):
							return nil
						}
					},
				})
				return p
			},
			WithConcurrency(2),
		)

		urls := make([]string, 10)
		for i := range urls {
			urls[i] = "https://slow.example/"
		}

		// Cancel after a short delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		_, err := bc.ProcessBatch(ctx, urls)

		// Should return context.Canceled
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		// Not all runs should have started
		//nolint:gosec // len(urls) is small, no overflow risk
		if startedCount.Load() >= int32(len(urls)) {
			t.Error("expected some runs to not start due to cancellation")
		}
	})
}

// TestBatchCollectorProcessBatchWithCallback tests callback-based collection.
func TestBatchCollectorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	t.Run("calls callback for each result", func(t *testing.T) {
		t.Parallel()

		var callbackCount atomic.Int32
		var mu sync.Mutex
		receivedURLs := make(map[string]bool)

		bc := NewBatchCollector("/tmp/collected", markingFactory())

		urls := []string{
			"https://first.example/",
			"https://second.example/",
			"https://third.example/",
		}

		err := bc.ProcessBatchWithCallback(
			context.Background(),
			urls,
			func(collection *model.Collection, _ int) {
				callbackCount.Add(1)
				mu.Lock()
				if len(collection.Artifacts) == 1 {
					receivedURLs[collection.Artifacts[0].URL] = true
				}
				mu.Unlock()
			},
		)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if callbackCount.Load() != 3 {
			t.Errorf("expected 3 callbacks, got %d", callbackCount.Load())
		}
		for _, rawURL := range urls {
			if !receivedURLs[rawURL] {
				t.Errorf("missing callback for %q", rawURL)
			}
		}
	})

	t.Run("callback receives finished collections", func(t *testing.T) {
		t.Parallel()

		var unfinished atomic.Int32

		bc := NewBatchCollector("/tmp/collected", markingFactory())

		err := bc.ProcessBatchWithCallback(
			context.Background(),
			[]string{"https://one.example/", "https://two.example/"},
			func(collection *model.Collection, _ int) {
				if collection.FinishedAt.IsZero() {
					unfinished.Add(1)
				}
			},
		)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if unfinished.Load() != 0 {
			t.Errorf("expected all collections finished, %d were not", unfinished.Load())
		}
	})
}
