package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/decisym/torcollect/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, collection *model.Collection) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, collection *model.Collection) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, collection)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		step := &mockStep{name: "test-step"}

		p.AddStep(step)

		if p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		step1 := &mockStep{name: "step-1"}
		step2 := &mockStep{name: "step-2"}
		step3 := &mockStep{name: "step-3"}

		p.AddSteps(step1, step2, step3)

		if p.StepCount() != 3 {
			t.Errorf("expected 3 steps, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddStep(&mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		names := p.StepNames()

		expected := []string{"first", "second", "third"}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		executionOrder := make([]string, 0)

		p := New()
		p.AddStep(&mockStep{
			name: "step-1",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				executionOrder = append(executionOrder, "step-1")
				return nil
			},
		})
		p.AddStep(&mockStep{
			name: "step-2",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				executionOrder = append(executionOrder, "step-2")
				return nil
			},
		})

		collection := model.NewCollection("/tmp/collected")
		err := p.Execute(context.Background(), collection)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(executionOrder) != 2 {
			t.Fatalf("expected 2 executions, got %d", len(executionOrder))
		}
		if executionOrder[0] != "step-1" || executionOrder[1] != "step-2" {
			t.Errorf("wrong execution order: %v", executionOrder)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		step2Called := false

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				return expectedErr
			},
		})
		p.AddStep(&mockStep{
			name: "should-not-run",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				step2Called = true
				return nil
			},
		})

		collection := model.NewCollection("/tmp/collected")
		err := p.Execute(context.Background(), collection)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if step2Called {
			t.Error("second step should not have been called")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		step2Called := false

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				return errors.New("step failed")
			},
		})
		p.AddStep(&mockStep{
			name: "should-run",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				step2Called = true
				return nil
			},
		})

		collection := model.NewCollection("/tmp/collected")
		err := p.Execute(context.Background(), collection)

		if err != nil {
			t.Errorf("expected nil error with continueOnError, got %v", err)
		}
		if !step2Called {
			t.Error("second step should have been called")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		stepCalled := false
		p := New()
		p.AddStep(&mockStep{
			name: "should-not-run",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				stepCalled = true
				return nil
			},
		})

		collection := model.NewCollection("/tmp/collected")
		err := p.Execute(ctx, collection)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if stepCalled {
			t.Error("step should not have been called")
		}
		if !collection.Interrupted {
			t.Error("collection.Interrupted should be true")
		}
	})

	t.Run("stops between steps when cancelled mid-run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		step2Called := false
		p := New()
		p.AddStep(&mockStep{
			name: "cancelling-step",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				cancel()
				return nil
			},
		})
		p.AddStep(&mockStep{
			name: "should-not-run",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				step2Called = true
				return nil
			},
		})

		collection := model.NewCollection("/tmp/collected")
		err := p.Execute(ctx, collection)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step2Called {
			t.Error("second step should not have been called")
		}
		if !collection.Interrupted {
			t.Error("collection.Interrupted should be true")
		}
	})

	t.Run("records performed steps", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "step-1"})
		p.AddStep(&mockStep{name: "step-2"})

		collection := model.NewCollection("/tmp/collected")
		err := p.Execute(context.Background(), collection)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(collection.PerformedSteps) != 2 {
			t.Errorf("expected 2 performed steps, got %d", len(collection.PerformedSteps))
		}
	})

	t.Run("failed step is not recorded as performed", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "ok-step"})
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				return errors.New("step failed")
			},
		})

		collection := model.NewCollection("/tmp/collected")
		_ = p.Execute(context.Background(), collection) //nolint:errcheck // Failure is the point of the test

		if len(collection.PerformedSteps) != 1 || collection.PerformedSteps[0] != "ok-step" {
			t.Errorf("unexpected performed steps: %v", collection.PerformedSteps)
		}
	})

	t.Run("records error in collection", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *model.Collection) error {
				return errors.New("test error")
			},
		})

		collection := model.NewCollection("/tmp/collected")
		_ = p.Execute(context.Background(), collection) //nolint:errcheck // We check the error via collection.Errors

		if len(collection.Errors) != 1 {
			t.Fatalf("expected 1 recorded error, got %d", len(collection.Errors))
		}
		if collection.Errors[0] != "failing-step: test error" {
			t.Errorf("unexpected error message: %q", collection.Errors[0])
		}
	})

	t.Run("steps share the same collection", func(t *testing.T) {
		t.Parallel()

		seen := -1
		p := New()
		p.AddStep(&mockStep{
			name: "writer",
			doFunc: func(_ context.Context, collection *model.Collection) error {
				collection.AddArtifact(model.Artifact{Filename: "shared.bin"})
				return nil
			},
		})
		p.AddStep(&mockStep{
			name: "reader",
			doFunc: func(_ context.Context, collection *model.Collection) error {
				seen = len(collection.Artifacts)
				return nil
			},
		})

		collection := model.NewCollection("/tmp/collected")
		if err := p.Execute(context.Background(), collection); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if seen != 1 {
			t.Errorf("expected later step to see 1 artifact, saw %d", seen)
		}
	})
}

// TestPipelineStepNames tests the StepNames method.
func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	t.Run("returns empty slice for empty pipeline", func(t *testing.T) {
		t.Parallel()

		p := New()
		names := p.StepNames()

		if len(names) != 0 {
			t.Errorf("expected empty slice, got %v", names)
		}
	})

	t.Run("returns names in order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(
			&mockStep{name: "alpha"},
			&mockStep{name: "beta"},
			&mockStep{name: "gamma"},
		)

		names := p.StepNames()

		if len(names) != 3 {
			t.Fatalf("expected 3 names, got %d", len(names))
		}
		if names[0] != "alpha" || names[1] != "beta" || names[2] != "gamma" {
			t.Errorf("unexpected names: %v", names)
		}
	})
}

// TestPipelineWithLogger tests the WithLogger option.
func TestPipelineWithLogger(t *testing.T) {
	t.Parallel()

	t.Run("sets custom logger", func(t *testing.T) {
		t.Parallel()

		// Note: We can't directly test that the logger is set
		// since it's a private field, but we test that it doesn't panic
		p := New(WithLogger(nil))
		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
	})

	t.Run("pipeline works with custom logger", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "test"})

		collection := model.NewCollection("/tmp/collected")
		err := p.Execute(context.Background(), collection)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestMockStep tests the mockStep helper.
func TestMockStep(t *testing.T) {
	t.Parallel()

	t.Run("increments call count", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "test"}
		collection := model.NewCollection("/tmp/collected")

		_ = step.Do(context.Background(), collection)
		_ = step.Do(context.Background(), collection)
		_ = step.Do(context.Background(), collection)

		if step.callCount != 3 {
			t.Errorf("expected call count 3, got %d", step.callCount)
		}
	})

	t.Run("returns name correctly", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "my-step"}
		if step.Name() != "my-step" {
			t.Errorf("expected name 'my-step', got %q", step.Name())
		}
	})

	t.Run("returns nil when no doFunc", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "test"}
		err := step.Do(context.Background(), nil)
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})
}
