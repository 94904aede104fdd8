package pipeline

import (
	"context"
	"log/slog"

	"github.com/decisym/torcollect/internal/model"
)

// Step is one stage of a collection run. Steps execute in order and
// accumulate their results on the shared collection.
//
// Design decision: Steps are an interface rather than function values
// because every concrete step carries configuration (URLs, directories,
// injected clients) and a Name for logging, and the interface leaves room
// for per-step policy later without touching the runner.
type Step interface {
	// Do runs the step against the collection. A returned error is a
	// critical failure; recoverable problems belong in the collection's
	// error list with a nil return.
	Do(ctx context.Context, collection *model.Collection) error

	// Name identifies the step in logs and in the collection's
	// performed-steps record.
	Name() string
}

// Pipeline runs an ordered list of steps over one collection.
type Pipeline struct {
	// steps in execution order.
	steps []Step

	// logger receives step progress.
	logger *slog.Logger

	// continueOnError keeps the run going past a failed step. The failure
	// still lands in the collection's error list.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing after a step fails.
//
// Design decision: The default is stop-on-error because an early failure
// usually means the run cannot produce anything useful (the transport never
// came up, the output directory is unwritable). Continuing is the right
// choice only when later steps work on whatever the earlier ones managed to
// collect, which the caller knows and the pipeline does not.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline. Add steps with AddStep or AddSteps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step. Steps run in the order they were added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order against the collection.
//
// Cancellation is checked between steps, not during them: a step that
// blocks on the network is expected to watch the context itself, while the
// between-step check guarantees a cancelled run stops cleanly at the next
// boundary and is marked interrupted.
//
// With the default stop-on-error policy, the first step error is returned;
// with WithContinueOnError the run finishes and errors accumulate on the
// collection.
func (p *Pipeline) Execute(ctx context.Context, collection *model.Collection) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("run cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			collection.Interrupted = true
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"output_dir", collection.OutputDir,
		)

		if err := step.Do(ctx, collection); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)
			collection.RecordError(step.Name() + ": " + err.Error())

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed", "step", step.Name())
		}

		collection.PerformedSteps = append(collection.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
