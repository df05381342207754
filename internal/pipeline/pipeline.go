package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/prefixscan/internal/crawler"
	"github.com/nao1215/prefixscan/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the run filled in by the
// steps before it.
type Step interface {
	// Do executes the step. Non-critical problems should be recorded on the
	// run and return nil; a returned error stops the pipeline.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// FinalStep is implemented by steps that must run even after the context
// is cancelled, such as writing out a partial result.
type FinalStep interface {
	Step

	// Final reports whether the step runs after cancellation.
	Final() bool
}

func isFinal(s Step) bool {
	f, ok := s.(FinalStep)
	return ok && f.Final()
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps []Step

	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
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

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in order and stops at the first step that fails.
//
// Once ctx is cancelled, the remaining regular steps are skipped and the run
// is marked truncated, but final steps still execute with a context detached
// from the cancellation. Execute then returns ctx.Err().
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	cancelled := false

	for _, step := range p.steps {
		stepCtx := ctx
		if ctx.Err() != nil {
			if !cancelled {
				p.logger.Warn("pipeline cancelled",
					"step", step.Name(),
					"target", run.Target.Name,
					"reason", ctx.Err(),
				)
				run.Truncate(crawler.ReasonCancelled)
				cancelled = true
			}
			if !isFinal(step) {
				continue
			}
			stepCtx = context.WithoutCancel(ctx)
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"target", run.Target.Name,
		)

		if err := step.Do(stepCtx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"target", run.Target.Name,
				"error", err,
			)
			run.SetError(err)
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"target", run.Target.Name,
		)
		run.AddStep(step.Name())
	}

	if cancelled || ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
