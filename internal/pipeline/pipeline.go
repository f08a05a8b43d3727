package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/portvapt/internal/model"
)

// Step is one phase of a scan. Phases run in the order they were added and
// each sees the ScanReport filled in by the ones before it.
type Step interface {
	// Do runs the phase. A returned error means later phases cannot run
	// meaningfully; recoverable problems belong in the report instead.
	Do(ctx context.Context, report *model.ScanReport) error

	// Name identifies the phase in logs and in ScanReport.PerformedSteps.
	Name() string
}

// Pipeline runs the phases of one scan.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError keeps later phases running after a failure.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running after a failed phase. The failure is
// still recorded in ScanReport.Error.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0, 4)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a phase.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends phases in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the phases in order over report and sets report.Duration.
//
// The context is checked between phases; a cancelled scan marks the report
// Cancelled and returns the context error. A failing phase stops the scan
// unless WithContinueOnError was given.
func (p *Pipeline) Execute(ctx context.Context, report *model.ScanReport) error {
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("scan cancelled",
				"before", step.Name(),
				"host", report.Host,
				"reason", err,
			)
			report.Cancelled = true
			return err
		}

		p.logger.Debug("phase started", "phase", step.Name(), "host", report.Host)
		begin := time.Now()

		err := step.Do(ctx, report)
		report.PerformedSteps = append(report.PerformedSteps, step.Name())
		if err != nil {
			p.logger.Error("phase failed",
				"phase", step.Name(),
				"host", report.Host,
				"error", err,
			)
			report.Error = err.Error()
			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("phase finished",
			"phase", step.Name(),
			"host", report.Host,
			"elapsed", time.Since(begin),
		)
	}

	return nil
}

// StepCount returns the number of phases.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the phase names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
