package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/gridsim/internal/config"
	"github.com/san-kum/gridsim/internal/field"
	"github.com/san-kum/gridsim/internal/sim"
)

// ErrRetriesExhausted is returned under the retry policy when one step keeps
// failing.
var ErrRetriesExhausted = errors.New("experiment: retries exhausted")

type Result struct {
	Config         *config.Config
	Cycles         int
	Anomalies      int
	Repaired       int
	InitialRepairs int
	Failures       int
	Stopped        bool
	History        []field.Snapshot
	Final          field.Snapshot
	Metrics        map[string]float64
	Elapsed        time.Duration
}

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *zap.Logger
	start    *field.Grid

	loop     *sim.Loop
	recorder *sim.Recorder
	metrics  []sim.Metric
}

// New copies cfg. A nil registry uses NewRegistry and a nil logger discards
// output.
func New(cfg *config.Config, registry *Registry, logger *zap.Logger) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Experiment{
		cfg:      cfg.Clone(),
		registry: registry,
		logger:   logger,
	}
}

// Setup builds the grid, stepper, rule and loop and registers the metrics.
func (e *Experiment) Setup(metrics []sim.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	rule, width, err := e.registry.GetRule(e.cfg.Rule, e.cfg.Params, e.cfg.Seed)
	if err != nil {
		return err
	}
	initFactory, err := e.registry.GetInitial(e.cfg.Initial)
	if err != nil {
		return err
	}

	shape := field.Shape(e.cfg.Shape)
	grid := e.start
	if grid == nil {
		grid, err = field.New(shape, width, initFactory(shape, width, e.cfg.InitParams, e.cfg.Seed))
		if err != nil {
			return err
		}
	} else if !sameShape(grid.Shape(), shape) || grid.Width() != width {
		return &field.InvalidShapeError{
			Shape:  grid.Shape(),
			Width:  grid.Width(),
			Reason: fmt.Sprintf("starting grid does not match config shape %v width %d", e.cfg.Shape, width),
		}
	}

	boundary, err := field.ParseBoundary(e.cfg.Boundary)
	if err != nil {
		return err
	}
	stencil, err := field.ParseStencil(e.cfg.Stencil, shape.Rank())
	if err != nil {
		return err
	}

	loop, err := sim.New(grid, field.NewStepper(stencil, boundary), rule, sim.Config{Dt: e.cfg.Dt, Bound: e.cfg.Bound})
	if err != nil {
		return err
	}
	if n := loop.InitialRepairs(); n > 0 {
		e.logger.Warn("Initial grid out of bound", zap.Int("repaired", n), zap.Float64("bound", e.cfg.Bound))
	}

	e.recorder = sim.NewRecorder(e.cfg.RecordEvery)
	e.recorder.Record(loop.Snapshot())
	loop.AddObserver(e.recorder)
	for _, m := range metrics {
		loop.AddMetric(m)
	}

	e.loop = loop
	e.metrics = metrics
	return nil
}

// UseGrid starts the run from g instead of the configured initial condition.
// g must match the config shape and the rule's cell width. Call before Setup.
func (e *Experiment) UseGrid(g *field.Grid) { e.start = g }

func sameShape(a, b field.Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Run executes cfg.Steps cycles (0 runs until ctx is done or Stop is called)
// under the configured on_error policy.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.loop == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	e.logger.Info("Experiment started",
		zap.String("rule", e.cfg.Rule),
		zap.Ints("shape", e.cfg.Shape),
		zap.String("boundary", e.cfg.Boundary),
		zap.Int("steps", e.cfg.Steps),
		zap.String("on_error", e.cfg.OnError))

	start := time.Now()
	result := &Result{
		Config:         e.cfg.Clone(),
		InitialRepairs: e.loop.InitialRepairs(),
	}

	var err error
	if e.cfg.OnError == config.OnErrorAbort {
		err = e.runAbort(ctx, result)
	} else {
		err = e.runTolerant(ctx, result)
	}

	result.History = e.recorder.History()
	result.Final = e.loop.Snapshot()
	result.Metrics = make(map[string]float64, len(e.metrics))
	for _, m := range e.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Elapsed = time.Since(start)

	if err != nil {
		e.logger.Error("Experiment failed", zap.Int("cycles", result.Cycles), zap.Error(err))
		return result, err
	}
	e.logger.Info("Experiment finished",
		zap.Int("cycles", result.Cycles),
		zap.Int("anomalies", result.Anomalies),
		zap.Int("repaired", result.Repaired),
		zap.Int("failures", result.Failures),
		zap.Bool("stopped", result.Stopped),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (e *Experiment) runAbort(ctx context.Context, result *Result) error {
	res, err := e.loop.Run(ctx, e.cfg.Steps)
	result.Cycles = res.Cycles
	result.Anomalies = res.Anomalies
	result.Repaired = res.Repaired
	result.Stopped = res.Stopped
	if err != nil && isStepFailure(err) {
		result.Failures = 1
	}
	return err
}

// runTolerant drives the loop cycle by cycle. Under skip a failed step uses up
// one cycle of the budget; under retry the same step is attempted again up to
// MaxRetries times.
func (e *Experiment) runTolerant(ctx context.Context, result *Result) error {
	for _, m := range e.metrics {
		m.Reset()
	}

	attempts := 0
	retries := 0
	for e.cfg.Steps <= 0 || attempts < e.cfg.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		cycle, err := e.loop.RunOneCycle()
		if errors.Is(err, sim.ErrStopped) {
			result.Stopped = true
			return nil
		}
		if err != nil {
			if !isStepFailure(err) {
				return err
			}
			result.Failures++
			e.logger.Warn("Step failed", zap.String("policy", e.cfg.OnError), zap.Int("attempt", retries+1), zap.Error(err))

			if e.cfg.OnError == config.OnErrorRetry {
				retries++
				if retries > e.cfg.MaxRetries {
					return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, retries, err)
				}
				continue
			}
			attempts++
			continue
		}

		retries = 0
		attempts++
		result.Cycles++
		result.Anomalies += cycle.Anomalies
		result.Repaired += cycle.Repaired
		if cycle.Anomalies > 0 {
			e.logger.Debug("Anomalies repaired",
				zap.Int("step", cycle.Snapshot.Step),
				zap.Int("anomalies", cycle.Anomalies),
				zap.Int("repaired", cycle.Repaired))
		}
	}
	return nil
}

func isStepFailure(err error) bool {
	var stepErr *field.StepComputationError
	return errors.As(err, &stepErr)
}

// Loop returns the underlying loop for adding observers or stopping it.
func (e *Experiment) Loop() *sim.Loop { return e.loop }

func (e *Experiment) Config() *config.Config { return e.cfg }
