package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/san-kum/gridsim/internal/field"
)

// Loop drives one grid through Stepping -> Detecting -> [Repairing] ->
// Exported. Every committed step is followed by a detect pass before the next
// step can begin. A Loop is single-threaded; only Stop may be called
// concurrently.
type Loop struct {
	grid    *field.Grid
	stepper *field.Stepper
	rule    field.Rule
	cfg     Config

	phase          Phase
	stopped        atomic.Bool
	initialRepairs int

	observers []Observer
	metrics   []Metric
}

// New validates cfg and checks the initial grid once, clamping any cell that
// already lies outside the bound.
func New(grid *field.Grid, stepper *field.Stepper, rule field.Rule, cfg Config) (*Loop, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if grid == nil || stepper == nil || rule == nil {
		return nil, fmt.Errorf("%w: grid, stepper and rule are required", ErrInvalidConfig)
	}

	l := &Loop{
		grid:    grid,
		stepper: stepper,
		rule:    rule,
		cfg:     cfg,
		phase:   Idle,
	}

	n, err := field.Repair(grid, field.Detect(grid, cfg.Bound), cfg.Bound)
	if err != nil {
		return nil, err
	}
	l.initialRepairs = n

	return l, nil
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 1) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if !(cfg.Bound >= 0) || math.IsInf(cfg.Bound, 1) {
		return fmt.Errorf("%w: bound must be non-negative and finite, got %f", ErrInvalidConfig, cfg.Bound)
	}
	return nil
}

func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

// AddMetric registers m as an observer and reports its value in Run results.
func (l *Loop) AddMetric(m Metric) {
	l.metrics = append(l.metrics, m)
	l.observers = append(l.observers, m)
}

func (l *Loop) Phase() Phase       { return l.phase }
func (l *Loop) Config() Config     { return l.cfg }
func (l *Loop) Clock() field.Clock { return l.stepper.Clock() }

// InitialRepairs reports how many cells New clamped in the initial grid.
func (l *Loop) InitialRepairs() int { return l.initialRepairs }

// Snapshot exports the current grid without stepping.
func (l *Loop) Snapshot() field.Snapshot {
	return field.TakeSnapshot(l.grid, l.stepper.Clock())
}

// Stop asks the loop to halt. A cycle already in progress completes.
func (l *Loop) Stop() { l.stopped.Store(true) }

func (l *Loop) Stopped() bool { return l.stopped.Load() }

// RunOneCycle performs a single step/detect/repair/export pass. When the step
// fails the grid is unchanged, the loop returns to Idle and the
// *field.StepComputationError is returned for the caller to retry, skip or
// abort.
func (l *Loop) RunOneCycle() (*Cycle, error) {
	if l.stopped.Load() {
		l.phase = Idle
		return nil, ErrStopped
	}

	l.phase = Stepping
	if err := l.stepper.Step(l.grid, l.cfg.Dt, l.rule); err != nil {
		l.phase = Idle
		return nil, err
	}

	l.phase = Detecting
	report := field.Detect(l.grid, l.cfg.Bound)

	repaired := 0
	if len(report) > 0 {
		l.phase = Repairing
		n, err := field.Repair(l.grid, report, l.cfg.Bound)
		if err != nil {
			l.phase = Idle
			return nil, err
		}
		repaired = n
	}

	l.phase = Exported
	cycle := &Cycle{
		Snapshot:  field.TakeSnapshot(l.grid, l.stepper.Clock()),
		Anomalies: len(report),
		Repaired:  repaired,
	}

	for _, o := range l.observers {
		o.OnCycleComplete(cycle.Snapshot, cycle.Anomalies)
	}

	return cycle, nil
}

// Run repeats cycles until budget cycles have completed, Stop is called or ctx
// is done. A budget <= 0 runs until stopped. Stop and ctx are checked at the
// top of each cycle. The first failed cycle ends the run and its error is
// returned together with the partial result.
func (l *Loop) Run(ctx context.Context, budget int) (*Result, error) {
	result := &Result{Metrics: make(map[string]float64)}
	for _, m := range l.metrics {
		m.Reset()
	}

	defer func() {
		l.finish(result)
	}()

	for budget <= 0 || result.Cycles < budget {
		select {
		case <-ctx.Done():
			l.phase = Idle
			return result, ctx.Err()
		default:
		}
		if l.stopped.Load() {
			l.phase = Idle
			result.Stopped = true
			return result, nil
		}

		cycle, err := l.RunOneCycle()
		if errors.Is(err, ErrStopped) {
			result.Stopped = true
			return result, nil
		}
		if err != nil {
			return result, err
		}

		result.Cycles++
		result.Anomalies += cycle.Anomalies
		result.Repaired += cycle.Repaired
	}

	l.phase = Idle
	return result, nil
}

func (l *Loop) finish(result *Result) {
	result.Final = l.Snapshot()
	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
