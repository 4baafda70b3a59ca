package optim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/gridsim/internal/config"
	"github.com/san-kum/gridsim/internal/experiment"
	"github.com/san-kum/gridsim/internal/metrics"
	"github.com/san-kum/gridsim/internal/sim"
)

// GridSearch tries every combination of rule parameter values and keeps the
// one with the smallest metric value.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	logger     *zap.Logger
}

// Candidate is one evaluated parameter combination.
type Candidate struct {
	Params map[string]float64
	Value  float64
}

func NewGridSearch(params []string, ranges [][]float64, logger *zap.Logger) (*GridSearch, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("grid search needs at least one parameter")
	}
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("parameter %s has no values", params[i])
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridSearch{paramNames: params, ranges: ranges, logger: logger}, nil
}

// Search runs base once per combination and minimizes metricName. Failed runs
// are logged and skipped; cancellation stops the search.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	registry *experiment.Registry,
	metricName string,
) (best Candidate, tried int, err error) {
	if metrics.New(metricName) == nil {
		return Candidate{}, 0, fmt.Errorf("unknown metric: %s (available: %v)", metricName, metrics.Names())
	}
	if registry == nil {
		registry = experiment.NewRegistry()
	}

	best.Value = math.Inf(1)
	err = g.searchRecursive(ctx, 0, make(map[string]float64), base, registry, metricName, &best, &tried)
	if err != nil {
		return best, tried, err
	}
	if best.Params == nil {
		return best, tried, fmt.Errorf("none of %d combinations completed", tried)
	}
	return best, tried, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	registry *experiment.Registry,
	metricName string,
	best *Candidate,
	tried *int,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		*tried++
		cfg := base.Clone()
		for k, v := range current {
			cfg.Params[k] = v
		}

		m := metrics.New(metricName)
		exp := experiment.New(cfg, registry, g.logger)
		if err := exp.Setup([]sim.Metric{m}); err != nil {
			return err
		}
		if _, err := exp.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.logger.Warn("Search point failed", zap.Any("params", current), zap.Error(err))
			return nil
		}

		val := m.Value()
		g.logger.Debug("Search point complete", zap.Any("params", current), zap.Float64(metricName, val))
		if val < best.Value {
			best.Value = val
			best.Params = make(map[string]float64, len(current))
			for k, v := range current {
				best.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, registry, metricName, best, tried); err != nil {
			return err
		}
	}
	return nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
