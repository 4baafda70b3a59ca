package analysis

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/gridsim/internal/config"
	"github.com/san-kum/gridsim/internal/experiment"
	"github.com/san-kum/gridsim/internal/field"
)

// Divergence returns the L2 distance between matching snapshots of two runs.
// Only the common prefix is compared.
func Divergence(a, b []field.Snapshot) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if len(a[i].Values) != len(b[i].Values) {
			out[i] = math.NaN()
			continue
		}
		out[i] = floats.Distance(a[i].Values, b[i].Values, 2)
	}
	return out
}

// GrowthRate estimates (1/t) ln(d(t)/d(0)) from the last usable sample.
// It returns 0 when the initial separation is zero or nothing was recorded.
func GrowthRate(dist, times []float64) float64 {
	if len(dist) < 2 || len(times) < len(dist) || dist[0] <= 0 {
		return 0
	}
	for i := len(dist) - 1; i > 0; i-- {
		elapsed := times[i] - times[0]
		if dist[i] > 0 && elapsed > 0 {
			return math.Log(dist[i]/dist[0]) / elapsed
		}
	}
	return math.Inf(-1)
}

// Sensitivity runs cfg twice, the second time with every value of the
// starting grid shifted by perturbation, and returns the growth rate of their
// separation. Repairs clamp both runs, so saturated fields report a negative
// or zero rate.
func Sensitivity(ctx context.Context, cfg *config.Config, registry *experiment.Registry, perturbation float64) (float64, error) {
	if perturbation == 0 {
		return 0, fmt.Errorf("perturbation must be non-zero")
	}

	base := experiment.New(cfg, registry, nil)
	if err := base.Setup(nil); err != nil {
		return 0, err
	}
	start := base.Loop().Snapshot()

	nudged := start
	nudged.Values = make([]float64, len(start.Values))
	for i, v := range start.Values {
		nudged.Values[i] = v + perturbation
	}
	g, err := nudged.Grid()
	if err != nil {
		return 0, err
	}

	other := experiment.New(cfg, registry, nil)
	other.UseGrid(g)
	if err := other.Setup(nil); err != nil {
		return 0, err
	}

	a, err := base.Run(ctx)
	if err != nil {
		return 0, err
	}
	b, err := other.Run(ctx)
	if err != nil {
		return 0, err
	}

	return GrowthRate(Divergence(a.History, b.History), Times(a.History)), nil
}
