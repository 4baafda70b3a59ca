package automation

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/gridsim/internal/config"
	"github.com/san-kum/gridsim/internal/experiment"
	"github.com/san-kum/gridsim/internal/metrics"
)

// EnsembleConfig runs Members copies of Base that differ only in seed
// (Seed+i for member i).
type EnsembleConfig struct {
	Base    *config.Config
	Members int
	Seed    int64
	Workers int
}

// MemberResult summarizes one ensemble member.
type MemberResult struct {
	Index       int
	Seed        int64
	Cycles      int
	Anomalies   int
	Repaired    int
	Failures    int
	FinalMean   float64
	FinalPeak   float64
	FinalEnergy float64
}

// Stable reports whether the member never needed a repair.
func (m MemberResult) Stable() bool { return m.Anomalies == 0 && m.Failures == 0 }

// RunEnsemble runs every member concurrently, at most Workers at a time
// (GOMAXPROCS when Workers <= 0). Each member owns its grid, stepper and rule.
// The first member error cancels the rest.
func RunEnsemble(ctx context.Context, cfg *EnsembleConfig, registry *experiment.Registry, logger *zap.Logger) ([]MemberResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Members < 1 {
		return nil, fmt.Errorf("ensemble needs at least one member, got %d", cfg.Members)
	}
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]MemberResult, cfg.Members)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i := 0; i < cfg.Members; i++ {
		eg.Go(func() error {
			member := cfg.Base.Clone()
			member.Seed = cfg.Seed + int64(i)

			exp := experiment.New(member, registry, logger.With(zap.Int("member", i)))
			if err := exp.Setup(nil); err != nil {
				return fmt.Errorf("member %d setup: %w", i, err)
			}
			res, err := exp.Run(egCtx)
			if err != nil {
				return fmt.Errorf("member %d: %w", i, err)
			}

			results[i] = MemberResult{
				Index:       i,
				Seed:        member.Seed,
				Cycles:      res.Cycles,
				Anomalies:   res.Anomalies,
				Repaired:    res.Repaired,
				Failures:    res.Failures,
				FinalMean:   res.Final.Mean(0),
				FinalPeak:   res.Final.MaxAbs(),
				FinalEnergy: metrics.FieldEnergy(res.Final),
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// EnsembleStats counts stable members and averages anomalies per member.
func EnsembleStats(results []MemberResult) (stable int, meanAnomalies float64) {
	if len(results) == 0 {
		return 0, 0
	}
	total := 0
	for _, r := range results {
		if r.Stable() {
			stable++
		}
		total += r.Anomalies
	}
	return stable, float64(total) / float64(len(results))
}
