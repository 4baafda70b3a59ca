package rules

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/san-kum/gridsim/internal/field"
)

// RandomWalk relaxes each component toward its neighbor mean and adds
// Gaussian noise: u' = u + Drift*dt*(mean(n)-u) + Sigma*sqrt(dt)*N(0,1).
type RandomWalk struct {
	Drift, Sigma float64
	rng          *rand.Rand
}

// NewRandomWalk uses rng for all noise; pass a seeded source for
// reproducible runs.
func NewRandomWalk(drift, sigma float64, rng *rand.Rand) *RandomWalk {
	return &RandomWalk{Drift: drift, Sigma: sigma, rng: rng}
}

// NewSeededRandomWalk builds a RandomWalk on a PCG source.
func NewSeededRandomWalk(drift, sigma float64, seed int64) *RandomWalk {
	return NewRandomWalk(drift, sigma, rand.New(rand.NewPCG(uint64(seed), 0)))
}

func (r *RandomWalk) Apply(dst, center field.Cell, neighbors []field.Cell, dt float64) error {
	if r.rng == nil {
		return errors.New("random_walk: no random source")
	}
	noise := r.Sigma * math.Sqrt(dt)
	for i := range dst {
		mean := center[i]
		if len(neighbors) > 0 {
			mean = 0
			for _, n := range neighbors {
				mean += n[i]
			}
			mean /= float64(len(neighbors))
		}
		dst[i] = center[i] + r.Drift*dt*(mean-center[i]) + noise*r.rng.NormFloat64()
	}
	return nil
}

func (r *RandomWalk) GetParams() map[string]float64 {
	return map[string]float64{"drift": r.Drift, "sigma": r.Sigma}
}

func (r *RandomWalk) SetParam(name string, v float64) error {
	switch name {
	case "drift":
		r.Drift = v
	case "sigma":
		r.Sigma = v
	default:
		return unknownParam("random_walk", name, r.GetParams())
	}
	return nil
}
