package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/gridsim/internal/field"
	"github.com/san-kum/gridsim/internal/initial"
	"github.com/san-kum/gridsim/internal/metrics"
	"github.com/san-kum/gridsim/internal/rules"
	"github.com/san-kum/gridsim/internal/sim"
)

// RuleFactory builds a fresh rule instance. seed is used by stochastic rules.
type RuleFactory func(seed int64) field.Rule

type Registry struct {
	rules map[string]RuleFactory
}

func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]RuleFactory)}

	r.rules["diffusion"] = func(int64) field.Rule { return rules.NewDiffusion(0.2) }
	r.rules["wave"] = func(int64) field.Rule { return rules.NewWave(1.0, 0) }
	r.rules["random_walk"] = func(seed int64) field.Rule { return rules.NewSeededRandomWalk(0.5, 0.1, seed) }
	r.rules["neighbor_sum"] = func(int64) field.Rule { return rules.NewNeighborSum(1) }
	r.rules["decay"] = func(int64) field.Rule { return rules.NewDecay(0.1) }

	return r
}

// Register adds or replaces a rule factory.
func (r *Registry) Register(name string, fn RuleFactory) {
	r.rules[name] = fn
}

// GetRule builds the named rule, applies params and reports its cell width.
func (r *Registry) GetRule(name string, params map[string]float64, seed int64) (field.Rule, int, error) {
	fn, ok := r.rules[name]
	if !ok {
		return nil, 0, fmt.Errorf("unknown rule: %s", name)
	}
	rule := fn(seed)

	if len(params) > 0 {
		c, ok := rule.(rules.Configurable)
		if !ok {
			return nil, 0, fmt.Errorf("rule %s takes no parameters", name)
		}
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := c.SetParam(k, params[k]); err != nil {
				return nil, 0, err
			}
		}
	}

	width := 1
	if w, ok := rule.(rules.Widther); ok {
		width = w.Width()
	}
	return rule, width, nil
}

func (r *Registry) GetInitial(name string) (initial.Factory, error) {
	return initial.Get(name)
}

func (r *Registry) ListRules() []string {
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RuleParams returns the default parameters of the named rule.
func (r *Registry) RuleParams(name string) (map[string]float64, error) {
	rule, _, err := r.GetRule(name, nil, 0)
	if err != nil {
		return nil, err
	}
	if c, ok := rule.(rules.Configurable); ok {
		return c.GetParams(), nil
	}
	return map[string]float64{}, nil
}

func (r *Registry) DefaultMetrics() []sim.Metric {
	names := metrics.Names()
	out := make([]sim.Metric, 0, len(names))
	for _, name := range names {
		out = append(out, metrics.New(name))
	}
	return out
}
