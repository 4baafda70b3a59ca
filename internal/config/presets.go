package config

import "sort"

var Presets = map[string]map[string]*Config{
	"diffusion": {
		"pulse": {
			Rule: "diffusion", Shape: []int{32, 32}, Initial: "pulse", Boundary: "reflect", Stencil: "von_neumann",
			Dt: 0.1, Steps: 200, Bound: 10, RecordEvery: 10,
			Params: map[string]float64{"rate": 2.0}, InitParams: map[string]float64{"amplitude": 50},
		},
		"noise": {
			Rule: "diffusion", Shape: []int{48, 48}, Initial: "noise", Boundary: "periodic", Stencil: "von_neumann",
			Dt: 0.1, Steps: 300, Bound: 5, RecordEvery: 10,
			Params: map[string]float64{"rate": 1.0}, InitParams: map[string]float64{"amplitude": 3},
		},
		"rod": {
			Rule: "diffusion", Shape: []int{64}, Initial: "gradient", Boundary: "zero_flux", Stencil: "von_neumann",
			Dt: 0.1, Steps: 500, Bound: 10, RecordEvery: 25,
			Params: map[string]float64{"rate": 2.0}, InitParams: map[string]float64{"low": -5, "high": 5},
		},
	},
	"wave": {
		"drop": {
			Rule: "wave", Shape: []int{40, 40}, Initial: "gaussian", Boundary: "fixed", Stencil: "von_neumann",
			Dt: 0.05, Steps: 400, Bound: 10, RecordEvery: 10,
			Params: map[string]float64{"speed": 1.0, "damping": 0.01}, InitParams: map[string]float64{"amplitude": 5, "sigma": 2},
		},
		"string": {
			Rule: "wave", Shape: []int{80}, Initial: "pulse", Boundary: "fixed", Stencil: "von_neumann",
			Dt: 0.05, Steps: 600, Bound: 10, RecordEvery: 20,
			Params: map[string]float64{"speed": 1.0}, InitParams: map[string]float64{"amplitude": 4},
		},
	},
	"random_walk": {
		"calm": {
			Rule: "random_walk", Shape: []int{32, 32}, Initial: "vacuum", Boundary: "periodic", Stencil: "moore",
			Dt: 0.1, Steps: 200, Bound: 3, RecordEvery: 10, OnError: OnErrorSkip,
			Params: map[string]float64{"drift": 1.0, "sigma": 0.2},
		},
		"storm": {
			Rule: "random_walk", Shape: []int{32, 32}, Initial: "noise", Boundary: "periodic", Stencil: "moore",
			Dt: 0.1, Steps: 200, Bound: 2, RecordEvery: 10, OnError: OnErrorSkip,
			Params: map[string]float64{"drift": 0.2, "sigma": 3.0}, InitParams: map[string]float64{"amplitude": 1},
		},
	},
	"neighbor_sum": {
		"example": {
			Rule: "neighbor_sum", Shape: []int{3, 3}, Initial: "vacuum", Boundary: "fixed", Stencil: "von_neumann",
			Dt: 1, Steps: 3, Bound: 10, RecordEvery: 1,
			Params: map[string]float64{"offset": 1},
		},
	},
	"decay": {
		"slow": {
			Rule: "decay", Shape: []int{16, 16}, Initial: "uniform", Boundary: "reflect", Stencil: "von_neumann",
			Dt: 0.1, Steps: 100, Bound: 10, RecordEvery: 5,
			Params: map[string]float64{"rate": 0.5}, InitParams: map[string]float64{"value": 8},
		},
	},
}

// GetPreset returns a copy of the named preset with unset fields filled from
// the defaults, or nil.
func GetPreset(rule, name string) *Config {
	presets, ok := Presets[rule]
	if !ok {
		return nil
	}
	p, ok := presets[name]
	if !ok {
		return nil
	}
	cfg := p.Clone()
	def := DefaultConfig()
	if cfg.OnError == "" {
		cfg.OnError = def.OnError
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	return cfg
}

func ListPresets(rule string) []string {
	presets, ok := Presets[rule]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
