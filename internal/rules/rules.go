package rules

import (
	"fmt"
	"sort"
)

// Configurable exposes named parameters for sweeps and scenario overrides.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Widther reports the cell width a rule expects.
type Widther interface {
	Width() int
}

func unknownParam(rule, name string, params map[string]float64) error {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Errorf("%s: unknown parameter %q (have %v)", rule, name, names)
}

func checkWidth(rule string, want int, dst, center []float64) error {
	if len(dst) != want || len(center) != want {
		return fmt.Errorf("%s: expects cells of width %d, got %d", rule, want, len(center))
	}
	return nil
}
