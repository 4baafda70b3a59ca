// Package initial builds initial conditions for a grid.
package initial

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/san-kum/gridsim/internal/field"
)

// Factory builds an initializer for the given shape and cell width.
type Factory func(shape field.Shape, width int, params map[string]float64, seed int64) field.InitFunc

var factories = map[string]Factory{
	"vacuum":   Vacuum,
	"uniform":  Uniform,
	"pulse":    Pulse,
	"gaussian": Gaussian,
	"noise":    Noise,
	"gradient": Gradient,
}

// Get looks up a named initial condition.
func Get(name string) (Factory, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown initial condition: %s", name)
	}
	return f, nil
}

func List() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func param(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}

// fill returns a cell with component 0 set to v; other components stay zero.
func fill(width int, v float64) field.Cell {
	c := make(field.Cell, width)
	c[0] = v
	return c
}

func center(shape field.Shape) []float64 {
	c := make([]float64, len(shape))
	for i, d := range shape {
		c[i] = float64(d-1) / 2
	}
	return c
}

// Vacuum is the flat all-zero state.
func Vacuum(_ field.Shape, width int, _ map[string]float64, _ int64) field.InitFunc {
	return func(field.Coord) field.Cell { return make(field.Cell, width) }
}

// Uniform sets component 0 to "value" everywhere.
func Uniform(_ field.Shape, width int, params map[string]float64, _ int64) field.InitFunc {
	v := param(params, "value", 1)
	return func(field.Coord) field.Cell { return fill(width, v) }
}

// Pulse sets the center cell to "amplitude".
func Pulse(shape field.Shape, width int, params map[string]float64, _ int64) field.InitFunc {
	amp := param(params, "amplitude", 10)
	mid := make(field.Coord, len(shape))
	for i, d := range shape {
		mid[i] = d / 2
	}
	return func(c field.Coord) field.Cell {
		for i := range c {
			if c[i] != mid[i] {
				return make(field.Cell, width)
			}
		}
		return fill(width, amp)
	}
}

// Gaussian places a bump of "amplitude" and width "sigma" (in cells) at the
// center.
func Gaussian(shape field.Shape, width int, params map[string]float64, _ int64) field.InitFunc {
	amp := param(params, "amplitude", 5)
	sigma := param(params, "sigma", 2)
	mid := center(shape)
	return func(c field.Coord) field.Cell {
		r2 := 0.0
		for i := range c {
			d := float64(c[i]) - mid[i]
			r2 += d * d
		}
		return fill(width, amp*math.Exp(-r2/(2*sigma*sigma)))
	}
}

// Noise draws component 0 uniformly from [-amplitude, amplitude] using a PCG
// source seeded with seed. Cells are drawn in row-major order.
func Noise(_ field.Shape, width int, params map[string]float64, seed int64) field.InitFunc {
	amp := param(params, "amplitude", 1)
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	return func(field.Coord) field.Cell {
		return fill(width, (rng.Float64()*2-1)*amp)
	}
}

// Gradient ramps component 0 linearly along axis 0 from "low" to "high".
func Gradient(shape field.Shape, width int, params map[string]float64, _ int64) field.InitFunc {
	lo := param(params, "low", 0)
	hi := param(params, "high", 1)
	n := shape[0]
	return func(c field.Coord) field.Cell {
		if n <= 1 {
			return fill(width, lo)
		}
		t := float64(c[0]) / float64(n-1)
		return fill(width, lo+t*(hi-lo))
	}
}
