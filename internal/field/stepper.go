package field

import (
	"fmt"
	"math"
)

// Rule computes the next value of one cell. It writes the result into dst and
// must treat center and neighbors as read-only. Neighbors arrive in stencil
// order.
type Rule interface {
	Apply(dst, center Cell, neighbors []Cell, dt float64) error
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc func(dst, center Cell, neighbors []Cell, dt float64) error

func (f RuleFunc) Apply(dst, center Cell, neighbors []Cell, dt float64) error {
	return f(dst, center, neighbors, dt)
}

// Stepper advances a grid by one time unit. Every cell is computed from the
// old state into a scratch buffer; the buffers are swapped only after the
// whole pass succeeds.
type Stepper struct {
	stencil  Stencil
	boundary Boundary
	clock    Clock

	scratch   []float64
	neighbors []Cell
	zero      Cell
}

func NewStepper(stencil Stencil, boundary Boundary) *Stepper {
	return &Stepper{
		stencil:   stencil,
		boundary:  boundary,
		neighbors: make([]Cell, len(stencil)),
	}
}

func (s *Stepper) Stencil() Stencil   { return s.stencil }
func (s *Stepper) Boundary() Boundary { return s.boundary }
func (s *Stepper) Clock() Clock       { return s.clock }

// Reset zeroes the clock.
func (s *Stepper) Reset() { s.clock = Clock{} }

func (s *Stepper) ensureScratch(g *Grid) {
	if len(s.scratch) != len(g.data) {
		s.scratch = make([]float64, len(g.data))
	}
	if len(s.zero) != g.width {
		s.zero = make(Cell, g.width)
	}
	for i := range s.zero {
		s.zero[i] = 0
	}
}

// Step applies rule to every cell of g. On any failure the grid and the clock
// are left untouched and a *StepComputationError is returned.
func (s *Stepper) Step(g *Grid, dt float64, rule Rule) error {
	next := s.clock.Step + 1
	if !(dt > 0) || math.IsInf(dt, 1) {
		return &StepComputationError{Step: next, Wrapped: ErrInvalidTimestep}
	}
	if rule == nil {
		return &StepComputationError{Step: next, Wrapped: fmt.Errorf("nil rule")}
	}
	if len(s.stencil) > 0 && s.stencil.Rank() != len(g.shape) {
		return &InvalidShapeError{
			Shape:  g.shape.Clone(),
			Width:  g.width,
			Reason: fmt.Sprintf("stencil rank %d does not match grid rank %d", s.stencil.Rank(), len(g.shape)),
		}
	}

	s.ensureScratch(g)
	w := g.width

	var failed error
	g.Each(func(idx int, c Coord) bool {
		for k, off := range s.stencil {
			if ni := s.neighborIndex(g, c, off); ni < 0 {
				s.neighbors[k] = s.zero
			} else {
				s.neighbors[k] = g.cell(ni)
			}
		}

		dst := Cell(s.scratch[idx*w : (idx+1)*w : (idx+1)*w])
		if err := s.apply(rule, dst, g.cell(idx), dt); err != nil {
			failed = &StepComputationError{Step: next, Coord: c.Clone(), Wrapped: err}
			return false
		}
		for _, v := range dst {
			if math.IsNaN(v) {
				failed = &StepComputationError{Step: next, Coord: c.Clone(), Wrapped: ErrNonFinite}
				return false
			}
		}
		return true
	})
	if failed != nil {
		return failed
	}

	g.data, s.scratch = s.scratch, g.data
	s.clock.Step = next
	s.clock.Time += dt
	return nil
}

func (s *Stepper) apply(rule Rule, dst, center Cell, dt float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Apply(dst, center, s.neighbors, dt)
}

func (s *Stepper) neighborIndex(g *Grid, c Coord, off Offset) int {
	idx := 0
	for axis, d := range off {
		p := s.boundary.resolve(c[axis]+d, g.shape[axis])
		if p < 0 {
			return -1
		}
		idx += p * g.strides[axis]
	}
	return idx
}
