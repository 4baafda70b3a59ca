package field

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Snapshot is an independent copy of the grid at one point in time. It shares
// no memory with the grid it was taken from.
type Snapshot struct {
	Step   int       `json:"step"`
	Time   float64   `json:"time"`
	Shape  Shape     `json:"shape"`
	Width  int       `json:"width"`
	Values []float64 `json:"values"`
}

// TakeSnapshot deep-copies g together with the clock reading.
func TakeSnapshot(g *Grid, clock Clock) Snapshot {
	values := make([]float64, len(g.data))
	copy(values, g.data)
	return Snapshot{
		Step:   clock.Step,
		Time:   clock.Time,
		Shape:  g.shape.Clone(),
		Width:  g.width,
		Values: values,
	}
}

// Clone returns a copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Shape = s.Shape.Clone()
	out.Values = append([]float64(nil), s.Values...)
	return out
}

// Len returns the number of cells.
func (s Snapshot) Len() int {
	if s.Width == 0 {
		return 0
	}
	return len(s.Values) / s.Width
}

// Cell returns a copy of the cell at c, or nil when c is outside the shape.
func (s Snapshot) Cell(c Coord) Cell {
	if len(c) != len(s.Shape) {
		return nil
	}
	idx := 0
	for i, v := range c {
		if v < 0 || v >= s.Shape[i] {
			return nil
		}
		idx = idx*s.Shape[i] + v
	}
	return Cell(s.Values[idx*s.Width : (idx+1)*s.Width]).Clone()
}

// Component extracts component k of every cell in row-major order.
func (s Snapshot) Component(k int) []float64 {
	if k < 0 || k >= s.Width {
		return nil
	}
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.Values[i*s.Width+k]
	}
	return out
}

// Mean returns the average of component k.
func (s Snapshot) Mean(k int) float64 {
	comp := s.Component(k)
	if len(comp) == 0 {
		return 0
	}
	return floats.Sum(comp) / float64(len(comp))
}

// MaxAbs returns the largest magnitude over all values.
func (s Snapshot) MaxAbs() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return math.Max(math.Abs(floats.Max(s.Values)), math.Abs(floats.Min(s.Values)))
}

// Grid rebuilds a live grid from the snapshot.
func (s Snapshot) Grid() (*Grid, error) {
	g, err := New(s.Shape, s.Width, nil)
	if err != nil {
		return nil, err
	}
	if len(s.Values) != len(g.data) {
		return nil, &InvalidShapeError{Shape: s.Shape.Clone(), Width: s.Width, Reason: "value count does not match shape"}
	}
	copy(g.data, s.Values)
	return g, nil
}
