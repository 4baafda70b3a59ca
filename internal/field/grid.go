package field

import (
	"fmt"
	"math"
)

// Shape lists the grid extent along each axis.
type Shape []int

// Size returns the number of cells, or 0 for an invalid shape.
func (s Shape) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		if d <= 0 {
			return 0
		}
		n *= d
	}
	return n
}

func (s Shape) Rank() int { return len(s) }

func (s Shape) Clone() Shape {
	c := make(Shape, len(s))
	copy(c, s)
	return c
}

// Coord addresses one cell; the last axis varies fastest.
type Coord []int

func (c Coord) Clone() Coord {
	out := make(Coord, len(c))
	copy(out, c)
	return out
}

// Cell is the fixed-width bundle of values stored at one coordinate.
type Cell []float64

func (c Cell) Clone() Cell {
	out := make(Cell, len(c))
	copy(out, c)
	return out
}

// InitFunc returns the initial value of the cell at c.
type InitFunc func(c Coord) Cell

// Grid stores cells in a flat row-major slice. The shape is immutable.
type Grid struct {
	shape   Shape
	strides []int
	width   int
	data    []float64
}

// New allocates a grid and fills it with init. A nil init leaves the vacuum
// (all zero) state.
func New(shape Shape, width int, init InitFunc) (*Grid, error) {
	if len(shape) == 0 {
		return nil, &InvalidShapeError{Shape: shape, Width: width, Reason: "no dimensions"}
	}
	for i, d := range shape {
		if d <= 0 {
			return nil, &InvalidShapeError{Shape: shape.Clone(), Width: width, Reason: fmt.Sprintf("dimension %d is not positive", i)}
		}
	}
	if width <= 0 {
		return nil, &InvalidShapeError{Shape: shape.Clone(), Width: width, Reason: "cell width is not positive"}
	}

	g := &Grid{
		shape:   shape.Clone(),
		strides: make([]int, len(shape)),
		width:   width,
		data:    make([]float64, shape.Size()*width),
	}
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		g.strides[i] = stride
		stride *= shape[i]
	}

	if init == nil {
		return g, nil
	}

	var err error
	g.Each(func(idx int, c Coord) bool {
		v := init(c)
		if len(v) != width {
			err = &InvalidShapeError{Shape: g.shape.Clone(), Width: width, Reason: fmt.Sprintf("initializer returned a cell of width %d", len(v))}
			return false
		}
		copy(g.cell(idx), v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grid) Shape() Shape { return g.shape.Clone() }
func (g *Grid) Width() int   { return g.width }

// Len returns the number of cells.
func (g *Grid) Len() int { return len(g.data) / g.width }

// Index converts a coordinate to its row-major cell index.
func (g *Grid) Index(c Coord) (int, error) {
	if len(c) != len(g.shape) {
		return 0, &OutOfBoundsError{Coord: c.Clone(), Shape: g.shape.Clone()}
	}
	idx := 0
	for i, v := range c {
		if v < 0 || v >= g.shape[i] {
			return 0, &OutOfBoundsError{Coord: c.Clone(), Shape: g.shape.Clone()}
		}
		idx += v * g.strides[i]
	}
	return idx, nil
}

// CoordOf converts a row-major cell index back to a coordinate.
func (g *Grid) CoordOf(idx int) (Coord, error) {
	if idx < 0 || idx >= g.Len() {
		return nil, &OutOfBoundsError{Coord: Coord{idx}, Shape: g.shape.Clone()}
	}
	c := make(Coord, len(g.shape))
	for i, s := range g.strides {
		c[i] = idx / s
		idx %= s
	}
	return c, nil
}

// Get returns a copy of the cell at c.
func (g *Grid) Get(c Coord) (Cell, error) {
	idx, err := g.Index(c)
	if err != nil {
		return nil, err
	}
	return Cell(g.cell(idx)).Clone(), nil
}

// Set overwrites the cell at c.
func (g *Grid) Set(c Coord, v Cell) error {
	idx, err := g.Index(c)
	if err != nil {
		return err
	}
	if len(v) != g.width {
		return &InvalidShapeError{Shape: g.shape.Clone(), Width: g.width, Reason: fmt.Sprintf("cell of width %d", len(v))}
	}
	copy(g.cell(idx), v)
	return nil
}

// Each visits every cell in row-major order until fn returns false. The
// coordinate passed to fn is reused between calls.
func (g *Grid) Each(fn func(idx int, c Coord) bool) {
	c := make(Coord, len(g.shape))
	n := g.Len()
	for idx := 0; idx < n; idx++ {
		if !fn(idx, c) {
			return
		}
		for i := len(c) - 1; i >= 0; i-- {
			c[i]++
			if c[i] < g.shape[i] {
				break
			}
			c[i] = 0
		}
	}
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		shape:   g.shape.Clone(),
		strides: make([]int, len(g.strides)),
		width:   g.width,
		data:    make([]float64, len(g.data)),
	}
	copy(c.strides, g.strides)
	copy(c.data, g.data)
	return c
}

// Equal reports bit-for-bit equality of shape, width and values.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.width != other.width || len(g.shape) != len(other.shape) {
		return false
	}
	for i := range g.shape {
		if g.shape[i] != other.shape[i] {
			return false
		}
	}
	for i := range g.data {
		if math.Float64bits(g.data[i]) != math.Float64bits(other.data[i]) {
			return false
		}
	}
	return true
}

func (g *Grid) cell(idx int) []float64 {
	return g.data[idx*g.width : (idx+1)*g.width : (idx+1)*g.width]
}
