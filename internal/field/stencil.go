package field

import (
	"fmt"
	"strings"
)

// Offset is a relative coordinate from a cell to one of its neighbors.
type Offset []int

// Stencil is the ordered set of neighbor offsets consulted for each cell.
// Rules receive neighbors in stencil order.
type Stencil []Offset

// Rank returns the number of axes the stencil addresses, or 0 when empty.
func (s Stencil) Rank() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// VonNeumann returns the 2*rank axis neighbors, ordered per axis as -1 then +1.
// In 2-D this is up, down, left, right.
func VonNeumann(rank int) Stencil {
	s := make(Stencil, 0, 2*rank)
	for axis := 0; axis < rank; axis++ {
		for _, d := range []int{-1, 1} {
			off := make(Offset, rank)
			off[axis] = d
			s = append(s, off)
		}
	}
	return s
}

// Moore returns all 3^rank-1 surrounding offsets in row-major order.
func Moore(rank int) Stencil {
	total := 1
	for i := 0; i < rank; i++ {
		total *= 3
	}
	s := make(Stencil, 0, total-1)
	for n := 0; n < total; n++ {
		off := make(Offset, rank)
		rem, zero := n, true
		for axis := rank - 1; axis >= 0; axis-- {
			off[axis] = rem%3 - 1
			rem /= 3
			if off[axis] != 0 {
				zero = false
			}
		}
		if !zero {
			s = append(s, off)
		}
	}
	return s
}

// ParseStencil maps a config name to a stencil of the given rank.
func ParseStencil(name string, rank int) (Stencil, error) {
	switch strings.ToLower(name) {
	case "", "von_neumann", "vonneumann", "cross":
		return VonNeumann(rank), nil
	case "moore", "box":
		return Moore(rank), nil
	}
	return nil, fmt.Errorf("unknown stencil: %s", name)
}
