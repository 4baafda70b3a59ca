package field

import (
	"fmt"
	"strings"
)

// Boundary selects what a stencil sees beyond the edge of the grid. It is fixed
// when the Stepper is built and applies identically to every cell.
type Boundary int

const (
	// Reflect mirrors the interior across the edge cell: position -1 reads
	// cell 1 and position n reads cell n-2. Axes of extent 1 read the edge cell.
	Reflect Boundary = iota
	// ZeroFlux repeats the edge cell, so the gradient across the boundary is zero.
	ZeroFlux
	// Fixed reads a zero cell beyond the edge (Dirichlet zero).
	Fixed
	// Periodic wraps around to the opposite edge.
	Periodic
)

var boundaryNames = map[Boundary]string{
	Reflect:  "reflect",
	ZeroFlux: "zero_flux",
	Fixed:    "fixed",
	Periodic: "periodic",
}

func (b Boundary) String() string {
	if name, ok := boundaryNames[b]; ok {
		return name
	}
	return fmt.Sprintf("boundary(%d)", int(b))
}

// ParseBoundary maps a config name to a Boundary.
func ParseBoundary(name string) (Boundary, error) {
	switch strings.ToLower(name) {
	case "", "reflect", "mirror":
		return Reflect, nil
	case "zero_flux", "zeroflux", "neumann", "edge":
		return ZeroFlux, nil
	case "fixed", "zero", "dirichlet":
		return Fixed, nil
	case "periodic", "wrap", "torus":
		return Periodic, nil
	}
	return Reflect, fmt.Errorf("unknown boundary: %s", name)
}

// resolve maps position p on an axis of extent n to an in-grid position, or
// -1 when the boundary supplies a zero ghost cell.
func (b Boundary) resolve(p, n int) int {
	if p >= 0 && p < n {
		return p
	}
	switch b {
	case Fixed:
		return -1
	case Periodic:
		return ((p % n) + n) % n
	case Reflect:
		if p < 0 {
			p = -p
		} else {
			p = 2*(n-1) - p
		}
	}
	if p < 0 {
		return 0
	}
	if p >= n {
		return n - 1
	}
	return p
}
