package field

import "math"

// Repair clamps every component of each reported cell into [-bound, bound],
// keeping its sign. NaN has no sign and becomes 0. It returns the number of
// cells whose values changed, so repeating a repair reports 0.
func Repair(g *Grid, report Report, bound float64) (int, error) {
	bound = math.Abs(bound)
	modified := 0
	for _, a := range report {
		idx, err := g.Index(a.Coord)
		if err != nil {
			return modified, err
		}
		changed := false
		cell := g.cell(idx)
		for i, v := range cell {
			c := clamp(v, bound)
			if math.Float64bits(c) != math.Float64bits(v) {
				cell[i] = c
				changed = true
			}
		}
		if changed {
			modified++
		}
	}
	return modified, nil
}

func clamp(v, bound float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > bound:
		return bound
	case v < -bound:
		return -bound
	}
	return v
}
