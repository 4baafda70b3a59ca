package field

import "math"

// Anomaly is one cell found outside the safe bound.
type Anomaly struct {
	Coord  Coord `json:"coord"`
	Index  int   `json:"index"`
	Values Cell  `json:"values"`
}

// Report lists anomalies in row-major order. It belongs to a single step and
// is not kept by the core.
type Report []Anomaly

// Detect scans every cell for a component v with !(|v| <= |bound|); NaN always
// qualifies. The grid is never modified and the scan never exits early.
func Detect(g *Grid, bound float64) Report {
	bound = math.Abs(bound)
	report := Report{}
	g.Each(func(idx int, c Coord) bool {
		cell := g.cell(idx)
		for _, v := range cell {
			if !(math.Abs(v) <= bound) {
				report = append(report, Anomaly{
					Coord:  c.Clone(),
					Index:  idx,
					Values: Cell(cell).Clone(),
				})
				break
			}
		}
		return true
	})
	return report
}

// Coords returns the flagged coordinates.
func (r Report) Coords() []Coord {
	out := make([]Coord, len(r))
	for i, a := range r {
		out[i] = a.Coord
	}
	return out
}
