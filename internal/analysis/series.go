package analysis

import (
	"github.com/san-kum/gridsim/internal/field"
	"github.com/san-kum/gridsim/internal/metrics"
)

// Extractor reduces one snapshot to a number.
type Extractor func(field.Snapshot) float64

// Series applies fn to every snapshot in order.
func Series(history []field.Snapshot, fn Extractor) []float64 {
	out := make([]float64, len(history))
	for i, snap := range history {
		out[i] = fn(snap)
	}
	return out
}

// Times returns the clock time of every snapshot.
func Times(history []field.Snapshot) []float64 {
	return Series(history, func(s field.Snapshot) float64 { return s.Time })
}

// MeanOf averages component k over the grid.
func MeanOf(k int) Extractor {
	return func(s field.Snapshot) float64 { return s.Mean(k) }
}

// CellOf reads component k of the cell at c, or 0 outside the grid.
func CellOf(c field.Coord, k int) Extractor {
	return func(s field.Snapshot) float64 {
		cell := s.Cell(c)
		if k < 0 || k >= len(cell) {
			return 0
		}
		return cell[k]
	}
}

func PeakOf(s field.Snapshot) float64   { return s.MaxAbs() }
func EnergyOf(s field.Snapshot) float64 { return metrics.FieldEnergy(s) }

// Extractors maps CLI names to extractors over component 0.
var Extractors = map[string]Extractor{
	"mean":   MeanOf(0),
	"peak":   PeakOf,
	"energy": EnergyOf,
}
