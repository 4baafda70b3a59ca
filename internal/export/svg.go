package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/gridsim/internal/field"
	"github.com/san-kum/gridsim/internal/viz"
)

const background = "#0a0a0a"

// HeatmapSVG draws component k of snap as one square per cell of side
// cellSize, colored like the terminal heatmap.
func HeatmapSVG(w io.Writer, snap field.Snapshot, k int, scale float64, theme viz.Theme, cellSize int) error {
	rows := viz.Slice(snap, k)
	if len(rows) == 0 || len(rows[0]) == 0 {
		return fmt.Errorf("component %d of %v has nothing to draw", k, []int(snap.Shape))
	}
	if cellSize <= 0 {
		cellSize = 8
	}

	width := len(rows[0]) * cellSize
	height := len(rows) * cellSize

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	for r, row := range rows {
		for c, v := range row {
			fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>
`, c*cellSize, r*cellSize, cellSize, cellSize, string(viz.CellColor(v, scale, theme)))
		}
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// SeriesSVG draws values against times as a single path with 10% padding on
// each side.
func SeriesSVG(w io.Writer, times, values []float64, width, height int, strokeColor string) error {
	if len(values) < 2 || len(times) != len(values) {
		return fmt.Errorf("need at least two matching samples, have %d times and %d values", len(times), len(values))
	}

	minX, maxX := times[0], times[0]
	minY, maxY := values[0], values[0]
	for i := range values {
		minX, maxX = min(minX, times[i]), max(maxX, times[i])
		minY, maxY = min(minY, values[i]), max(maxY, values[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	for i := range values {
		x := (times[i] - minX) / rangeX * float64(width)
		y := float64(height) - (values[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>
`)
	_, err := io.WriteString(w, sb.String())
	return err
}
