package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/gridsim/internal/field"
)

const asciiRamp = " .:-=+*#%@"

// plane is the 2-D view of one component that gets rendered.
type plane struct {
	rows, cols int
	at         func(r, c int) float64
}

func planeOf(snap field.Snapshot, k int) plane {
	rank := len(snap.Shape)
	if rank == 0 || snap.Width == 0 || k < 0 || k >= snap.Width {
		return plane{}
	}

	strides := make([]int, rank)
	stride := 1
	for i := rank - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= snap.Shape[i]
	}

	base := 0
	for i := 0; i < rank-2; i++ {
		base += (snap.Shape[i] / 2) * strides[i]
	}

	value := func(idx int) float64 { return snap.Values[idx*snap.Width+k] }
	if rank == 1 {
		return plane{rows: 1, cols: snap.Shape[0], at: func(_, c int) float64 { return value(c) }}
	}
	rs, cs := strides[rank-2], strides[rank-1]
	return plane{
		rows: snap.Shape[rank-2],
		cols: snap.Shape[rank-1],
		at:   func(r, c int) float64 { return value(base + r*rs + c*cs) },
	}
}

// normalize maps v to [-1, 1] relative to scale.
func normalize(v, scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return min(max(v/scale, -1), 1)
}

// Slice returns the plane that the heatmaps render: component k of a 2-D
// snapshot, one row for 1-D, and the middle slice of any leading axes.
func Slice(snap field.Snapshot, k int) [][]float64 {
	p := planeOf(snap, k)
	rows := make([][]float64, p.rows)
	for r := range rows {
		rows[r] = make([]float64, p.cols)
		for c := range rows[r] {
			rows[r][c] = p.at(r, c)
		}
	}
	return rows
}

// CellColor blends from theme.Cold at -scale through theme.Neutral to
// theme.Hot at +scale.
func CellColor(v, scale float64, theme Theme) lipgloss.Color {
	t := normalize(v, scale)
	if t < 0 {
		return blend(theme.Neutral, theme.Cold, -t)
	}
	return blend(theme.Neutral, theme.Hot, t)
}

// ASCIIHeatmap renders component k with one character per cell, from ' ' at
// -scale to '@' at +scale.
func ASCIIHeatmap(snap field.Snapshot, k int, scale float64) string {
	p := planeOf(snap, k)
	var b strings.Builder
	for r := 0; r < p.rows; r++ {
		for c := 0; c < p.cols; c++ {
			t := (normalize(p.at(r, c), scale) + 1) / 2
			b.WriteByte(asciiRamp[int(t*float64(len(asciiRamp)-1)+0.5)])
		}
		if r < p.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Heatmap renders component k as two-column colored blocks colored by
// CellColor.
func Heatmap(snap field.Snapshot, k int, scale float64, theme Theme) string {
	p := planeOf(snap, k)
	styles := make(map[lipgloss.Color]lipgloss.Style)

	var b strings.Builder
	for r := 0; r < p.rows; r++ {
		for c := 0; c < p.cols; c++ {
			color := CellColor(p.at(r, c), scale, theme)
			style, ok := styles[color]
			if !ok {
				style = lipgloss.NewStyle().Foreground(color)
				styles[color] = style
			}
			b.WriteString(style.Render("██"))
		}
		if r < p.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
