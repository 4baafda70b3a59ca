// Package viz renders grid snapshots in the terminal.
//
// The package implements a live view using the Bubble Tea framework:
//
//   - [Heatmap]: colored block rendering of one component of a snapshot
//   - [ASCIIHeatmap]: the same plane as plain characters
//   - [Model]: live view that drives a [sim.Loop] one cycle per tick
//   - [App]: preset menu that launches a [Model]
//   - Theme selection with 4 built-in color schemes
//
// Grids of rank 1 render as a single row. For rank 3 and above the last two
// axes are shown with the leading axes fixed at their midpoint.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single cycle while paused
//	C     - Cycle displayed component
//	+/-   - Adjust color scale
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Stop the loop and quit
package viz
