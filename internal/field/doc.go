// Package field provides the simulation core for fixed-grid field evolution.
//
// The package defines the state store and the per-step operations that act on it:
//
//   - [Grid]: fixed-shape N-D array of equally sized cells, row-major
//   - [Stepper]: double-buffered local update driven by a pluggable [Rule]
//   - [Detect]: pure scan for cells outside a safe bound
//   - [Repair]: sign-preserving clamp of the cells a [Report] flags
//   - [TakeSnapshot]: deep copy of the grid and [Clock] for export
//
// # Example
//
//	g, _ := field.New(field.Shape{32, 32}, 1, nil)
//	st := field.NewStepper(field.VonNeumann(2), field.Reflect)
//	if err := st.Step(g, 0.1, rules.NewDiffusion(0.2)); err != nil {
//	    return err
//	}
//	report := field.Detect(g, 10)
//	field.Repair(g, report, 10)
//	snap := field.TakeSnapshot(g, st.Clock())
//
// # Thread Safety
//
// Grid and Stepper are NOT thread-safe. Independent simulations must each own
// their own Grid and Stepper; nothing in this package is shared between them.
package field
