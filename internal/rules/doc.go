// Package rules provides update rules for the field stepper.
//
// Each rule implements [field.Rule], computing a cell's next value from its
// current value and its stencil neighbors:
//
//   - [Diffusion]: explicit heat-equation update
//   - [Wave]: damped wave propagation on (displacement, velocity) cells
//   - [RandomWalk]: relaxation toward the neighbor mean plus seeded noise
//   - [NeighborSum]: sum of neighbors plus a constant
//   - [Decay]: exponential decay that ignores neighbors
//
// Many rules also implement [Configurable] for runtime parameter adjustment.
//
// # Randomness
//
// Stochastic rules take an explicit *rand.Rand. Two runs with the same seed
// and the same visiting order produce identical fields.
package rules
