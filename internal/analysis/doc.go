// Package analysis reduces recorded run history to time series and spectra.
//
//   - [Series]: one number per snapshot, e.g. [MeanOf] or [PeakOf]
//   - [PowerSpectrum]: magnitude spectrum of a series, zero-padded to a power of two
//   - [Divergence] and [GrowthRate]: separation of two runs started from nearby grids
//   - [Sensitivity]: runs a config twice with a perturbed starting grid
//
// # Sensitivity
//
// A positive growth rate means small differences in the starting grid are
// amplified by the rule:
//
//	rate, err := analysis.Sensitivity(ctx, cfg, nil, 1e-6)
//	if rate > 0 {
//	    // perturbations grow
//	}
package analysis
