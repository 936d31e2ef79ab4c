// Package analysis characterizes recorded or simulated cart-pole motion.
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillation content of a
//     sampled signal such as the pole angle
//   - [LyapunovExponent]: closed-loop sensitivity to a small angle
//     perturbation
//   - [NewPhasePortrait]: 2D phase space view of an episode
//
// Between switches a bang-bang policy applies a constant force, so the
// exponent of a balanced run still reflects the open-loop saddle:
//
//	lambda, err := analysis.LyapunovExponent(cfg, build, x0, 2000, 1e-6)
//	if err == nil && lambda > 0 {
//	    // small angle errors grow between corrections
//	}
package analysis
