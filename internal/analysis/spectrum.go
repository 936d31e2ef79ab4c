package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the magnitude of the first half of the DFT of the
// mean-removed samples. Any length is accepted.
func PowerSpectrum(samples []float64) []float64 {
	n := len(samples)
	if n < 2 {
		return nil
	}

	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(n)

	centred := make([]float64, n)
	for i, v := range samples {
		centred[i] = v - mean
	}

	coeffs := fft.FFTReal(centred)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}

// DominantFrequency is the strongest non-zero frequency in Hz of samples
// taken every dt seconds, with its magnitude. A flat signal yields 0, 0.
func DominantFrequency(samples []float64, dt float64) (float64, float64) {
	ps := PowerSpectrum(samples)
	if len(ps) < 2 || dt <= 0 {
		return 0, 0
	}

	best, idx := 0.0, 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > best {
			best, idx = ps[i], i
		}
	}
	if idx == 0 {
		return 0, 0
	}
	return float64(idx) / (float64(len(samples)) * dt), best
}
