package engine

import "math"

// dftMagnitudes returns the magnitudes of the first depth components of
// the discrete Fourier transform of x (component 0 is the DC term). The
// transform is computed directly; at 24 samples there is nothing to gain
// from a radix decomposition and the direct form keeps the arithmetic
// order, and therefore the output, stable.
func dftMagnitudes(x []float64, depth int) []float64 {
	n := len(x)
	if depth > n {
		depth = n
	}
	mags := make([]float64, depth)
	for k := 0; k < depth; k++ {
		var re, im float64
		for i, v := range x {
			angle := -2 * math.Pi * float64(k) * float64(i) / float64(n)
			re += v * math.Cos(angle)
			im += v * math.Sin(angle)
		}
		mags[k] = math.Hypot(re, im)
	}
	return mags
}
