package features

import "math"

// Pairs builds the classifier input: row i is (v[i], v[i+1]).
// It returns n-1 rows, or an empty matrix when fewer than two values are given.
func Pairs(v []float64) [][2]float64 {
	if len(v) < 2 {
		return [][2]float64{}
	}
	out := make([][2]float64, len(v)-1)
	for i := 0; i < len(v)-1; i++ {
		out[i] = [2]float64{v[i], v[i+1]}
	}
	return out
}

// RMS computes the root mean square of the values, or 0 for an empty slice.
func RMS(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum2 := 0.0
	for _, x := range v {
		sum2 += x * x
	}
	return math.Sqrt(sum2 / float64(len(v)))
}

// Extremes returns the minimum and maximum, both 0 for an empty slice.
func Extremes(v []float64) (lo, hi float64) {
	if len(v) == 0 {
		return 0, 0
	}
	lo, hi = v[0], v[0]
	for _, x := range v[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}
