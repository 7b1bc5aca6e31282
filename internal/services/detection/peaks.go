package detection

// DetectPeaks flags strict local maxima: index i is true iff v[i-1] < v[i] > v[i+1].
// The first and last index are never peaks, so inputs shorter than 3 yield all false.
func DetectPeaks(v []float64) []bool {
	out := make([]bool, len(v))
	for i := 1; i < len(v)-1; i++ {
		out[i] = v[i-1] < v[i] && v[i] > v[i+1]
	}
	return out
}
