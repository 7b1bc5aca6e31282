package detection

import "PQAnalyzer/internal/domain/models"

// Label marks values inside the closed band [th.Lower(), th.Upper()].
func Label(v []float64, th models.Thresholds) []bool {
	lo, hi := th.Lower(), th.Upper()
	out := make([]bool, len(v))
	for i, x := range v {
		out[i] = x >= lo && x <= hi
	}
	return out
}
