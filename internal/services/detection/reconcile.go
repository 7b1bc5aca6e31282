package detection

import (
	"fmt"

	"PQAnalyzer/internal/domain/service"
)

// Align shifts row predictions onto series indices. Row i describes the step
// into sample i+1, so index 0 has no prediction and stays false.
func Align(pred []bool, n int) ([]bool, error) {
	want := n - 1
	if want < 0 {
		want = 0
	}
	if len(pred) != want {
		return nil, fmt.Errorf("%w: got %d predictions for %d samples", service.ErrPredictionLength, len(pred), n)
	}
	out := make([]bool, n)
	for i := 1; i < n; i++ {
		out[i] = pred[i-1]
	}
	return out, nil
}

// Reconcile intersects the shifted predictions with the peak flags.
func Reconcile(pred, peaks []bool) ([]bool, error) {
	aligned, err := Align(pred, len(peaks))
	if err != nil {
		return nil, err
	}
	for i := range aligned {
		aligned[i] = aligned[i] && peaks[i]
	}
	return aligned, nil
}

// Count is the number of true entries.
func Count(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}

// Agreement is the share of indices 1..n-1 where the aligned prediction matches the label.
func Agreement(aligned, labels []bool) float64 {
	n := len(aligned)
	if len(labels) < n {
		n = len(labels)
	}
	if n < 2 {
		return 0
	}
	same := 0
	for i := 1; i < n; i++ {
		if aligned[i] == labels[i] {
			same++
		}
	}
	return float64(same) / float64(n-1)
}
