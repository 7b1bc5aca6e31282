package features

import "testing"

func TestPairsRowCount(t *testing.T) {
	got := Pairs([]float64{1, 2, 3, 4})
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if got[0] != [2]float64{1, 2} || got[2] != [2]float64{3, 4} {
		t.Fatalf("unexpected rows %v", got)
	}
}

func TestPairsShortInput(t *testing.T) {
	if got := Pairs(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil matrix, got %v", got)
	}
	if got := Pairs([]float64{5}); len(got) != 0 {
		t.Fatalf("expected no rows for single value, got %v", got)
	}
}

func TestRMSAndExtremes(t *testing.T) {
	if got := RMS([]float64{3, -3, 3, -3}); got != 3 {
		t.Fatalf("rms = %v", got)
	}
	lo, hi := Extremes([]float64{2, -1, 7, 0})
	if lo != -1 || hi != 7 {
		t.Fatalf("extremes = %v %v", lo, hi)
	}
}
