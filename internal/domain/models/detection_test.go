package models

import "testing"

func TestParsePhenomenon(t *testing.T) {
	p, err := ParsePhenomenon(" SAG ")
	if err != nil || p != Sag {
		t.Fatalf("got %q, %v", p, err)
	}
	if _, err := ParsePhenomenon("flicker"); err == nil {
		t.Fatalf("expected error for unknown phenomenon")
	}
}

func TestRankFollowsPriority(t *testing.T) {
	if !(Swell.Rank() < Sag.Rank() && Sag.Rank() < Harmonic.Rank()) {
		t.Fatalf("ranks out of order: %d %d %d", Swell.Rank(), Sag.Rank(), Harmonic.Rank())
	}
	if Phenomenon("other").Rank() != len(Phenomena) {
		t.Fatalf("unknown should rank last")
	}
}

func TestThresholdBand(t *testing.T) {
	th := DefaultThresholds()
	if th.Lower() != 220*1.1 || th.Upper() != 220*1.8 {
		t.Fatalf("band = %v..%v", th.Lower(), th.Upper())
	}
}
