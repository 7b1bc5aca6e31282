package models

import (
	"fmt"
	"strings"
	"time"
)

// Phenomenon is a power-quality disturbance class with its own classifier.
type Phenomenon string

const (
	Swell    Phenomenon = "swell"
	Sag      Phenomenon = "sag"
	Harmonic Phenomenon = "harmonic"
)

// Phenomena lists every known class in priority order.
var Phenomena = []Phenomenon{Swell, Sag, Harmonic}

// ParsePhenomenon accepts the canonical names case-insensitively.
func ParsePhenomenon(s string) (Phenomenon, error) {
	p := Phenomenon(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Phenomena {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phenomenon %q", s)
}

// Rank is the position in Phenomena. Unknown names sort last.
func (p Phenomenon) Rank() int {
	for i, known := range Phenomena {
		if p == known {
			return i
		}
	}
	return len(Phenomena)
}

// Thresholds define the labeling band [Nominal*LowerMultiplier, Nominal*UpperMultiplier].
type Thresholds struct {
	Nominal         float64 `json:"nominal"`
	LowerMultiplier float64 `json:"lower_multiplier"`
	UpperMultiplier float64 `json:"upper_multiplier"`
}

// DefaultThresholds is the 220 V band used by the acquisition hardware.
func DefaultThresholds() Thresholds {
	return Thresholds{Nominal: 220, LowerMultiplier: 1.1, UpperMultiplier: 1.8}
}

func (t Thresholds) Lower() float64 { return t.Nominal * t.LowerMultiplier }
func (t Thresholds) Upper() float64 { return t.Nominal * t.UpperMultiplier }

// Detection is the per-phenomenon pipeline output. All vectors have the series length.
type Detection struct {
	Phenomenon  Phenomenon `json:"phenomenon"`
	Peaks       []bool     `json:"peaks"`
	Labels      []bool     `json:"labels"`
	Predictions []bool     `json:"predictions"`
	Events      []bool     `json:"events"`
	Count       int        `json:"count"`
	Agreement   float64    `json:"agreement"`
}

// EventTimes returns the timestamps of flagged samples.
func (d Detection) EventTimes(s Series) []float64 {
	out := make([]float64, 0, d.Count)
	for i, ev := range d.Events {
		if ev && i < len(s) {
			out = append(out, s[i].T)
		}
	}
	return out
}

// Analysis aggregates detections for one series.
type Analysis struct {
	RunID      string                   `json:"run_id,omitempty"`
	Samples    int                      `json:"samples"`
	Skipped    int                      `json:"skipped,omitempty"`
	Thresholds Thresholds               `json:"thresholds"`
	Exclusive  bool                     `json:"exclusive"`
	Detections map[Phenomenon]Detection `json:"detections"`
	Totals     map[Phenomenon]int       `json:"totals"`
	AnalyzedAt time.Time                `json:"analyzed_at"`
}

// TotalEvents sums the event counts across phenomena.
func (a Analysis) TotalEvents() int {
	n := 0
	for _, c := range a.Totals {
		n += c
	}
	return n
}
