package models

import "math"

// StartAcquisitionRequest selects the sample source for a new acquisition. Empty means the configured source.
type StartAcquisitionRequest struct {
	Source string `json:"source" validate:"omitempty,oneof=simulated mqtt"`
}

// AnalyzeRequest carries an ad-hoc series as [t, v] rows.
type AnalyzeRequest struct {
	Samples   [][]float64 `json:"samples" validate:"required"`
	Phenomena []string    `json:"phenomena"`
	Exclusive *bool       `json:"exclusive"`
	Nominal   float64     `json:"nominal" validate:"gte=0"`
}

// Series converts the request rows, sorted by time. Rows without exactly two
// finite values are skipped and counted.
func (r *AnalyzeRequest) Series() (Series, int) {
	s := make(Series, 0, len(r.Samples))
	skipped := 0
	for _, row := range r.Samples {
		if len(row) != 2 || !finite(row[0]) || !finite(row[1]) {
			skipped++
			continue
		}
		s = append(s, Sample{T: row[0], V: row[1]})
	}
	s.SortByTime()
	return s, skipped
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// PlaybackView is the visible part of a series for one playback frame.
type PlaybackView struct {
	Frame    float64                  `json:"frame"`
	Start    float64                  `json:"start"`
	End      float64                  `json:"end"`
	Wrapped  bool                     `json:"wrapped"`
	Segments [][2]float64             `json:"segments"`
	Samples  Series                   `json:"samples"`
	Events   map[Phenomenon][]float64 `json:"events"`
	Counts   map[Phenomenon]int       `json:"counts"`
}

// LiveView is the analyzed tail of the running acquisition.
type LiveView struct {
	Status   AcquisitionStatus `json:"status"`
	Start    float64           `json:"start"`
	End      float64           `json:"end"`
	Samples  Series            `json:"samples"`
	Analysis Analysis          `json:"analysis"`
}
