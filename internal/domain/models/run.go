package models

import "time"

// Run is a persisted acquisition.
type Run struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	SavedAt time.Time `json:"saved_at"`
	Series  Series    `json:"series,omitempty"`
}

// RunQuery selects stored runs, newest first. Since applies before Limit;
// a non-positive Limit returns every match.
type RunQuery struct {
	Limit int
	Since time.Time
}

// RunSummary is the listing view of a run without its samples.
type RunSummary struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	SavedAt  time.Time `json:"saved_at"`
	Samples  int       `json:"samples"`
	Duration float64   `json:"duration"`
	MinV     float64   `json:"min_v"`
	MaxV     float64   `json:"max_v"`
	RMS      float64   `json:"rms"`
}

// AcquisitionStatus reports the live acquisition session.
type AcquisitionStatus struct {
	Running   bool      `json:"running"`
	RunID     string    `json:"run_id,omitempty"`
	Source    string    `json:"source,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Samples   int       `json:"samples"`
	Dropped   int64     `json:"dropped"`
	LastError string    `json:"last_error,omitempty"`
}

// RawSample is the wire form of an acquired reading.
type RawSample struct {
	RunID string  `json:"run_id"`
	T     float64 `json:"t"`
	V     float64 `json:"v"`
	Raw   float64 `json:"raw"`
}
