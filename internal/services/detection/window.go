package detection

import "math"

// DefaultWindowWidth is the visible playback span in time units.
const DefaultWindowWidth = 10.0

// Window is a circular view of width Width over a signal of length Period.
// When Wrapped is set, End exceeds Period and the view continues from 0.
type Window struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Width   float64 `json:"width"`
	Period  float64 `json:"period"`
	Wrapped bool    `json:"wrapped"`
}

// NewWindow places the view for a playback frame. Width is clamped to [0, period].
// A non-positive period yields the zero window.
func NewWindow(frame, width, period float64) Window {
	if period <= 0 || math.IsNaN(period) || math.IsNaN(frame) {
		return Window{}
	}
	if width < 0 || math.IsNaN(width) {
		width = 0
	}
	if width > period {
		width = period
	}

	start := wrap(frame, period)
	end := wrap(frame+width, period)
	if width > 0 && end <= start {
		end += period
	}
	return Window{
		Start:   start,
		End:     end,
		Width:   width,
		Period:  period,
		Wrapped: end > period,
	}
}

// Segments returns the visible ranges in signal time.
func (w Window) Segments() [][2]float64 {
	if w.Period <= 0 {
		return nil
	}
	if !w.Wrapped {
		return [][2]float64{{w.Start, w.End}}
	}
	return [][2]float64{{w.Start, w.Period}, {0, w.End - w.Period}}
}

// Contains reports whether signal time t is visible.
func (w Window) Contains(t float64) bool {
	for _, seg := range w.Segments() {
		if t >= seg[0] && t <= seg[1] {
			return true
		}
	}
	return false
}

// Span is the covered length, equal to Width for any valid window.
func (w Window) Span() float64 {
	span := 0.0
	for _, seg := range w.Segments() {
		span += seg[1] - seg[0]
	}
	return span
}

func wrap(x, period float64) float64 {
	m := math.Mod(x, period)
	if m < 0 {
		m += period
	}
	return m
}
