package detection

import "PQAnalyzer/internal/domain/models"

// View cuts the window for frame out of an analyzed series. The period is the last sample time.
func View(series models.Series, an models.Analysis, frame, width float64) models.PlaybackView {
	period := 0.0
	if len(series) > 0 {
		period = series[len(series)-1].T
	}
	w := NewWindow(frame, width, period)

	view := models.PlaybackView{
		Frame:    frame,
		Start:    w.Start,
		End:      w.End,
		Wrapped:  w.Wrapped,
		Segments: w.Segments(),
		Samples:  make(models.Series, 0),
		Events:   make(map[models.Phenomenon][]float64, len(an.Detections)),
		Counts:   make(map[models.Phenomenon]int, len(an.Detections)),
	}
	if period <= 0 {
		return view
	}

	visible := make([]bool, len(series))
	for i, s := range series {
		if w.Contains(s.T) {
			visible[i] = true
			view.Samples = append(view.Samples, s)
		}
	}
	for p, det := range an.Detections {
		times := make([]float64, 0)
		for i, ev := range det.Events {
			if ev && i < len(series) && visible[i] {
				times = append(times, series[i].T)
			}
		}
		view.Events[p] = times
		view.Counts[p] = len(times)
	}
	return view
}
