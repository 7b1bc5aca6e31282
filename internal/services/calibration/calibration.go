package calibration

import (
	"errors"
	"fmt"

	"PQAnalyzer/internal/domain/models"
)

// Reference points measured against a bench multimeter for the stock divider.
var (
	DefaultSensorPoints = []float64{0.275, 0.418, 0.425, 0.426, 0.427, 0.428, 0.696}
	DefaultRealPoints   = []float64{129.1, 193.3, 196.2, 196.5, 196.6, 197.0, 220.0}
)

// DefaultOffset is subtracted after the linear map.
const DefaultOffset = -120.0

var ErrDegenerateFit = errors.New("calibration: reference points do not define a line")

// Line maps a raw reading x to Slope*x + Intercept + Offset.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Offset    float64 `json:"offset"`
}

// Fit computes the least-squares line through (sensor[i], real[i]).
func Fit(sensor, real []float64, offset float64) (Line, error) {
	if len(sensor) != len(real) {
		return Line{}, fmt.Errorf("calibration: %d sensor points vs %d real points", len(sensor), len(real))
	}
	n := float64(len(sensor))
	if n < 2 {
		return Line{}, ErrDegenerateFit
	}
	var sx, sy, sxx, sxy float64
	for i := range sensor {
		sx += sensor[i]
		sy += real[i]
		sxx += sensor[i] * sensor[i]
		sxy += sensor[i] * real[i]
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return Line{}, ErrDegenerateFit
	}
	slope := (n*sxy - sx*sy) / den
	return Line{
		Slope:     slope,
		Intercept: (sy - slope*sx) / n,
		Offset:    offset,
	}, nil
}

// Default fits the stock reference points.
func Default() Line {
	l, err := Fit(DefaultSensorPoints, DefaultRealPoints, DefaultOffset)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Line) Apply(raw float64) float64 {
	return l.Slope*raw + l.Intercept + l.Offset
}

// ApplySeries returns a calibrated copy of s.
func (l Line) ApplySeries(s models.Series) models.Series {
	out := make(models.Series, len(s))
	for i, p := range s {
		out[i] = models.Sample{T: p.T, V: l.Apply(p.V)}
	}
	return out
}
