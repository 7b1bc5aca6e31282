package service

import "errors"

var (
	// ErrModelUnavailable means a classifier artifact or model service could not be loaded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrPredictionLength means a classifier returned a vector of the wrong size.
	ErrPredictionLength = errors.New("prediction length mismatch")
	// ErrPredictionValue means a classifier returned a label outside {0, 1}.
	ErrPredictionValue = errors.New("prediction out of range")
)
