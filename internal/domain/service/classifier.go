package service

import (
	"context"

	"PQAnalyzer/internal/domain/models"
)

// Classifier predicts one binary label per feature row.
type Classifier interface {
	Predict(ctx context.Context, features [][2]float64) ([]bool, error)
}

// ClassifierResolver returns the classifier trained for a phenomenon.
type ClassifierResolver interface {
	Classifier(ctx context.Context, p models.Phenomenon) (Classifier, error)
}

// Calibrator converts raw ADC readings to line volts.
type Calibrator interface {
	Apply(raw float64) float64
}
