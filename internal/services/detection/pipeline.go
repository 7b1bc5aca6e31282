package detection

import (
	"context"
	"errors"
	"fmt"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/domain/service"
	"PQAnalyzer/internal/services/features"
)

var ErrNoClassifier = errors.New("detection: classifier is nil")

// Options parameterize one pipeline pass.
type Options struct {
	Thresholds models.Thresholds
	Phenomenon models.Phenomenon
}

// Run executes peaks, labels, pairs, one Predict call and reconciliation over the series.
// Series shorter than two samples produce degenerate vectors without calling the classifier.
func Run(ctx context.Context, series models.Series, clf service.Classifier, opts Options) (models.Detection, error) {
	if clf == nil {
		return models.Detection{}, ErrNoClassifier
	}
	v := series.Values()
	n := len(v)

	det := models.Detection{
		Phenomenon: opts.Phenomenon,
		Peaks:      DetectPeaks(v),
		Labels:     Label(v, opts.Thresholds),
	}

	rows := features.Pairs(v)
	pred := []bool{}
	if len(rows) > 0 {
		var err error
		pred, err = clf.Predict(ctx, rows)
		if err != nil {
			return models.Detection{}, fmt.Errorf("predict %s: %w", opts.Phenomenon, err)
		}
	}

	aligned, err := Align(pred, n)
	if err != nil {
		return models.Detection{}, fmt.Errorf("align %s: %w", opts.Phenomenon, err)
	}
	events, err := Reconcile(pred, det.Peaks)
	if err != nil {
		return models.Detection{}, err
	}

	det.Predictions = aligned
	det.Events = events
	det.Count = Count(events)
	det.Agreement = Agreement(aligned, det.Labels)
	return det, nil
}
