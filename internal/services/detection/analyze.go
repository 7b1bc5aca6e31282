package detection

import (
	"context"
	"fmt"
	"time"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/domain/service"
)

// AnalyzeOptions configure a multi-phenomenon pass.
type AnalyzeOptions struct {
	Thresholds models.Thresholds
	// Phenomena are evaluated in order; the order is also the priority used by Exclusive.
	Phenomena []models.Phenomenon
	// Exclusive clears an event from later phenomena once an earlier one has claimed it.
	// When false every classifier sees and may flag the whole combined signal.
	Exclusive bool
}

// RunAll runs the pipeline once per phenomenon over the same series.
func RunAll(ctx context.Context, series models.Series, resolver service.ClassifierResolver, opts AnalyzeOptions) (models.Analysis, error) {
	phenomena := dedupe(opts.Phenomena)
	if len(phenomena) == 0 {
		phenomena = []models.Phenomenon{models.Swell}
	}

	out := models.Analysis{
		Samples:    len(series),
		Thresholds: opts.Thresholds,
		Exclusive:  opts.Exclusive,
		Detections: make(map[models.Phenomenon]models.Detection, len(phenomena)),
		Totals:     make(map[models.Phenomenon]int, len(phenomena)),
		AnalyzedAt: time.Now().UTC(),
	}

	var claimed []bool
	if opts.Exclusive {
		claimed = make([]bool, len(series))
	}

	for _, p := range phenomena {
		clf, err := resolver.Classifier(ctx, p)
		if err != nil {
			return models.Analysis{}, fmt.Errorf("classifier %s: %w", p, err)
		}
		det, err := Run(ctx, series, clf, Options{Thresholds: opts.Thresholds, Phenomenon: p})
		if err != nil {
			return models.Analysis{}, err
		}
		if claimed != nil {
			for i, ev := range det.Events {
				if !ev {
					continue
				}
				if claimed[i] {
					det.Events[i] = false
					continue
				}
				claimed[i] = true
			}
			det.Count = Count(det.Events)
		}
		out.Detections[p] = det
		out.Totals[p] = det.Count
	}
	return out, nil
}

func dedupe(in []models.Phenomenon) []models.Phenomenon {
	seen := make(map[models.Phenomenon]struct{}, len(in))
	out := make([]models.Phenomenon, 0, len(in))
	for _, p := range in {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
