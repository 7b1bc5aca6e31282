package usecase

import (
	"context"
	"sync"
	"testing"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/pkg/metrics"
)

type memWarehouse struct {
	mu   sync.Mutex
	rows []models.RawSample
}

func (w *memWarehouse) StoreBatch(_ context.Context, s []models.RawSample) error {
	w.mu.Lock()
	w.rows = append(w.rows, s...)
	w.mu.Unlock()
	return nil
}

func (w *memWarehouse) Query(_ context.Context, runID string, _ int) ([]models.RawSample, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.RawSample
	for _, r := range w.rows {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestKafkaSamplesHandler(t *testing.T) {
	w := &memWarehouse{}
	h := NewKafkaSamplesHandler("pq.samples", w, metrics.Nop{})
	ctx := context.Background()
	if h.Topic() != "pq.samples" {
		t.Fatalf("topic = %s", h.Topic())
	}

	if err := h.Handle(ctx, []byte("r1"), []byte(`{"run_id":"r1","t":0.1,"v":221.5,"raw":0.7}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := h.Handle(ctx, []byte("r2"), []byte(`{"t":0.2,"v":219,"raw":0.69}`)); err != nil {
		t.Fatalf("handle keyed: %v", err)
	}
	got, _ := w.Query(ctx, "r2", 0)
	if len(got) != 1 || got[0].V != 219 {
		t.Fatalf("run id from key not applied: %+v", w.rows)
	}
	if err := h.Handle(ctx, nil, []byte(`{"t":1}`)); err == nil {
		t.Fatalf("expected error without run id")
	}
	if err := h.Handle(ctx, nil, []byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
