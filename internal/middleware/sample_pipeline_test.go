package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/pkg/metrics"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.RawSample
	fail    bool
}

func (s *recordingSink) PublishBatch(_ context.Context, b []models.RawSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broker down")
	}
	cp := make([]models.RawSample, len(b))
	copy(cp, b)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestPipelineFlushesOnStop(t *testing.T) {
	sink := &recordingSink{}
	p := NewSamplePipeline(sink, metrics.Nop{}, WithBatching(4, time.Hour))
	p.Start(context.Background())

	for i := 0; i < 10; i++ {
		if !p.Offer(models.RawSample{RunID: "r", T: float64(i) / 10, V: 220}) {
			t.Fatalf("offer %d rejected", i)
		}
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := sink.total(); got != 10 {
		t.Fatalf("published %d samples, want 10", got)
	}
	for _, b := range sink.batches {
		if len(b) > 4 {
			t.Fatalf("batch of %d exceeds limit", len(b))
		}
	}
}

func TestPipelineDropsWhenFull(t *testing.T) {
	p := NewSamplePipeline(&recordingSink{}, metrics.Nop{}, WithBufferSize(2))
	for i := 0; i < 3; i++ {
		p.Offer(models.RawSample{RunID: "r", T: float64(i), V: 1})
	}
	if p.Dropped() != 1 || p.Depth() != 2 {
		t.Fatalf("dropped=%d depth=%d", p.Dropped(), p.Depth())
	}
}

func TestPipelineRejectsInvalid(t *testing.T) {
	p := NewSamplePipeline(&recordingSink{}, metrics.Nop{})
	if p.Offer(models.RawSample{T: 1, V: 1}) {
		t.Fatalf("sample without run id accepted")
	}
	if p.Depth() != 0 {
		t.Fatalf("depth = %d", p.Depth())
	}
}

func TestPipelinePublishErrorsAreSwallowed(t *testing.T) {
	sink := &recordingSink{fail: true}
	p := NewSamplePipeline(sink, metrics.Nop{}, WithBatching(1, 10*time.Millisecond))
	p.Start(context.Background())
	p.Offer(models.RawSample{RunID: "r", T: 0, V: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sink.total() != 0 {
		t.Fatalf("failing sink recorded samples")
	}
}
