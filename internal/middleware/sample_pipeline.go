package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"PQAnalyzer/internal/domain/models"
	domrepo "PQAnalyzer/internal/domain/repository"
	applogger "PQAnalyzer/pkg/logger"
)

// SamplePipeline sits between the acquisition loop and the sample
// publisher. Offer never blocks: when the buffer is full the sample is
// dropped and counted. A background worker flushes batches downstream.
type SamplePipeline struct {
	sink    domrepo.SamplePublisher
	metrics domrepo.Metrics
	l       *applogger.Logger

	bufSize    int
	batchSize  int
	flushEvery time.Duration

	buf     chan models.RawSample
	dropped atomic.Int64

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

type PipelineOption func(*SamplePipeline)

func WithBufferSize(n int) PipelineOption {
	return func(p *SamplePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatching sets the maximum batch and the longest a partial batch waits.
func WithBatching(size int, every time.Duration) PipelineOption {
	return func(p *SamplePipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if every > 0 {
			p.flushEvery = every
		}
	}
}

func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *SamplePipeline) {
		if l != nil {
			p.l = l
		}
	}
}

func NewSamplePipeline(sink domrepo.SamplePublisher, metrics domrepo.Metrics, opts ...PipelineOption) *SamplePipeline {
	p := &SamplePipeline{
		sink:       sink,
		metrics:    metrics,
		l:          applogger.NewNop(),
		bufSize:    1024,
		batchSize:  50,
		flushEvery: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.buf = make(chan models.RawSample, p.bufSize)
	return p
}

// Start launches the flush worker. Calling Start twice is a no-op.
func (p *SamplePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(ctx)
}

// Stop flushes what is buffered and waits for the worker, bounded by ctx.
func (p *SamplePipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sample pipeline stop: %w", ctx.Err())
	}
}

// Offer validates and enqueues s. It reports whether s was accepted.
func (p *SamplePipeline) Offer(s models.RawSample) bool {
	if s.RunID == "" || math.IsNaN(s.V) || math.IsInf(s.V, 0) || s.T < 0 {
		p.metrics.RecordError("pipeline_validate")
		return false
	}
	select {
	case p.buf <- s:
		return true
	default:
		p.dropped.Add(1)
		p.metrics.RecordDropped()
		return false
	}
}

// Dropped counts samples rejected because the buffer was full.
func (p *SamplePipeline) Dropped() int64 { return p.dropped.Load() }

// Depth is the number of buffered samples.
func (p *SamplePipeline) Depth() int { return len(p.buf) }

func (p *SamplePipeline) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.flushEvery)
	defer ticker.Stop()

	batch := make([]models.RawSample, 0, p.batchSize)
	backoff := time.Duration(0)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := p.sink.PublishBatch(ctx, batch); err != nil {
			// Publishing is best effort; the batch is dropped and the next
			// flush waits a little longer.
			p.metrics.RecordError("pipeline_publish")
			p.l.Warn("sample batch dropped", applogger.Int("samples", len(batch)), applogger.Error(err))
			if backoff < 2*time.Second {
				backoff = backoff*2 + 50*time.Millisecond
			}
		} else {
			backoff = 0
			p.metrics.RecordLatency("pipeline_publish", time.Since(start).Seconds())
		}
		batch = batch[:0]
	}

	for {
		select {
		case s := <-p.buf:
			batch = append(batch, s)
			if len(batch) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
			if backoff > 0 {
				select {
				case <-time.After(backoff):
				case <-p.stop:
				}
			}
		case <-p.stop:
			for {
				select {
				case s := <-p.buf:
					batch = append(batch, s)
					if len(batch) >= p.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
