package repository

import (
	"context"
	"errors"

	"PQAnalyzer/internal/domain/models"
)

var ErrRunNotFound = errors.New("run not found")

// RunStore persists finished acquisitions.
type RunStore interface {
	Save(ctx context.Context, run *models.Run) error
	Get(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, q models.RunQuery) ([]models.Run, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// SamplePublisher streams acquired samples to downstream consumers.
type SamplePublisher interface {
	PublishBatch(ctx context.Context, samples []models.RawSample) error
	Close() error
}

// SampleWarehouse stores raw samples for offline inspection.
type SampleWarehouse interface {
	StoreBatch(ctx context.Context, samples []models.RawSample) error
	Query(ctx context.Context, runID string, limit int) ([]models.RawSample, error)
}

// SampleSource yields one raw ADC reading per call. Implementations may block until a reading is available.
type SampleSource interface {
	Name() string
	Open(ctx context.Context) error
	Read(ctx context.Context) (float64, error)
	Close() error
}

type Metrics interface {
	RecordSample(source string)
	RecordError(kind string)
	RecordEvents(phenomenon string, count int)
	RecordDropped()
	SetRunning(on bool)
	RecordLatency(op string, seconds float64)
}
