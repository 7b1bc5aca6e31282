package samplelog

import (
	"sync"

	"PQAnalyzer/internal/domain/models"
)

// Checkpoint marks a read position in the log.
type Checkpoint struct {
	Offset int `json:"offset"`
	Epoch  int `json:"epoch"`
}

// Log is an append-only, concurrency-safe sample buffer. Readers always get
// whole samples and a copy they may keep.
type Log struct {
	mu      sync.RWMutex
	samples models.Series
	epoch   int
}

func New() *Log {
	return &Log{samples: make(models.Series, 0, 1024)}
}

// Append adds samples at the tail.
func (l *Log) Append(s ...models.Sample) {
	if len(s) == 0 {
		return
	}
	l.mu.Lock()
	l.samples = append(l.samples, s...)
	l.mu.Unlock()
}

// Len returns the number of samples currently held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.samples)
}

// Snapshot copies the whole log and returns the checkpoint after its last sample.
func (l *Log) Snapshot() (models.Series, Checkpoint) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.samples.Clone(), Checkpoint{Offset: len(l.samples), Epoch: l.epoch}
}

// Checkpoint marks the current end of the log.
func (l *Log) Checkpoint() Checkpoint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Checkpoint{Offset: len(l.samples), Epoch: l.epoch}
}

// Since returns the samples appended after cp. A checkpoint from before a Reset
// is treated as the start of the current log.
func (l *Log) Since(cp Checkpoint) (models.Series, Checkpoint) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	from := cp.Offset
	if cp.Epoch != l.epoch || from < 0 || from > len(l.samples) {
		from = 0
	}
	out := make(models.Series, len(l.samples)-from)
	copy(out, l.samples[from:])
	return out, Checkpoint{Offset: len(l.samples), Epoch: l.epoch}
}

// Tail returns the samples with T >= last.T - width.
func (l *Log) Tail(width float64) models.Series {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.samples) == 0 {
		return models.Series{}
	}
	lo := l.samples[len(l.samples)-1].T - width
	if lo < 0 {
		lo = 0
	}
	return l.samples.Between(lo, l.samples[len(l.samples)-1].T)
}

// Reset empties the log and invalidates earlier checkpoints.
func (l *Log) Reset() {
	l.mu.Lock()
	l.samples = make(models.Series, 0, 1024)
	l.epoch++
	l.mu.Unlock()
}
