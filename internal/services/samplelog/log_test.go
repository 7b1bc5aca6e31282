package samplelog

import (
	"sync"
	"testing"

	"PQAnalyzer/internal/domain/models"
)

func TestSnapshotIsCopy(t *testing.T) {
	l := New()
	l.Append(models.Sample{T: 0, V: 1}, models.Sample{T: 0.1, V: 2})
	snap, cp := l.Snapshot()
	snap[0].V = 99
	again, _ := l.Snapshot()
	if again[0].V != 1 {
		t.Fatalf("snapshot aliases the log")
	}
	if cp.Offset != 2 {
		t.Fatalf("checkpoint = %+v", cp)
	}
}

func TestSinceReturnsOnlyNewSamples(t *testing.T) {
	l := New()
	l.Append(models.Sample{T: 0, V: 1})
	_, cp := l.Snapshot()
	l.Append(models.Sample{T: 0.1, V: 2}, models.Sample{T: 0.2, V: 3})
	got, next := l.Since(cp)
	if len(got) != 2 || got[0].V != 2 {
		t.Fatalf("since = %v", got)
	}
	if more, _ := l.Since(next); len(more) != 0 {
		t.Fatalf("expected nothing new, got %v", more)
	}
}

func TestResetInvalidatesCheckpoint(t *testing.T) {
	l := New()
	l.Append(models.Sample{T: 0, V: 1}, models.Sample{T: 1, V: 1})
	_, cp := l.Snapshot()
	l.Reset()
	l.Append(models.Sample{T: 0, V: 5})
	got, _ := l.Since(cp)
	if len(got) != 1 || got[0].V != 5 {
		t.Fatalf("since after reset = %v", got)
	}
}

func TestTail(t *testing.T) {
	l := New()
	for i := 0; i < 30; i++ {
		l.Append(models.Sample{T: float64(i), V: float64(i)})
	}
	got := l.Tail(10)
	if len(got) != 11 || got[0].T != 19 {
		t.Fatalf("tail = %v", got)
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			l.Append(models.Sample{T: float64(i), V: 1})
		}
	}()
	go func() {
		defer wg.Done()
		var cp Checkpoint
		total := 0
		for total < 1000 {
			var got models.Series
			got, cp = l.Since(cp)
			total += len(got)
		}
	}()
	wg.Wait()
	if l.Len() != 1000 {
		t.Fatalf("len = %d", l.Len())
	}
}

func TestCheckpointSkipsExisting(t *testing.T) {
	l := New()
	l.Append(models.Sample{T: 0, V: 1}, models.Sample{T: 1, V: 2})
	cp := l.Checkpoint()
	l.Append(models.Sample{T: 2, V: 3})
	got, _ := l.Since(cp)
	if len(got) != 1 || got[0].T != 2 {
		t.Fatalf("since checkpoint = %+v", got)
	}
}
