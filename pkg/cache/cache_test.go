package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Count int     `json:"count"`
	Ratio float64 `json:"ratio"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "a", payload{Count: 3, Ratio: 0.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := mc.Get(ctx, "a", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Count != 3 || got.Ratio != 0.5 {
		t.Fatalf("got %+v", got)
	}
	if err := mc.Get(ctx, "missing", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "short", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	var s string
	if err := mc.Get(ctx, "short", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v (%q)", err, s)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", 1, 0)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", 2, 0)
	time.Sleep(time.Millisecond)
	var v int
	_ = mc.Get(ctx, "a", &v)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", 3, 0)

	if mc.Len() != 2 {
		t.Fatalf("len = %d", mc.Len())
	}
	if err := mc.Get(ctx, "b", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected b evicted")
	}
	if err := mc.Get(ctx, "a", &v); err != nil || v != 1 {
		t.Fatalf("a should survive: %v %d", err, v)
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, Key("analysis", "run1", "x"), 1, 0)
	_ = mc.Set(ctx, Key("analysis", "run1", "y"), 2, 0)
	_ = mc.Set(ctx, Key("analysis", "run2", "x"), 3, 0)
	if err := mc.DeleteByPattern(ctx, Key("analysis", "run1", "*")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mc.Len() != 1 {
		t.Fatalf("len = %d", mc.Len())
	}
}

func TestHashKeyStable(t *testing.T) {
	a, _ := HashKey(map[string]interface{}{"exclusive": true, "phenomena": []string{"swell"}})
	b, _ := HashKey(map[string]interface{}{"phenomena": []string{"swell"}, "exclusive": true})
	c, _ := HashKey(map[string]interface{}{"phenomena": []string{"sag"}, "exclusive": true})
	if a != b || a == c || len(a) != 16 {
		t.Fatalf("hashes %s %s %s", a, b, c)
	}
}
