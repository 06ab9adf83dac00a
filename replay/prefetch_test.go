package replay

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPrefetcher_FillsAhead(t *testing.T) {
	var computed atomic.Int64
	cache := NewFrameCache(32, countingCompute(&computed, 0))
	p := NewPrefetcher(cache, 4, time.Second)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	bounds := Bounds{Start: start, End: start.Add(time.Hour)}

	p.Schedule(start, 1, bounds)
	p.Wait()

	for i := 1; i <= 4; i++ {
		at := start.Add(time.Duration(i) * time.Second)
		if !cache.Peek(at) {
			t.Fatalf("frame %d ahead not prefetched", i)
		}
	}
	// The anchor itself is not the prefetcher's job.
	if cache.Peek(start) {
		t.Fatalf("prefetcher computed the anchor frame")
	}
}

func TestPrefetcher_ReverseDirection(t *testing.T) {
	var computed atomic.Int64
	cache := NewFrameCache(32, countingCompute(&computed, 0))
	p := NewPrefetcher(cache, 3, time.Second)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	anchor := start.Add(time.Minute)
	bounds := Bounds{Start: start, End: start.Add(time.Hour)}

	p.Schedule(anchor, -1, bounds)
	p.Wait()

	for i := 1; i <= 3; i++ {
		at := anchor.Add(-time.Duration(i) * time.Second)
		if !cache.Peek(at) {
			t.Fatalf("frame %d behind not prefetched", i)
		}
	}
}

func TestPrefetcher_StopsAtBounds(t *testing.T) {
	var computed atomic.Int64
	cache := NewFrameCache(32, countingCompute(&computed, 0))
	p := NewPrefetcher(cache, 10, time.Second)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	// Only two whole steps fit before the end bound.
	bounds := Bounds{Start: start, End: start.Add(2500 * time.Millisecond)}

	p.Schedule(start, 1, bounds)
	p.Wait()

	if n := computed.Load(); n != 2 {
		t.Fatalf("computed %d frames, want 2 (bounded)", n)
	}
}

func TestPrefetcher_NewScheduleSupersedesOld(t *testing.T) {
	var computed atomic.Int64
	// Slow compute so the first schedule is still in flight when the
	// second one lands.
	cache := NewFrameCache(64, countingCompute(&computed, 20*time.Millisecond))
	p := NewPrefetcher(cache, 50, time.Second)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	bounds := Bounds{Start: start, End: start.Add(24 * time.Hour)}

	p.Schedule(start, 1, bounds)
	p.Schedule(start.Add(time.Hour), 1, bounds)
	p.Wait()

	// The superseded schedule stops early; it never runs its full
	// depth on top of the replacement's.
	if n := computed.Load(); n > 60 {
		t.Fatalf("computed %d frames, superseded schedule kept running", n)
	}
}

func TestPrefetcher_SharesCacheWithForegroundGets(t *testing.T) {
	var computed atomic.Int64
	cache := NewFrameCache(32, countingCompute(&computed, 10*time.Millisecond))
	p := NewPrefetcher(cache, 3, time.Second)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	bounds := Bounds{Start: start, End: start.Add(time.Hour)}

	p.Schedule(start, 1, bounds)
	// Foreground request for a time the prefetcher also wants: the
	// single-flight group ensures one computation.
	frame := cache.Get(context.Background(), start.Add(time.Second))
	p.Wait()

	if !frame.Time.Equal(start.Add(time.Second)) {
		t.Fatalf("foreground frame time = %v", frame.Time)
	}
	if n := computed.Load(); n != 3 {
		t.Fatalf("computed %d frames, want 3", n)
	}
}
