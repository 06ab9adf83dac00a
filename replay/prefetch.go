package replay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPrefetchStep = 100 * time.Millisecond

// Prefetcher precomputes the next frames in the current playback
// direction on a background goroutine while the viewer consumes the
// current one. A seek that supersedes an in-flight prefetch does not
// abort it: the superseded computation completes and caches its result,
// wasted but harmless. Correctness never depends on cancellation.
type Prefetcher struct {
	cache *FrameCache
	depth int
	step  time.Duration

	generation atomic.Int64
	wg         sync.WaitGroup
}

// NewPrefetcher creates a prefetcher computing depth frames ahead,
// spaced by step of simulated time.
func NewPrefetcher(cache *FrameCache, depth int, step time.Duration) *Prefetcher {
	if step <= 0 {
		step = defaultPrefetchStep
	}
	return &Prefetcher{cache: cache, depth: depth, step: step}
}

// Schedule starts precomputing the frames after t in the given
// direction (+1 forward, -1 reverse), staying within bounds. A newer
// schedule makes older ones stop after their in-flight frame.
func (p *Prefetcher) Schedule(t time.Time, direction int, bounds Bounds) {
	gen := p.generation.Add(1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		step := p.step
		if direction < 0 {
			step = -step
		}
		next := t
		for i := 0; i < p.depth; i++ {
			if p.generation.Load() != gen {
				return
			}
			next = next.Add(step)
			if !bounds.Contains(next) {
				return
			}
			// Single-flight in the cache dedupes against the
			// controller and any concurrent prefetch.
			p.cache.Get(context.Background(), next)
		}
	}()
}

// Wait blocks until every scheduled prefetch goroutine has finished.
// Intended for shutdown and tests.
func (p *Prefetcher) Wait() {
	p.wg.Wait()
}

// Stop supersedes all outstanding schedules and waits for them to
// finish their in-flight frame.
func (p *Prefetcher) Stop() {
	p.generation.Add(1)
	p.wg.Wait()
}
