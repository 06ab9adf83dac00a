package replay

import (
	"container/list"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/signalsfoundry/radar-replay/core"
)

const defaultCacheCapacity = 256

// ComputeFunc assembles the frame for an uncached time. It must be
// side-effect free; the cache may invoke it from any goroutine.
type ComputeFunc func(ctx context.Context, t time.Time) *core.Frame

// FrameCache is a bounded store of recently assembled frames keyed by
// exact simulated time. Scrubbing has temporal locality, so eviction
// is least-recently-used. Lookups never substitute a neighbouring
// time: a hit means the frame's time matches the request exactly.
//
// Concurrent misses for the same time are serialized through a
// single-flight group: one computation runs, every caller receives
// the identical frame. Misses for distinct times proceed in parallel.
type FrameCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[int64]*list.Element
	order    *list.List // front = most recently used

	group   singleflight.Group
	compute ComputeFunc

	hits   int64
	misses int64
}

type cacheEntry struct {
	key   int64
	frame *core.Frame
}

// NewFrameCache creates a cache over the provided compute function.
// A non-positive capacity uses the default.
func NewFrameCache(capacity int, compute ComputeFunc) *FrameCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &FrameCache{
		capacity: capacity,
		entries:  make(map[int64]*list.Element),
		order:    list.New(),
		compute:  compute,
	}
}

// Get returns the frame for exact time t, computing and inserting it
// on a miss. The returned frame is shared and must not be mutated.
func (c *FrameCache) Get(ctx context.Context, t time.Time) *core.Frame {
	key := t.UnixNano()

	if frame, ok := c.lookup(key); ok {
		c.recordHit()
		return frame
	}
	c.recordMiss()

	v, _, _ := c.group.Do(strconv.FormatInt(key, 10), func() (interface{}, error) {
		// A previous flight may have inserted the frame between our
		// miss and this callback running.
		if frame, ok := c.lookup(key); ok {
			return frame, nil
		}
		frame := c.compute(ctx, t)
		return c.insert(key, frame), nil
	})

	frame := v.(*core.Frame)
	if !frame.Time.Equal(t) {
		// A mismatched frame time is a programming defect, not a
		// runtime-recoverable condition.
		panic(fmt.Sprintf("frame cache: frame time %v does not match requested time %v", frame.Time, t))
	}
	return frame
}

// Peek reports whether a frame for exact time t is already cached,
// without computing or touching recency.
func (c *FrameCache) Peek(t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[t.UnixNano()]
	return ok
}

// Stats returns cumulative hit and miss counts.
func (c *FrameCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *FrameCache) lookup(key int64) (*core.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).frame, true
}

func (c *FrameCache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *FrameCache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

// insert stores the frame, evicting the least-recently-used entry at
// capacity. Inserting an already-present time is a no-op that returns
// the existing frame, keeping the shared-reference guarantee.
func (c *FrameCache) insert(key int64, frame *core.Frame) *core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*cacheEntry).frame
	}

	elem := c.order.PushFront(&cacheEntry{key: key, frame: frame})
	c.entries[key] = elem

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	return frame
}
