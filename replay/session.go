// Package replay drives simulated time over a loaded scenario: a
// play/pause/seek/speed state machine, a bounded frame cache with a
// single-flight guarantee, and a background prefetcher. The replay
// controller never computes geometry itself; it only requests frames.
package replay

import (
	"fmt"
	"time"
)

// State is the replay controller's state-machine state.
type State int

const (
	// StateIdle means no session is loaded.
	StateIdle State = iota
	// StateLoaded means session bounds are known, time is at start, paused.
	StateLoaded
	// StatePlaying means simulated time advances on Tick.
	StatePlaying
	// StatePaused means a session is loaded but time is frozen.
	StatePaused
	// StateSeeking is transient: Seek resolves synchronously back to
	// the caller's prior play/pause state.
	StateSeeking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Bounds is the session's simulated-time interval [Start, End].
type Bounds struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start strictly precedes End.
func (b Bounds) Valid() bool {
	return !b.Start.IsZero() && !b.End.IsZero() && b.Start.Before(b.End)
}

// Clamp forces t into [Start, End].
func (b Bounds) Clamp(t time.Time) time.Time {
	if t.Before(b.Start) {
		return b.Start
	}
	if t.After(b.End) {
		return b.End
	}
	return t
}

// Contains reports whether t lies within the bounds, inclusive.
func (b Bounds) Contains(t time.Time) bool {
	return !t.Before(b.Start) && !t.After(b.End)
}

// session is the single mutable replay state, owned exclusively by the
// Controller. There is deliberately no process-wide instance: multiple
// independent controllers never interfere.
type session struct {
	state  State
	time   time.Time
	speed  float64
	bounds Bounds
	// fraction is the sub-resolution remainder of Tick advancement.
	// time is always quantized; time+fraction is the exact position.
	fraction time.Duration
}

// Snapshot is the read-only session view exposed to the viewer for UI
// indicators (timeline position, play/pause icon).
type Snapshot struct {
	State  State
	Time   time.Time
	Bounds Bounds
	Speed  float64
}
