package replay

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/radar-replay/core"
	"github.com/signalsfoundry/radar-replay/model"
)

var sessionStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func testOrbit(t *testing.T, aKm float64) core.Orbit {
	t.Helper()
	orbit, err := core.NewKeplerOrbit(model.OrbitalElements{
		ObjectID:        "sat-1",
		Epoch:           sessionStart,
		SemiMajorAxisKm: aKm,
	})
	if err != nil {
		t.Fatalf("NewKeplerOrbit: %v", err)
	}
	return orbit
}

func overheadStation() model.RadarStation {
	return model.RadarStation{
		ID:              "equator",
		Position:        model.Vec3{X: core.EarthRadiusKm},
		MinElevationDeg: 0,
		MaxRangeKm:      20000,
	}
}

func loadedController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	c := NewController(opts...)
	err := c.Load(
		[]core.Orbit{testOrbit(t, 7000)},
		[]model.RadarStation{overheadStation()},
		Bounds{Start: sessionStart, End: sessionStart.Add(2 * time.Hour)},
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestController_LoadValidation(t *testing.T) {
	orbit := testOrbit(t, 7000)
	station := overheadStation()
	bounds := Bounds{Start: sessionStart, End: sessionStart.Add(time.Hour)}

	cases := []struct {
		name string
		load func(c *Controller) error
	}{
		{"inverted bounds", func(c *Controller) error {
			return c.Load([]core.Orbit{orbit}, []model.RadarStation{station}, Bounds{Start: bounds.End, End: bounds.Start})
		}},
		{"zero bounds", func(c *Controller) error {
			return c.Load([]core.Orbit{orbit}, []model.RadarStation{station}, Bounds{})
		}},
		{"no objects", func(c *Controller) error {
			return c.Load(nil, []model.RadarStation{station}, bounds)
		}},
		{"bad station", func(c *Controller) error {
			bad := station
			bad.MaxRangeKm = 0
			return c.Load([]core.Orbit{orbit}, []model.RadarStation{bad}, bounds)
		}},
	}
	for _, c := range cases {
		ctrl := NewController()
		err := c.load(ctrl)
		if !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("%s: err = %v, want ErrInvalidSession", c.name, err)
		}
		if got := ctrl.SessionState().State; got != StateIdle {
			t.Fatalf("%s: state after failed load = %v, want idle", c.name, got)
		}
	}
}

func TestController_StateMachine(t *testing.T) {
	c := loadedController(t)

	snap := c.SessionState()
	if snap.State != StateLoaded {
		t.Fatalf("state after load = %v, want loaded", snap.State)
	}
	if !snap.Time.Equal(sessionStart) {
		t.Fatalf("time after load = %v, want session start", snap.Time)
	}
	if c.CurrentFrame() == nil {
		t.Fatalf("no frame presented after load")
	}

	if err := c.Play(2); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := c.SessionState(); got.State != StatePlaying || got.Speed != 2 {
		t.Fatalf("after Play: %+v", got)
	}

	// Re-speeding while playing is allowed.
	if err := c.Play(-1); err != nil {
		t.Fatalf("Play re-speed: %v", err)
	}
	if got := c.SessionState().Speed; got != -1 {
		t.Fatalf("speed = %v, want -1", got)
	}

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got := c.SessionState().State; got != StatePaused {
		t.Fatalf("after Pause: %v", got)
	}
	// Pausing again is a no-op.
	if err := c.Pause(); err != nil {
		t.Fatalf("second Pause: %v", err)
	}
}

func TestController_RejectsZeroSpeedAndIdleOps(t *testing.T) {
	idle := NewController()
	if err := idle.Play(1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Play on idle: %v, want ErrNoSession", err)
	}
	if err := idle.Pause(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Pause on idle: %v, want ErrNoSession", err)
	}
	if err := idle.Seek(sessionStart); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Seek on idle: %v, want ErrNoSession", err)
	}
	if idle.CurrentFrame() != nil {
		t.Fatalf("idle controller has a current frame")
	}

	c := loadedController(t)
	if err := c.Play(0); !errors.Is(err, ErrInvalidSpeed) {
		t.Fatalf("Play(0): %v, want ErrInvalidSpeed", err)
	}
}

func TestController_TickAdvancesBySpeed(t *testing.T) {
	c := loadedController(t)
	if err := c.Play(10); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if err := c.Tick(time.Second); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	snap := c.SessionState()
	if want := sessionStart.Add(10 * time.Second); !snap.Time.Equal(want) {
		t.Fatalf("time after tick = %v, want %v", snap.Time, want)
	}
	if !c.CurrentFrame().Time.Equal(snap.Time) {
		t.Fatalf("frame time %v does not match session time %v", c.CurrentFrame().Time, snap.Time)
	}

	// Reverse playback moves backwards.
	if err := c.Play(-10); err != nil {
		t.Fatalf("Play reverse: %v", err)
	}
	if err := c.Tick(500 * time.Millisecond); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if want := sessionStart.Add(5 * time.Second); !c.SessionState().Time.Equal(want) {
		t.Fatalf("time after reverse tick = %v, want %v", c.SessionState().Time, want)
	}
}

func TestController_TickAccumulatesSubResolutionAdvance(t *testing.T) {
	c := loadedController(t)
	// 16 ms ticks at speed 0.025 advance 0.4 ms each, well below the
	// 1 ms resolution: progress must come from accumulation.
	if err := c.Play(0.025); err != nil {
		t.Fatalf("Play: %v", err)
	}
	for i := 0; i < 100; i++ {
		if err := c.Tick(16 * time.Millisecond); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	elapsed := c.SessionState().Time.Sub(sessionStart)
	if want := 40 * time.Millisecond; elapsed != want {
		t.Fatalf("elapsed after 100 slow-motion ticks = %v, want %v", elapsed, want)
	}
}

func TestController_TickNeverRegressesTime(t *testing.T) {
	c := loadedController(t)
	if err := c.Play(0.4); err != nil {
		t.Fatalf("Play: %v", err)
	}
	prev := c.SessionState().Time
	for i := 0; i < 50; i++ {
		if err := c.Tick(time.Millisecond); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		now := c.SessionState().Time
		if now.Before(prev) {
			t.Fatalf("tick %d regressed simulated time: %v -> %v", i, prev, now)
		}
		prev = now
	}
	if want := sessionStart.Add(20 * time.Millisecond); !prev.Equal(want) {
		t.Fatalf("time after 50 fractional ticks = %v, want %v", prev, want)
	}
}

func TestController_SeekDiscardsTickRemainder(t *testing.T) {
	c := loadedController(t)
	if err := c.Play(0.4); err != nil {
		t.Fatalf("Play: %v", err)
	}
	// Leave a 0.4 ms remainder pending, then jump.
	if err := c.Tick(time.Millisecond); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	mid := sessionStart.Add(10 * time.Minute)
	if err := c.Seek(mid); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if err := c.Tick(5 * time.Millisecond); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if want := mid.Add(2 * time.Millisecond); !c.SessionState().Time.Equal(want) {
		t.Fatalf("time after seek and tick = %v, want %v", c.SessionState().Time, want)
	}
}

func TestController_TickIgnoredUnlessPlaying(t *testing.T) {
	c := loadedController(t)
	before := c.SessionState().Time
	if err := c.Tick(time.Second); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !c.SessionState().Time.Equal(before) {
		t.Fatalf("time advanced while not playing")
	}
}

func TestController_TickClampsAndPausesAtEnd(t *testing.T) {
	c := loadedController(t)
	if err := c.Play(1); err != nil {
		t.Fatalf("Play: %v", err)
	}

	// A single huge tick overshoots the end bound.
	if err := c.Tick(1000 * time.Hour); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	snap := c.SessionState()
	if snap.State != StatePaused {
		t.Fatalf("state after overshoot = %v, want paused", snap.State)
	}
	if !snap.Time.Equal(snap.Bounds.End) {
		t.Fatalf("time after overshoot = %v, want end bound %v", snap.Time, snap.Bounds.End)
	}
}

func TestController_TickLoopsWhenConfigured(t *testing.T) {
	c := loadedController(t, WithLoop(true))
	if err := c.Play(1); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if err := c.Tick(1000 * time.Hour); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	snap := c.SessionState()
	if snap.State != StatePlaying {
		t.Fatalf("state after loop wrap = %v, want playing", snap.State)
	}
	if !snap.Time.Equal(snap.Bounds.Start) {
		t.Fatalf("time after loop wrap = %v, want start bound", snap.Time)
	}
}

func TestController_SeekClampsAndPreservesPlayState(t *testing.T) {
	c := loadedController(t)

	// Seek while paused resolves to paused.
	mid := sessionStart.Add(30 * time.Minute)
	if err := c.Seek(mid); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	snap := c.SessionState()
	if snap.State != StatePaused || !snap.Time.Equal(mid) {
		t.Fatalf("after paused seek: %+v", snap)
	}
	if !c.CurrentFrame().Time.Equal(mid) {
		t.Fatalf("frame after seek = %v, want %v", c.CurrentFrame().Time, mid)
	}

	// Seek while playing resolves back to playing.
	if err := c.Play(1); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := c.Seek(sessionStart.Add(time.Hour)); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := c.SessionState().State; got != StatePlaying {
		t.Fatalf("after playing seek: %v, want playing", got)
	}

	// Out-of-bounds targets clamp to the nearest bound.
	if err := c.Seek(sessionStart.Add(-time.Hour)); err != nil {
		t.Fatalf("Seek before start: %v", err)
	}
	if !c.SessionState().Time.Equal(sessionStart) {
		t.Fatalf("seek before start did not clamp: %v", c.SessionState().Time)
	}
	if err := c.Seek(sessionStart.Add(100 * time.Hour)); err != nil {
		t.Fatalf("Seek past end: %v", err)
	}
	if !c.SessionState().Time.Equal(c.SessionState().Bounds.End) {
		t.Fatalf("seek past end did not clamp: %v", c.SessionState().Time)
	}
}

func TestController_QuantizesRequestedTimes(t *testing.T) {
	c := loadedController(t)
	target := sessionStart.Add(15*time.Minute + 123456789*time.Nanosecond)
	if err := c.Seek(target); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	want := target.Truncate(time.Millisecond)
	if !c.SessionState().Time.Equal(want) {
		t.Fatalf("seek time = %v, want quantized %v", c.SessionState().Time, want)
	}
}

func TestController_SeekBackToCachedTimeHits(t *testing.T) {
	c := loadedController(t)
	mid := sessionStart.Add(10 * time.Minute)

	if err := c.Seek(mid); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	first := c.CurrentFrame()

	if err := c.Seek(sessionStart.Add(20 * time.Minute)); err != nil {
		t.Fatalf("Seek away: %v", err)
	}
	if err := c.Seek(mid); err != nil {
		t.Fatalf("Seek back: %v", err)
	}

	if c.CurrentFrame() != first {
		t.Fatalf("revisited time produced a different frame instance")
	}
	hits, _ := c.CacheStats()
	if hits == 0 {
		t.Fatalf("revisited time did not register a cache hit")
	}
}

func TestController_DeterministicTickSequence(t *testing.T) {
	run := func() []time.Time {
		c := loadedController(t)
		if err := c.Play(60); err != nil {
			t.Fatalf("Play: %v", err)
		}
		var times []time.Time
		for i := 0; i < 20; i++ {
			if err := c.Tick(33 * time.Millisecond); err != nil {
				t.Fatalf("Tick: %v", err)
			}
			times = append(times, c.CurrentFrame().Time)
		}
		return times
	}

	first := run()
	second := run()
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("tick %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestController_OverheadPassScenario(t *testing.T) {
	// Circular equatorial orbit at 7000 km over a station on the +X
	// axis: overhead at session start, on the far side roughly half an
	// orbit later.
	c := loadedController(t)

	frame := c.CurrentFrame()
	if len(frame.Detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(frame.Detections))
	}
	d := frame.Detections[0]
	if !d.Visible {
		t.Fatalf("overhead object not visible at start: %#v", d)
	}
	if math.Abs(d.ElevationDeg-90) > 1e-6 {
		t.Fatalf("elevation = %v, want 90", d.ElevationDeg)
	}
	if math.Abs(d.RangeKm-(7000-core.EarthRadiusKm)) > 1e-6 {
		t.Fatalf("range = %v, want %v", d.RangeKm, 7000-core.EarthRadiusKm)
	}

	// Half a period later the object is behind the Earth.
	orbit := testOrbit(t, 7000).(*core.KeplerOrbit)
	half := orbit.Elements().Period() / 2
	if err := c.Seek(sessionStart.Add(half)); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	d = c.CurrentFrame().Detections[0]
	if d.Visible {
		t.Fatalf("far-side object reported visible: %#v", d)
	}
	if d.RangeKm == 0 {
		t.Fatalf("non-visible detection missing geometry")
	}
}
