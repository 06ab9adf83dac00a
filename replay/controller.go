package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/radar-replay/core"
	"github.com/signalsfoundry/radar-replay/internal/logging"
	"github.com/signalsfoundry/radar-replay/model"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidSpeed   = errors.New("invalid playback speed")
	ErrNoSession      = errors.New("no session loaded")
)

// defaultResolution is the propagation time resolution: every
// requested time is quantized to it so frame identity by time value is
// exact and cache keys always match.
const defaultResolution = time.Millisecond

// Metrics receives replay instrumentation. The controller works
// against this interface so a Prometheus collector (or nothing) can be
// plugged in.
type Metrics interface {
	FrameComputed(d time.Duration, precisionWarning bool)
	CacheHit()
	CacheMiss()
	SetScenario(objects, stations int)
	SetPlayback(speed float64, simTime time.Time)
}

type nopMetrics struct{}

func (nopMetrics) FrameComputed(time.Duration, bool) {}
func (nopMetrics) CacheHit()                         {}
func (nopMetrics) CacheMiss()                        {}
func (nopMetrics) SetScenario(int, int)              {}
func (nopMetrics) SetPlayback(float64, time.Time)    {}

// Controller drives simulated time over a loaded session. Time
// advancement is logically single-threaded and deterministic: the same
// sequence of Load/Play/Pause/Seek/Tick calls requests the same
// sequence of frame times on every run. Frame computation itself runs
// through the cache and may execute on other goroutines.
type Controller struct {
	mu sync.Mutex

	log     logging.Logger
	metrics Metrics

	resolution    time.Duration
	cacheCapacity int
	loop          bool
	prefetchDepth int
	prefetchStep  time.Duration

	session   session
	assembler *core.Assembler
	cache     *FrameCache
	prefetch  *Prefetcher
	monitor   *TrackMonitor
	current   *core.Frame
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger; default is a no-op logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithMetrics plugs in an instrumentation sink.
func WithMetrics(m Metrics) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithResolution overrides the frame time quantization resolution.
func WithResolution(r time.Duration) Option {
	return func(c *Controller) {
		if r > 0 {
			c.resolution = r
		}
	}
}

// WithCacheCapacity bounds the frame cache.
func WithCacheCapacity(n int) Option {
	return func(c *Controller) { c.cacheCapacity = n }
}

// WithLoop makes Tick wrap around at the session bounds instead of
// pausing there.
func WithLoop(loop bool) Option {
	return func(c *Controller) { c.loop = loop }
}

// WithPrefetch enables background precomputation of the next depth
// frames at the given simulated-time step in the playback direction.
func WithPrefetch(depth int, step time.Duration) Option {
	return func(c *Controller) {
		c.prefetchDepth = depth
		c.prefetchStep = step
	}
}

// WithTrackMonitor attaches a track-continuity monitor fed with every
// frame the controller presents, in presentation order.
func WithTrackMonitor(m *TrackMonitor) Option {
	return func(c *Controller) { c.monitor = m }
}

// NewController creates an idle controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		log:        logging.Noop(),
		metrics:    nopMetrics{},
		resolution: defaultResolution,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load validates the session definition and transitions Idle → Loaded
// with time at the start bound, paused. On any validation failure the
// controller stays Idle and the session is unchanged.
func (c *Controller) Load(orbits []core.Orbit, stations []model.RadarStation, bounds Bounds) error {
	if !bounds.Valid() {
		return fmt.Errorf("%w: bounds start %v must precede end %v", ErrInvalidSession, bounds.Start, bounds.End)
	}
	if len(orbits) == 0 {
		return fmt.Errorf("%w: no objects", ErrInvalidSession)
	}
	for _, orbit := range orbits {
		if orbit == nil || orbit.ObjectID() == "" {
			return fmt.Errorf("%w: orbit with empty object ID", ErrInvalidSession)
		}
		if v, ok := orbit.(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidSession, err)
			}
		}
	}
	entries := make([]core.StationEntry, 0, len(stations))
	for _, st := range stations {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSession, err)
		}
		entries = append(entries, core.StationEntry{Station: st, Locator: core.NewStationLocator(st)})
	}

	assembler := core.NewAssembler(orbits, entries)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prefetch != nil {
		c.prefetch.Stop()
	}
	c.assembler = assembler
	// Capture the assembler in the compute closure so frames still in
	// flight for a superseded session keep using the session they were
	// requested under.
	c.cache = NewFrameCache(c.cacheCapacity, func(ctx context.Context, t time.Time) *core.Frame {
		return c.computeFrame(ctx, assembler, t)
	})
	if c.prefetchDepth > 0 {
		c.prefetch = NewPrefetcher(c.cache, c.prefetchDepth, c.prefetchStep)
	}
	if c.monitor != nil {
		c.monitor.Reset()
	}

	start := c.quantize(bounds.Start)
	c.session = session{
		state:  StateLoaded,
		time:   start,
		speed:  0,
		bounds: bounds,
	}
	c.metrics.SetScenario(assembler.ObjectCount(), assembler.StationCount())
	c.presentLocked(start)

	c.log.Info(context.Background(), "session loaded",
		logging.Int("objects", assembler.ObjectCount()),
		logging.Int("stations", assembler.StationCount()),
		logging.String("start", bounds.Start.UTC().Format(time.RFC3339)),
		logging.String("end", bounds.End.UTC().Format(time.RFC3339)),
	)
	return nil
}

// Play starts (or re-speeds) playback. Speed is a signed multiplier of
// wall time; negative plays in reverse. Zero is rejected, use Pause.
func (c *Controller) Play(speed float64) error {
	if speed == 0 {
		return fmt.Errorf("%w: speed must be non-zero, use Pause instead", ErrInvalidSpeed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.state == StateIdle {
		return fmt.Errorf("%w", ErrNoSession)
	}
	c.session.state = StatePlaying
	c.session.speed = speed
	c.metrics.SetPlayback(speed, c.session.time)
	return nil
}

// Pause freezes playback. Pausing an already-paused session is a no-op.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.state == StateIdle {
		return fmt.Errorf("%w", ErrNoSession)
	}
	if c.session.state == StatePlaying {
		c.session.state = StatePaused
	}
	return nil
}

// Seek jumps to simulated time t, clamped into the session bounds. The
// transient Seeking state resolves synchronously back to the caller's
// prior play/pause state. Track continuity restarts across a seek.
func (c *Controller) Seek(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.state == StateIdle {
		return fmt.Errorf("%w", ErrNoSession)
	}

	wasPlaying := c.session.state == StatePlaying
	c.session.state = StateSeeking

	target := c.quantize(c.session.bounds.Clamp(t))
	c.session.time = target
	c.session.fraction = 0
	if c.monitor != nil {
		c.monitor.Reset()
	}
	c.presentLocked(target)

	if wasPlaying {
		c.session.state = StatePlaying
	} else {
		c.session.state = StatePaused
	}
	return nil
}

// Tick advances simulated time by wallDelta × speed. It is only
// meaningful while Playing; in every other state it is a no-op.
// Reaching a bound pauses playback unless looping is configured.
func (c *Controller) Tick(wallDelta time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.state != StatePlaying {
		return nil
	}

	advance := time.Duration(float64(wallDelta) * c.session.speed)
	exact := c.session.time.Add(c.session.fraction + advance)

	if !c.session.bounds.Contains(exact) {
		if c.loop {
			if c.session.speed > 0 {
				exact = c.session.bounds.Start
			} else {
				exact = c.session.bounds.End
			}
		} else {
			exact = c.session.bounds.Clamp(exact)
			c.session.state = StatePaused
		}
		c.session.fraction = 0
		target := c.quantize(exact)
		c.session.time = target
		c.metrics.SetPlayback(c.session.speed, target)
		c.presentLocked(target)
		return nil
	}

	// Truncate rounds toward the zero time, so the remainder is in
	// [0, resolution) for both playback directions.
	target := c.quantize(exact)
	c.session.fraction = exact.Sub(target)
	if target.Equal(c.session.time) {
		// Sub-resolution advance; the remainder carries into the next tick.
		return nil
	}

	c.session.time = target
	c.metrics.SetPlayback(c.session.speed, target)
	c.presentLocked(target)
	return nil
}

// CurrentFrame returns the read-only snapshot for the currently
// selected simulated time, or nil while Idle. Frames are immutable;
// the viewer reads them without locking.
func (c *Controller) CurrentFrame() *core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SessionState returns the session snapshot for UI indicators.
func (c *Controller) SessionState() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:  c.session.state,
		Time:   c.session.time,
		Bounds: c.session.bounds,
		Speed:  c.session.speed,
	}
}

// Tracks returns the current track table, or nil when no monitor is
// attached.
func (c *Controller) Tracks() []TrackState {
	c.mu.Lock()
	monitor := c.monitor
	c.mu.Unlock()
	if monitor == nil {
		return nil
	}
	return monitor.Tracks()
}

// CacheStats exposes frame-cache hit/miss counters.
func (c *Controller) CacheStats() (hits, misses int64) {
	c.mu.Lock()
	cache := c.cache
	c.mu.Unlock()
	if cache == nil {
		return 0, 0
	}
	return cache.Stats()
}

// presentLocked requests the frame for t and makes it current. Caller
// must hold c.mu. Every state transition that changes simulated time
// funnels through here.
func (c *Controller) presentLocked(t time.Time) {
	if c.cache.Peek(t) {
		c.metrics.CacheHit()
	} else {
		c.metrics.CacheMiss()
	}
	frame := c.cache.Get(context.Background(), t)
	c.current = frame
	if c.monitor != nil {
		c.monitor.ObserveFrame(frame)
	}
	if c.prefetch != nil {
		direction := 1
		if c.session.speed < 0 {
			direction = -1
		}
		c.prefetch.Schedule(t, direction, c.session.bounds)
	}
}

// computeFrame is the cache's miss path.
func (c *Controller) computeFrame(ctx context.Context, assembler *core.Assembler, t time.Time) *core.Frame {
	started := time.Now()
	frame := assembler.Assemble(ctx, t)
	c.metrics.FrameComputed(time.Since(started), frame.PrecisionWarning)
	if frame.PrecisionWarning {
		c.log.Warn(ctx, "propagation precision warning",
			logging.String("sim_time", t.UTC().Format(time.RFC3339Nano)))
	}
	return frame
}

func (c *Controller) quantize(t time.Time) time.Time {
	return t.Truncate(c.resolution)
}
