package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/radar-replay/replay"
)

// ReplayCollector bundles Prometheus metrics for the replay core and
// satisfies the replay.Metrics interface so the controller and cache
// can drive it directly.
type ReplayCollector struct {
	gatherer prometheus.Gatherer

	FramesComputed    *prometheus.CounterVec
	FrameDuration     prometheus.Histogram
	CacheLookups      *prometheus.CounterVec
	PrecisionWarnings prometheus.Counter

	ScenarioObjects  prometheus.Gauge
	ScenarioStations prometheus.Gauge
	PlaybackSpeed    prometheus.Gauge
	SimTime          prometheus.Gauge
}

var _ replay.Metrics = (*ReplayCollector)(nil)

// NewReplayCollector registers replay Prometheus metrics against the
// provided registerer, defaulting to the global registry when nil.
func NewReplayCollector(reg prometheus.Registerer) (*ReplayCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_frames_computed_total",
		Help: "Total number of frames assembled on cache miss, labeled by precision outcome.",
	}, []string{"precision"})
	frames, err := registerCounterVec(reg, frames, "replay_frames_computed_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "replay_frame_compute_seconds",
		Help:    "Frame propagation plus detection latency in seconds.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "replay_frame_compute_seconds")
	if err != nil {
		return nil, err
	}

	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_frame_cache_lookups_total",
		Help: "Frame cache lookups, labeled by hit or miss.",
	}, []string{"result"})
	lookups, err = registerCounterVec(reg, lookups, "replay_frame_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	warnings, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replay_precision_warnings_total",
		Help: "Frames whose eccentric-anomaly solve hit the iteration cap.",
	}), "replay_precision_warnings_total")
	if err != nil {
		return nil, err
	}

	objects, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replay_scenario_objects",
		Help: "Number of tracked objects in the loaded session.",
	}), "replay_scenario_objects")
	if err != nil {
		return nil, err
	}
	stations, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replay_scenario_stations",
		Help: "Number of radar stations in the loaded session.",
	}), "replay_scenario_stations")
	if err != nil {
		return nil, err
	}
	speed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replay_playback_speed",
		Help: "Current signed playback speed multiplier.",
	}), "replay_playback_speed")
	if err != nil {
		return nil, err
	}
	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replay_sim_time_seconds",
		Help: "Current simulated time as a Unix timestamp.",
	}), "replay_sim_time_seconds")
	if err != nil {
		return nil, err
	}

	return &ReplayCollector{
		gatherer:          gatherer,
		FramesComputed:    frames,
		FrameDuration:     duration,
		CacheLookups:      lookups,
		PrecisionWarnings: warnings,
		ScenarioObjects:   objects,
		ScenarioStations:  stations,
		PlaybackSpeed:     speed,
		SimTime:           simTime,
	}, nil
}

// FrameComputed records one assembled frame. Implements replay.Metrics.
func (c *ReplayCollector) FrameComputed(d time.Duration, precisionWarning bool) {
	if c == nil {
		return
	}
	precision := "ok"
	if precisionWarning {
		precision = "degraded"
		if c.PrecisionWarnings != nil {
			c.PrecisionWarnings.Inc()
		}
	}
	if c.FramesComputed != nil {
		c.FramesComputed.WithLabelValues(precision).Inc()
	}
	if c.FrameDuration != nil {
		c.FrameDuration.Observe(d.Seconds())
	}
}

// CacheHit records a frame-cache hit. Implements replay.Metrics.
func (c *ReplayCollector) CacheHit() {
	if c != nil && c.CacheLookups != nil {
		c.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// CacheMiss records a frame-cache miss. Implements replay.Metrics.
func (c *ReplayCollector) CacheMiss() {
	if c != nil && c.CacheLookups != nil {
		c.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// SetScenario publishes the loaded session's sizes. Implements
// replay.Metrics.
func (c *ReplayCollector) SetScenario(objects, stations int) {
	if c == nil {
		return
	}
	if c.ScenarioObjects != nil {
		c.ScenarioObjects.Set(float64(objects))
	}
	if c.ScenarioStations != nil {
		c.ScenarioStations.Set(float64(stations))
	}
}

// SetPlayback publishes the playback speed and simulated time.
// Implements replay.Metrics.
func (c *ReplayCollector) SetPlayback(speed float64, simTime time.Time) {
	if c == nil {
		return
	}
	if c.PlaybackSpeed != nil {
		c.PlaybackSpeed.Set(speed)
	}
	if c.SimTime != nil {
		c.SimTime.Set(float64(simTime.UnixNano()) / 1e9)
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ReplayCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
