package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the replay tool's file configuration.
type Config struct {
	Scenario string        `yaml:"scenario"`
	Replay   ReplayConfig  `yaml:"replay"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Log      LogConfig     `yaml:"log"`
}

// ReplayConfig tunes playback and the frame pipeline.
type ReplayConfig struct {
	Speed         float64
	Loop          bool
	Tick          time.Duration
	Resolution    time.Duration
	CacheCapacity int
	PrefetchDepth int
	PrefetchStep  time.Duration
	CoastFrames   int
}

// UnmarshalYAML decodes duration fields from strings like "33ms" and
// leaves absent keys at their current (default) values.
func (r *ReplayConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Speed         *float64 `yaml:"speed"`
		Loop          *bool    `yaml:"loop"`
		Tick          *string  `yaml:"tick"`
		Resolution    *string  `yaml:"resolution"`
		CacheCapacity *int     `yaml:"cache_capacity"`
		PrefetchDepth *int     `yaml:"prefetch_depth"`
		PrefetchStep  *string  `yaml:"prefetch_step"`
		CoastFrames   *int     `yaml:"coast_frames"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}

	if aux.Speed != nil {
		r.Speed = *aux.Speed
	}
	if aux.Loop != nil {
		r.Loop = *aux.Loop
	}
	if aux.CacheCapacity != nil {
		r.CacheCapacity = *aux.CacheCapacity
	}
	if aux.PrefetchDepth != nil {
		r.PrefetchDepth = *aux.PrefetchDepth
	}
	if aux.CoastFrames != nil {
		r.CoastFrames = *aux.CoastFrames
	}

	for _, f := range []struct {
		raw *string
		dst *time.Duration
		key string
	}{
		{aux.Tick, &r.Tick, "tick"},
		{aux.Resolution, &r.Resolution, "resolution"},
		{aux.PrefetchStep, &r.PrefetchStep, "prefetch_step"},
	} {
		if f.raw == nil {
			continue
		}
		d, err := time.ParseDuration(*f.raw)
		if err != nil {
			return fmt.Errorf("replay.%s: %w", f.key, err)
		}
		*f.dst = d
	}
	return nil
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// LogConfig mirrors the logging package's settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Replay: ReplayConfig{
			Speed:         1,
			Tick:          33 * time.Millisecond,
			Resolution:    time.Millisecond,
			CacheCapacity: 256,
			PrefetchDepth: 16,
			PrefetchStep:  100 * time.Millisecond,
			CoastFrames:   5,
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
	}
}

// Load reads a YAML configuration file, layering it over the defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the replay pipeline cannot honour.
func (c Config) Validate() error {
	if c.Replay.Speed == 0 {
		return fmt.Errorf("replay.speed must be non-zero")
	}
	if c.Replay.Tick <= 0 {
		return fmt.Errorf("replay.tick must be positive")
	}
	if c.Replay.Resolution <= 0 {
		return fmt.Errorf("replay.resolution must be positive")
	}
	if c.Replay.CacheCapacity < 0 {
		return fmt.Errorf("replay.cache_capacity must not be negative")
	}
	if c.Replay.PrefetchDepth < 0 {
		return fmt.Errorf("replay.prefetch_depth must not be negative")
	}
	if c.Metrics.Enable && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen required when metrics.enable is set")
	}
	return nil
}
