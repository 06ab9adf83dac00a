package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/radar-replay/core"
	"github.com/signalsfoundry/radar-replay/internal/config"
	"github.com/signalsfoundry/radar-replay/internal/logging"
	"github.com/signalsfoundry/radar-replay/internal/observability"
	"github.com/signalsfoundry/radar-replay/replay"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	scenarioPath := flag.String("scenario", "", "path to JSON scenario (overrides config)")
	speed := flag.Float64("speed", 0, "playback speed multiplier (overrides config)")
	duration := flag.Duration("duration", 0, "stop after this much wall time (0 = run to scenario end)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *scenarioPath != "" {
		cfg.Scenario = *scenarioPath
	}
	if *speed != 0 {
		cfg.Replay.Speed = *speed
	}
	if cfg.Scenario == "" {
		fmt.Fprintln(os.Stderr, "no scenario given: use -scenario or the config file")
		os.Exit(1)
	}

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.Any("error", err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewReplayCollector(reg)
	if err != nil {
		log.Error(ctx, "metrics init failed", logging.Any("error", err))
		os.Exit(1)
	}
	if cfg.Metrics.Enable {
		go serveMetrics(ctx, cfg.Metrics.Listen, collector, log)
	}

	if err := run(ctx, cfg, collector, log, *duration); err != nil {
		log.Error(ctx, "replay failed", logging.Any("error", err))
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	cfg config.Config,
	collector *observability.ReplayCollector,
	log logging.Logger,
	wallLimit time.Duration,
) error {
	f, err := os.Open(cfg.Scenario)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	scenario, err := core.LoadScenario(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	orbits, err := scenario.BuildOrbits()
	if err != nil {
		return fmt.Errorf("build orbits: %w", err)
	}

	ctrl := replay.NewController(
		replay.WithLogger(log),
		replay.WithMetrics(collector),
		replay.WithResolution(cfg.Replay.Resolution),
		replay.WithCacheCapacity(cfg.Replay.CacheCapacity),
		replay.WithLoop(cfg.Replay.Loop),
		replay.WithPrefetch(cfg.Replay.PrefetchDepth, cfg.Replay.PrefetchStep),
		replay.WithTrackMonitor(replay.NewTrackMonitor(cfg.Replay.CoastFrames)),
	)

	if err := ctrl.Load(orbits, scenario.Stations, replay.Bounds{
		Start: scenario.Start,
		End:   scenario.End,
	}); err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := ctrl.Play(cfg.Replay.Speed); err != nil {
		return err
	}

	log.Info(ctx, "replay started",
		logging.String("scenario", cfg.Scenario),
		logging.Int("objects", len(orbits)),
		logging.Int("stations", len(scenario.Stations)),
		logging.Float64("speed", cfg.Replay.Speed),
	)

	ticker := time.NewTicker(cfg.Replay.Tick)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if wallLimit > 0 {
		timer := time.NewTimer(wallLimit)
		defer timer.Stop()
		deadline = timer.C
	}

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "interrupted")
			return nil
		case <-deadline:
			log.Info(ctx, "wall-time limit reached")
			return nil
		case now := <-ticker.C:
			if err := ctrl.Tick(now.Sub(last)); err != nil {
				return fmt.Errorf("tick: %w", err)
			}
			last = now

			snap := ctrl.SessionState()
			if frame := ctrl.CurrentFrame(); frame != nil {
				printFrame(snap, frame, ctrl.Tracks())
			}
			if snap.State == replay.StatePaused && !cfg.Replay.Loop {
				hits, misses := ctrl.CacheStats()
				log.Info(ctx, "scenario complete",
					logging.Int("cache_hits", int(hits)),
					logging.Int("cache_misses", int(misses)),
				)
				return nil
			}
		}
	}
}

func printFrame(snap replay.Snapshot, frame *core.Frame, tracks []replay.TrackState) {
	visible := 0
	for _, d := range frame.Detections {
		if d.Visible {
			visible++
		}
	}
	fmt.Printf("[%s] state=%s objects=%d detections=%d visible=%d tracks=%d\n",
		frame.Time.Format(time.RFC3339Nano),
		snap.State, len(frame.Objects), len(frame.Detections), visible, len(tracks),
	)
	for _, d := range frame.Detections {
		if !d.Visible {
			continue
		}
		fmt.Printf("↳ %-12s sees %-12s range=%8.1f km rate=%+7.3f km/s az=%6.1f° el=%5.1f°\n",
			d.StationID, d.ObjectID, d.RangeKm, d.RangeRateKmS, d.AzimuthDeg, d.ElevationDeg,
		)
	}
}

func serveMetrics(ctx context.Context, listen string, collector *observability.ReplayCollector, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	log.Info(ctx, "metrics listening", logging.String("addr", listen))
	if err := http.ListenAndServe(listen, mux); err != nil {
		log.Error(ctx, "metrics server stopped", logging.Any("error", err))
	}
}
