package core

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/radar-replay/model"
)

// Frame is the immutable snapshot of all object and detection states at
// one simulated instant. Object states are ordered by object ID,
// detections by station then object ID, so two frames for the same
// time compare identically. A frame is identified by its Time value.
type Frame struct {
	Time time.Time

	Objects    []model.ObjectState
	Detections []DetectionResult

	// PrecisionWarning aggregates the per-object solver flags so a
	// viewer can mark the whole frame as reduced-confidence.
	PrecisionWarning bool
}

// StationEntry pairs a station definition with its resolved locator.
type StationEntry struct {
	Station model.RadarStation
	Locator StationLocator
}

// Assembler packages propagation and detection results for single
// simulated instants. It owns no mutable state beyond its immutable
// inputs, so Assemble may run concurrently for different times.
type Assembler struct {
	orbits   []Orbit
	stations []StationEntry
	engine   DetectionEngine
	tracer   trace.Tracer
}

// NewAssembler builds an assembler over the session's orbits and
// stations. Inputs are copied and sorted by ID once so every assembled
// frame comes out in the same deterministic order.
func NewAssembler(orbits []Orbit, stations []StationEntry) *Assembler {
	obs := make([]Orbit, len(orbits))
	copy(obs, orbits)
	sort.Slice(obs, func(i, j int) bool { return obs[i].ObjectID() < obs[j].ObjectID() })

	sts := make([]StationEntry, len(stations))
	copy(sts, stations)
	sort.Slice(sts, func(i, j int) bool { return sts[i].Station.ID < sts[j].Station.ID })

	return &Assembler{
		orbits:   obs,
		stations: sts,
		tracer:   otel.Tracer("radar-replay/core"),
	}
}

// ObjectCount returns the number of tracked objects.
func (a *Assembler) ObjectCount() int { return len(a.orbits) }

// StationCount returns the number of stations.
func (a *Assembler) StationCount() int { return len(a.stations) }

// Assemble computes the frame for simulated time t: every orbit is
// propagated, every station×object pair observed, and the results are
// packaged into an immutable snapshot.
func (a *Assembler) Assemble(ctx context.Context, t time.Time) *Frame {
	_, span := a.tracer.Start(ctx, "frame.assemble")
	defer span.End()

	frame := &Frame{
		Time:       t,
		Objects:    make([]model.ObjectState, 0, len(a.orbits)),
		Detections: make([]DetectionResult, 0, len(a.orbits)*len(a.stations)),
	}

	for _, orbit := range a.orbits {
		state := orbit.Evaluate(t)
		if state.PrecisionWarning {
			frame.PrecisionWarning = true
		}
		frame.Objects = append(frame.Objects, state)
	}

	for _, entry := range a.stations {
		pos := entry.Locator.LocateAt(t)
		vel := stationVelocity(entry.Locator, t)
		for _, state := range frame.Objects {
			frame.Detections = append(frame.Detections, a.engine.Observe(state, entry.Station, pos, vel))
		}
	}

	span.SetAttributes(
		attribute.String("sim_time", t.UTC().Format(time.RFC3339Nano)),
		attribute.Int("objects", len(frame.Objects)),
		attribute.Int("detections", len(frame.Detections)),
		attribute.Bool("precision_warning", frame.PrecisionWarning),
	)
	return frame
}
