package core

import (
	"time"

	"github.com/signalsfoundry/radar-replay/model"
)

// DetectionResult is the detection geometry for one station×object pair
// at one simulated instant. Pairs with Visible=false still carry their
// geometry so a viewer can render near-misses; they are never
// suppressed. Derived data: it lives only inside its owning Frame.
type DetectionResult struct {
	StationID string
	ObjectID  string
	Time      time.Time

	Visible      bool
	RangeKm      float64
	RangeRateKmS float64 // positive = receding
	AzimuthDeg   float64
	ElevationDeg float64
}

// DetectionEngine computes detection geometry and the visibility
// verdict for object/station pairs. It is stateless and side-effect
// free; a zero value is ready to use.
type DetectionEngine struct{}

// Observe evaluates one object state against one station whose
// position and velocity have been resolved for the same instant.
//
// Visible is true iff range ≤ MaxRange, elevation ≥ MinElevation, the
// azimuth falls inside the field of regard, and the Earth sphere does
// not occlude the sight line.
//
// Range rate is the exact projection of the relative velocity onto the
// line of sight; no finite differencing of the object state is needed
// because propagation yields full velocity.
func (DetectionEngine) Observe(state model.ObjectState, station model.RadarStation, stationPos, stationVel model.Vec3) DetectionResult {
	rel := state.Position.Sub(stationPos)
	rangeKm := rel.Norm()

	var rangeRate float64
	if rangeKm > 0 {
		relVel := state.Velocity.Sub(stationVel)
		rangeRate = rel.Dot(relVel) / rangeKm
	}

	elev := ElevationDegrees(stationPos, state.Position)
	az := AzimuthDegrees(stationPos, state.Position)

	visible := rangeKm <= station.MaxRangeKm &&
		elev >= station.MinElevationDeg &&
		station.FieldOfRegard.Contains(az) &&
		hasLineOfSight(stationPos, state.Position)

	return DetectionResult{
		StationID:    station.ID,
		ObjectID:     state.ObjectID,
		Time:         state.Time,
		Visible:      visible,
		RangeKm:      rangeKm,
		RangeRateKmS: rangeRate,
		AzimuthDeg:   az,
		ElevationDeg: elev,
	}
}
