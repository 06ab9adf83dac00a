package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/radar-replay/model"
)

// Orbit evaluates one object's trajectory at arbitrary simulated times.
// Implementations must be pure: no internal mutable state, bit-identical
// results for identical inputs, safe for concurrent use. New propagation
// models are added by implementing this interface.
type Orbit interface {
	ObjectID() string
	Evaluate(t time.Time) model.ObjectState
}

// KeplerOrbit is the analytic two-body baseline: classical elements
// advanced by mean motion, eccentric anomaly solved per query.
type KeplerOrbit struct {
	elements model.OrbitalElements
}

// NewKeplerOrbit validates the element set and constructs the orbit.
// Parabolic and hyperbolic element sets are rejected here, at load
// time, never mid-playback.
func NewKeplerOrbit(elements model.OrbitalElements) (*KeplerOrbit, error) {
	if err := elements.Validate(); err != nil {
		return nil, err
	}
	return &KeplerOrbit{elements: elements}, nil
}

// ObjectID returns the propagated object's identifier.
func (o *KeplerOrbit) ObjectID() string { return o.elements.ObjectID }

// Elements returns a copy of the owned element set.
func (o *KeplerOrbit) Elements() model.OrbitalElements { return o.elements }

// Validate re-checks the owned element set. Session load uses this to
// reject malformed definitions wholesale.
func (o *KeplerOrbit) Validate() error { return o.elements.Validate() }

// Evaluate propagates the orbit to t, before or after epoch, in any
// order. The transcendental eccentric-anomaly equation is solved with
// a bounded Newton iteration; if the cap is reached the best available
// state is returned with PrecisionWarning set.
func (o *KeplerOrbit) Evaluate(t time.Time) model.ObjectState {
	el := o.elements
	mu := el.Mu()
	a := el.SemiMajorAxisKm
	e := el.Eccentricity

	deg2rad := math.Pi / 180.0
	dt := t.Sub(el.Epoch).Seconds()
	M := normalizeAngle(el.MeanAnomalyDeg*deg2rad + el.MeanMotion()*dt)

	E, converged := solveEccentricAnomaly(M, e)
	nu := trueAnomalyFromEccentric(E, e)

	// Perifocal position and velocity.
	r := a * (1 - e*math.Cos(E))
	xPf := r * math.Cos(nu)
	yPf := r * math.Sin(nu)

	vScale := math.Sqrt(mu*a) / r
	vxPf := -vScale * math.Sin(E)
	vyPf := vScale * math.Sqrt(1-e*e) * math.Cos(E)

	// Rotate perifocal -> inertial via the P and Q basis vectors
	// (Rz(Ω) Rx(i) Rz(ω) applied to the perifocal axes).
	cosO := math.Cos(el.RAANDeg * deg2rad)
	sinO := math.Sin(el.RAANDeg * deg2rad)
	cosI := math.Cos(el.InclinationDeg * deg2rad)
	sinI := math.Sin(el.InclinationDeg * deg2rad)
	cosW := math.Cos(el.ArgPeriapsisDeg * deg2rad)
	sinW := math.Sin(el.ArgPeriapsisDeg * deg2rad)

	p := model.Vec3{
		X: cosO*cosW - sinO*sinW*cosI,
		Y: sinO*cosW + cosO*sinW*cosI,
		Z: sinW * sinI,
	}
	q := model.Vec3{
		X: -cosO*sinW - sinO*cosW*cosI,
		Y: -sinO*sinW + cosO*cosW*cosI,
		Z: cosW * sinI,
	}

	return model.ObjectState{
		ObjectID:         el.ObjectID,
		Time:             t,
		Position:         p.Scale(xPf).Add(q.Scale(yPf)),
		Velocity:         p.Scale(vxPf).Add(q.Scale(vyPf)),
		PrecisionWarning: !converged,
	}
}

// SGP4Orbit propagates a TLE with the SGP4 model. It is a
// deterministic, side-effect-free extension point alongside the
// two-body baseline; go-satellite works in kilometres throughout.
type SGP4Orbit struct {
	id  string
	sat satellite.Satellite
}

// NewSGP4OrbitFromTLE constructs an SGP4 orbit from TLE lines.
func NewSGP4OrbitFromTLE(id, line1, line2 string) *SGP4Orbit {
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &SGP4Orbit{id: id, sat: sat}
}

// ObjectID returns the propagated object's identifier.
func (o *SGP4Orbit) ObjectID() string { return o.id }

// Evaluate propagates the TLE to the given simulated time.
func (o *SGP4Orbit) Evaluate(t time.Time) model.ObjectState {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, vel := satellite.Propagate(o.sat, year, int(month), day, hour, min, sec)
	return model.ObjectState{
		ObjectID: o.id,
		Time:     t,
		Position: model.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z},
		Velocity: model.Vec3{X: vel.X, Y: vel.Y, Z: vel.Z},
	}
}
