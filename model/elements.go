package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// EarthMuKm3S2 is the standard gravitational parameter of the Earth
// in km³/s², used when an element set does not specify its own.
const EarthMuKm3S2 = 398600.4418

var (
	ErrEmptyObjectID     = errors.New("empty object ID")
	ErrBadSemiMajorAxis  = errors.New("semi-major axis must be positive")
	ErrBadEccentricity   = errors.New("eccentricity must be in [0, 1) for a bounded orbit")
	ErrBadGravParameter  = errors.New("gravitational parameter must be positive")
	ErrBadInclination    = errors.New("inclination must be in [0°, 180°]")
	ErrZeroElementsEpoch = errors.New("element set has zero epoch")
)

// OrbitalElements is a classical Keplerian element set referenced to an
// epoch. Immutable once loaded; each orbit owns its own copy.
type OrbitalElements struct {
	ObjectID string
	Epoch    time.Time

	SemiMajorAxisKm float64
	Eccentricity    float64
	InclinationDeg  float64
	RAANDeg         float64 // right ascension of the ascending node
	ArgPeriapsisDeg float64
	MeanAnomalyDeg  float64 // at epoch

	// MuKm3S2 is the gravitational parameter of the central body.
	// Zero means "use EarthMuKm3S2".
	MuKm3S2 float64
}

// Mu returns the effective gravitational parameter.
func (e OrbitalElements) Mu() float64 {
	if e.MuKm3S2 == 0 {
		return EarthMuKm3S2
	}
	return e.MuKm3S2
}

// MeanMotion returns the mean motion in rad/s.
func (e OrbitalElements) MeanMotion() float64 {
	return math.Sqrt(e.Mu() / math.Pow(e.SemiMajorAxisKm, 3))
}

// Period returns the orbital period.
func (e OrbitalElements) Period() time.Duration {
	return time.Duration(2 * math.Pi / e.MeanMotion() * float64(time.Second))
}

// Validate rejects element sets the bounded-orbit model cannot
// propagate. Parabolic and hyperbolic sets fail here, at load time,
// rather than surfacing mid-playback.
func (e OrbitalElements) Validate() error {
	if e.ObjectID == "" {
		return fmt.Errorf("%w", ErrEmptyObjectID)
	}
	if e.Epoch.IsZero() {
		return fmt.Errorf("%w: object %q", ErrZeroElementsEpoch, e.ObjectID)
	}
	if e.SemiMajorAxisKm <= 0 {
		return fmt.Errorf("%w: object %q has a=%f km", ErrBadSemiMajorAxis, e.ObjectID, e.SemiMajorAxisKm)
	}
	if e.Eccentricity < 0 || e.Eccentricity >= 1 {
		return fmt.Errorf("%w: object %q has e=%f", ErrBadEccentricity, e.ObjectID, e.Eccentricity)
	}
	if e.InclinationDeg < 0 || e.InclinationDeg > 180 {
		return fmt.Errorf("%w: object %q has i=%f°", ErrBadInclination, e.ObjectID, e.InclinationDeg)
	}
	if e.MuKm3S2 < 0 {
		return fmt.Errorf("%w: object %q has mu=%f", ErrBadGravParameter, e.ObjectID, e.MuKm3S2)
	}
	return nil
}
