package model

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyStationID    = errors.New("empty station ID")
	ErrBadMaxRange       = errors.New("max range must be positive")
	ErrBadMinElevation   = errors.New("min elevation must be in [-90°, 90°]")
	ErrBadFieldOfRegard  = errors.New("invalid field-of-regard bounds")
	ErrBadGeodetic       = errors.New("invalid geodetic location")
	ErrMissingStationPos = errors.New("station has neither a position nor a geodetic location")
)

// GeodeticPosition anchors a station to the rotating Earth. The
// station's inertial position is recomputed from the simulated time.
type GeodeticPosition struct {
	LatDeg float64
	LonDeg float64
	AltKm  float64
}

// FieldOfRegard bounds the azimuth sector a station can observe,
// in degrees clockwise from inertial north. The zero value means an
// unrestricted full circle.
type FieldOfRegard struct {
	MinAzimuthDeg float64
	MaxAzimuthDeg float64
}

// Unrestricted reports whether the field of regard covers all azimuths.
func (f FieldOfRegard) Unrestricted() bool {
	return f == FieldOfRegard{}
}

// Contains reports whether azimuth az (degrees, [0, 360)) falls inside
// the sector. Sectors may wrap through north, e.g. [350°, 20°].
func (f FieldOfRegard) Contains(az float64) bool {
	if f.Unrestricted() {
		return true
	}
	if f.MinAzimuthDeg <= f.MaxAzimuthDeg {
		return az >= f.MinAzimuthDeg && az <= f.MaxAzimuthDeg
	}
	return az >= f.MinAzimuthDeg || az <= f.MaxAzimuthDeg
}

// RadarStation describes one ground-based sensor: its location and its
// detection envelope. Loaded once per replay session; immutable during
// playback.
type RadarStation struct {
	ID   string
	Name string

	// Position is the station's fixed inertial position (km). Ignored
	// when Geodetic is set.
	Position Vec3

	// Geodetic, when non-nil, makes the station rotate with the Earth.
	Geodetic *GeodeticPosition

	MinElevationDeg float64
	MaxRangeKm      float64
	FieldOfRegard   FieldOfRegard
}

// Validate applies the semantic bounds checks performed at session
// load. File parsing and schema validation live outside the core.
func (s RadarStation) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w", ErrEmptyStationID)
	}
	if s.MaxRangeKm <= 0 {
		return fmt.Errorf("%w: station %q has maxRange=%f km", ErrBadMaxRange, s.ID, s.MaxRangeKm)
	}
	if s.MinElevationDeg < -90 || s.MinElevationDeg > 90 {
		return fmt.Errorf("%w: station %q has minElevation=%f°", ErrBadMinElevation, s.ID, s.MinElevationDeg)
	}
	f := s.FieldOfRegard
	if !f.Unrestricted() {
		if f.MinAzimuthDeg < 0 || f.MinAzimuthDeg >= 360 || f.MaxAzimuthDeg < 0 || f.MaxAzimuthDeg >= 360 {
			return fmt.Errorf("%w: station %q has azimuth sector [%f°, %f°]", ErrBadFieldOfRegard, s.ID, f.MinAzimuthDeg, f.MaxAzimuthDeg)
		}
	}
	if s.Geodetic == nil && s.Position == (Vec3{}) {
		return fmt.Errorf("%w: station %q", ErrMissingStationPos, s.ID)
	}
	if g := s.Geodetic; g != nil {
		if g.LatDeg < -90 || g.LatDeg > 90 {
			return fmt.Errorf("%w: station %q has latitude %f°", ErrBadGeodetic, s.ID, g.LatDeg)
		}
	}
	return nil
}
