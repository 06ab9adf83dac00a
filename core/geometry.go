package core

import (
	"math"

	"github.com/signalsfoundry/radar-replay/model"
)

// EarthRadiusKm is the mean Earth radius used for all occlusion and
// horizon geometry (kilometres). The occlusion body is deliberately a
// sphere; an oblate ellipsoid would be a refinement, but whichever
// shape is used must be applied consistently, and the sphere is the
// documented default here.
const EarthRadiusKm = 6371.0

// hasLineOfSight checks whether the straight segment between p1 and p2
// intersects the Earth sphere. If it does, the Earth blocks the
// sight line and the function returns false.
//
// All positions are inertial-frame kilometres. The occluding sphere
// never swallows the observer: a sensor standing on the surface (or,
// on the real ellipsoid, slightly inside the mean sphere at high
// latitudes) must still see upward, so the effective occlusion radius
// is capped at the observer's own radius.
func hasLineOfSight(p1, p2 model.Vec3) bool {
	rr := EarthRadiusKm * EarthRadiusKm
	if r := p1.Dot(p1); r < rr {
		rr = r
	}

	v := p2.Sub(p1)
	a := v.Dot(v)
	if a == 0 {
		// Degenerate case: same point. If it's on or outside Earth,
		// treat as clear; if inside, treat as blocked.
		return p1.Dot(p1) >= EarthRadiusKm*EarthRadiusKm
	}

	// Find the closest point on the segment to the Earth's centre.
	// t* minimises |p1 + t v|² over t ∈ ℝ.
	t := -p1.Dot(v) / a
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := p1.Add(v.Scale(t))

	// If the closest point dips inside the occluding sphere, the
	// segment intersects the Earth -> no line of sight. A tangent
	// graze counts as clear.
	return closest.Dot(closest) >= rr
}

// ElevationDegrees returns the elevation angle of the target as seen
// from the observer, in degrees. 0° = geometric horizon, 90° = overhead.
func ElevationDegrees(observer, target model.Vec3) float64 {
	v := target.Sub(observer)
	vNorm := v.Norm()
	if vNorm == 0 {
		return 90
	}

	// Local zenith at the observer is its normalised position vector.
	r := observer.Norm()
	if r == 0 {
		return 90
	}
	zenith := observer.Scale(1 / r)

	cosGamma := v.Dot(zenith) / vNorm
	if cosGamma > 1 {
		cosGamma = 1
	} else if cosGamma < -1 {
		cosGamma = -1
	}
	gammaDeg := math.Acos(cosGamma) * 180.0 / math.Pi

	// Elevation is measured from the local horizon (90° − zenith angle).
	return 90.0 - gammaDeg
}

// AzimuthDegrees returns the azimuth of the target as seen from the
// observer, in degrees clockwise from inertial north, in [0, 360).
// At the poles the east direction is undefined and 0 is returned.
func AzimuthDegrees(observer, target model.Vec3) float64 {
	v := target.Sub(observer)

	zenith := observer.Normalized()
	east := model.Vec3{X: -observer.Y, Y: observer.X, Z: 0}
	if east.Norm() == 0 {
		return 0
	}
	east = east.Normalized()
	north := zenith.Cross(east)

	az := math.Atan2(v.Dot(east), v.Dot(north)) * 180.0 / math.Pi
	if az < 0 {
		az += 360
	}
	return az
}
