package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/radar-replay/model"
)

// StationLocator resolves a station's inertial position at a simulated
// time. Fixed and moving sensors are both expressed through this
// interface.
type StationLocator interface {
	LocateAt(t time.Time) model.Vec3
}

// FixedLocator pins a station to a constant inertial position.
type FixedLocator struct {
	Position model.Vec3
}

// LocateAt returns the fixed position regardless of time.
func (l FixedLocator) LocateAt(time.Time) model.Vec3 {
	return l.Position
}

// GeodeticLocator anchors a station to a geodetic ground point and
// rotates it into the inertial frame per simulated time.
type GeodeticLocator struct {
	Geodetic model.GeodeticPosition
}

// LocateAt returns the ground point's inertial position at t.
func (l GeodeticLocator) LocateAt(t time.Time) model.Vec3 {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jday := satellite.JDay(year, int(month), day, hour, min, sec)
	// JDay resolves whole seconds; fold sub-second time back in so the
	// finite-difference velocity estimate below stays meaningful.
	jday += float64(t.Nanosecond()) / 1e9 / 86400.0

	deg2rad := math.Pi / 180.0
	pos := satellite.LLAToECI(satellite.LatLong{
		Latitude:  l.Geodetic.LatDeg * deg2rad,
		Longitude: l.Geodetic.LonDeg * deg2rad,
	}, l.Geodetic.AltKm, jday)

	return model.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
}

// NewStationLocator chooses the appropriate locator for the station:
// geodetic definitions rotate with the Earth, everything else is fixed.
func NewStationLocator(station model.RadarStation) StationLocator {
	if station.Geodetic != nil {
		return GeodeticLocator{Geodetic: *station.Geodetic}
	}
	return FixedLocator{Position: station.Position}
}

// stationVelocityEpsilon is the half-width of the central difference
// used to estimate a moving station's velocity. Small against the
// Earth's rotation period, large enough to stay numerically stable.
const stationVelocityEpsilon = 500 * time.Millisecond

// stationVelocity estimates the locator's inertial velocity at t by
// central finite difference. Fixed locators short-circuit to zero.
func stationVelocity(loc StationLocator, t time.Time) model.Vec3 {
	if _, ok := loc.(FixedLocator); ok {
		return model.Vec3{}
	}
	before := loc.LocateAt(t.Add(-stationVelocityEpsilon))
	after := loc.LocateAt(t.Add(stationVelocityEpsilon))
	return after.Sub(before).Scale(1 / (2 * stationVelocityEpsilon.Seconds()))
}
