package core

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/signalsfoundry/radar-replay/model"
)

// Scenario is a replay session definition: the tracked objects, the
// radar stations, and the session time bounds. This is the only state
// that is ever persisted. Frames are always recomputed, so stored
// scenarios can never drift from the current propagation model.
type Scenario struct {
	Objects  []ScenarioObject
	Stations []model.RadarStation
	Start    time.Time
	End      time.Time
}

// ScenarioObject describes one tracked object, either as a classical
// element set or as a TLE for the SGP4 model. Exactly one of the two
// must be present.
type ScenarioObject struct {
	Elements *model.OrbitalElements
	TLELine1 string
	TLELine2 string
	ID       string
}

// internal JSON shapes – kept unexported so we're free to evolve them.
type scenarioJSON struct {
	Objects  []scenarioObjectJSON  `json:"objects"`
	Stations []scenarioStationJSON `json:"stations"`
	Bounds   scenarioBoundsJSON    `json:"bounds"`
}

type scenarioObjectJSON struct {
	ID       string        `json:"id"`
	Elements *elementsJSON `json:"elements,omitempty"`
	TLELine1 string        `json:"tle_line1,omitempty"`
	TLELine2 string        `json:"tle_line2,omitempty"`
}

type elementsJSON struct {
	Epoch           time.Time `json:"epoch"`
	SemiMajorAxisKm float64   `json:"semi_major_axis_km"`
	Eccentricity    float64   `json:"eccentricity"`
	InclinationDeg  float64   `json:"inclination_deg"`
	RAANDeg         float64   `json:"raan_deg"`
	ArgPeriapsisDeg float64   `json:"arg_periapsis_deg"`
	MeanAnomalyDeg  float64   `json:"mean_anomaly_deg"`
	MuKm3S2         float64   `json:"mu_km3_s2,omitempty"`
}

type scenarioStationJSON struct {
	ID              string        `json:"id"`
	Name            string        `json:"name,omitempty"`
	Position        *positionJSON `json:"position,omitempty"`
	Geodetic        *geodeticJSON `json:"geodetic,omitempty"`
	MinElevationDeg float64       `json:"min_elevation_deg"`
	MaxRangeKm      float64       `json:"max_range_km"`
	MinAzimuthDeg   float64       `json:"min_azimuth_deg,omitempty"`
	MaxAzimuthDeg   float64       `json:"max_azimuth_deg,omitempty"`
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type geodeticJSON struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltKm  float64 `json:"alt_km"`
}

// LoadScenario reads a JSON scenario from r. It fails only on JSON or
// structural errors (empty IDs, object with neither elements nor TLE);
// semantic bounds checks belong to the replay controller's load path.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var payload scenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	scenario := &Scenario{
		Objects:  make([]ScenarioObject, 0, len(payload.Objects)),
		Stations: make([]model.RadarStation, 0, len(payload.Stations)),
		Start:    payload.Bounds.Start,
		End:      payload.Bounds.End,
	}

	for _, jsObj := range payload.Objects {
		if jsObj.ID == "" {
			return nil, fmt.Errorf("LoadScenario: object with empty id")
		}
		obj := ScenarioObject{ID: jsObj.ID}
		switch {
		case jsObj.Elements != nil:
			obj.Elements = &model.OrbitalElements{
				ObjectID:        jsObj.ID,
				Epoch:           jsObj.Elements.Epoch,
				SemiMajorAxisKm: jsObj.Elements.SemiMajorAxisKm,
				Eccentricity:    jsObj.Elements.Eccentricity,
				InclinationDeg:  jsObj.Elements.InclinationDeg,
				RAANDeg:         jsObj.Elements.RAANDeg,
				ArgPeriapsisDeg: jsObj.Elements.ArgPeriapsisDeg,
				MeanAnomalyDeg:  jsObj.Elements.MeanAnomalyDeg,
				MuKm3S2:         jsObj.Elements.MuKm3S2,
			}
		case jsObj.TLELine1 != "" && jsObj.TLELine2 != "":
			obj.TLELine1 = jsObj.TLELine1
			obj.TLELine2 = jsObj.TLELine2
		default:
			return nil, fmt.Errorf("LoadScenario: object %q has neither elements nor a TLE", jsObj.ID)
		}
		scenario.Objects = append(scenario.Objects, obj)
	}

	for _, jsSt := range payload.Stations {
		if jsSt.ID == "" {
			return nil, fmt.Errorf("LoadScenario: station with empty id")
		}
		st := model.RadarStation{
			ID:              jsSt.ID,
			Name:            jsSt.Name,
			MinElevationDeg: jsSt.MinElevationDeg,
			MaxRangeKm:      jsSt.MaxRangeKm,
			FieldOfRegard: model.FieldOfRegard{
				MinAzimuthDeg: jsSt.MinAzimuthDeg,
				MaxAzimuthDeg: jsSt.MaxAzimuthDeg,
			},
		}
		if jsSt.Position != nil {
			st.Position = model.Vec3{X: jsSt.Position.X, Y: jsSt.Position.Y, Z: jsSt.Position.Z}
		}
		if jsSt.Geodetic != nil {
			st.Geodetic = &model.GeodeticPosition{
				LatDeg: jsSt.Geodetic.LatDeg,
				LonDeg: jsSt.Geodetic.LonDeg,
				AltKm:  jsSt.Geodetic.AltKm,
			}
		}
		scenario.Stations = append(scenario.Stations, st)
	}

	return scenario, nil
}

// SaveScenario writes the scenario back out as JSON. Only bounds and
// definitions are persisted, never frames.
func SaveScenario(w io.Writer, s *Scenario) error {
	if s == nil {
		return fmt.Errorf("SaveScenario: scenario is nil")
	}

	payload := scenarioJSON{
		Objects:  make([]scenarioObjectJSON, 0, len(s.Objects)),
		Stations: make([]scenarioStationJSON, 0, len(s.Stations)),
		Bounds:   scenarioBoundsJSON{Start: s.Start, End: s.End},
	}

	for _, obj := range s.Objects {
		jsObj := scenarioObjectJSON{ID: obj.ID, TLELine1: obj.TLELine1, TLELine2: obj.TLELine2}
		if el := obj.Elements; el != nil {
			jsObj.Elements = &elementsJSON{
				Epoch:           el.Epoch,
				SemiMajorAxisKm: el.SemiMajorAxisKm,
				Eccentricity:    el.Eccentricity,
				InclinationDeg:  el.InclinationDeg,
				RAANDeg:         el.RAANDeg,
				ArgPeriapsisDeg: el.ArgPeriapsisDeg,
				MeanAnomalyDeg:  el.MeanAnomalyDeg,
				MuKm3S2:         el.MuKm3S2,
			}
		}
		payload.Objects = append(payload.Objects, jsObj)
	}

	for _, st := range s.Stations {
		jsSt := scenarioStationJSON{
			ID:              st.ID,
			Name:            st.Name,
			MinElevationDeg: st.MinElevationDeg,
			MaxRangeKm:      st.MaxRangeKm,
			MinAzimuthDeg:   st.FieldOfRegard.MinAzimuthDeg,
			MaxAzimuthDeg:   st.FieldOfRegard.MaxAzimuthDeg,
		}
		if st.Position != (model.Vec3{}) {
			jsSt.Position = &positionJSON{X: st.Position.X, Y: st.Position.Y, Z: st.Position.Z}
		}
		if g := st.Geodetic; g != nil {
			jsSt.Geodetic = &geodeticJSON{LatDeg: g.LatDeg, LonDeg: g.LonDeg, AltKm: g.AltKm}
		}
		payload.Stations = append(payload.Stations, jsSt)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

type scenarioBoundsJSON struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BuildOrbits constructs the propagation models for every object in
// the scenario. Element validation errors surface here so a malformed
// definition fails the whole load.
func (s *Scenario) BuildOrbits() ([]Orbit, error) {
	orbits := make([]Orbit, 0, len(s.Objects))
	for _, obj := range s.Objects {
		switch {
		case obj.Elements != nil:
			orbit, err := NewKeplerOrbit(*obj.Elements)
			if err != nil {
				return nil, fmt.Errorf("object %q: %w", obj.ID, err)
			}
			orbits = append(orbits, orbit)
		default:
			orbits = append(orbits, NewSGP4OrbitFromTLE(obj.ID, obj.TLELine1, obj.TLELine2))
		}
	}
	return orbits, nil
}

// BuildStations pairs every station definition with its locator.
func (s *Scenario) BuildStations() []StationEntry {
	entries := make([]StationEntry, 0, len(s.Stations))
	for _, st := range s.Stations {
		entries = append(entries, StationEntry{Station: st, Locator: NewStationLocator(st)})
	}
	return entries
}
