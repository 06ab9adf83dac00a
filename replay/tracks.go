package replay

import (
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/radar-replay/core"
)

// TrackStatus is the lifecycle state of one station×object track.
type TrackStatus int

const (
	// TrackNew marks the first frame in which the pair became visible.
	TrackNew TrackStatus = iota
	// TrackUpdated marks a pair visible in consecutive frames.
	TrackUpdated
	// TrackCoasted marks a recently-visible pair currently out of
	// sight, held for a bounded number of frames.
	TrackCoasted
)

func (s TrackStatus) String() string {
	switch s {
	case TrackNew:
		return "new"
	case TrackUpdated:
		return "updated"
	case TrackCoasted:
		return "coasted"
	default:
		return "invalid"
	}
}

const defaultCoastBudget = 5

type trackKey struct {
	stationID string
	objectID  string
}

// TrackState is one live track as seen by the monitor.
type TrackState struct {
	StationID string
	ObjectID  string
	Status    TrackStatus
	Since     time.Time // when the track entered its current status

	coastFrames int
}

// TrackMonitor derives track continuity from the frames the controller
// presents, in presentation order. It lives outside the pure frame
// path: frames stay deterministic functions of time while the monitor
// carries the cross-frame lifecycle (new → updated → coasted →
// dropped). A seek is a discontinuity, so the controller resets it.
type TrackMonitor struct {
	mu          sync.Mutex
	coastBudget int
	tracks      map[trackKey]*TrackState
}

// NewTrackMonitor creates a monitor that coasts lost tracks for
// coastBudget frames before dropping them. Non-positive uses the
// default.
func NewTrackMonitor(coastBudget int) *TrackMonitor {
	if coastBudget <= 0 {
		coastBudget = defaultCoastBudget
	}
	return &TrackMonitor{
		coastBudget: coastBudget,
		tracks:      make(map[trackKey]*TrackState),
	}
}

// ObserveFrame folds one presented frame into the track table.
func (m *TrackMonitor) ObserveFrame(frame *core.Frame) {
	if frame == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[trackKey]bool, len(frame.Detections))
	for _, det := range frame.Detections {
		key := trackKey{stationID: det.StationID, objectID: det.ObjectID}
		seen[key] = true
		if !det.Visible {
			continue
		}

		track, ok := m.tracks[key]
		if !ok {
			m.tracks[key] = &TrackState{
				StationID: det.StationID,
				ObjectID:  det.ObjectID,
				Status:    TrackNew,
				Since:     frame.Time,
			}
			continue
		}
		if track.Status != TrackUpdated {
			track.Since = frame.Time
		}
		track.Status = TrackUpdated
		track.coastFrames = 0
	}

	for key, track := range m.tracks {
		if !seen[key] {
			// Pair no longer part of the session.
			delete(m.tracks, key)
			continue
		}
		visible := false
		for _, det := range frame.Detections {
			if det.StationID == key.stationID && det.ObjectID == key.objectID {
				visible = det.Visible
				break
			}
		}
		if visible {
			continue
		}
		if track.Status != TrackCoasted {
			track.Status = TrackCoasted
			track.Since = frame.Time
			track.coastFrames = 0
		}
		track.coastFrames++
		if track.coastFrames > m.coastBudget {
			delete(m.tracks, key)
		}
	}
}

// Tracks returns the live tracks ordered by station then object ID.
func (m *TrackMonitor) Tracks() []TrackState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TrackState, 0, len(m.tracks))
	for _, track := range m.tracks {
		out = append(out, *track)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StationID != out[j].StationID {
			return out[i].StationID < out[j].StationID
		}
		return out[i].ObjectID < out[j].ObjectID
	})
	return out
}

// Reset clears all track state, e.g. across a seek discontinuity.
func (m *TrackMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = make(map[trackKey]*TrackState)
}
