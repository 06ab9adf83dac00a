package model

import "time"

// ObjectState is the propagated state of one object at one simulated
// instant: position and velocity in the shared inertial frame.
// Value type, produced fresh per query and never mutated afterwards.
type ObjectState struct {
	ObjectID string
	Time     time.Time

	Position Vec3 // km
	Velocity Vec3 // km/s

	// PrecisionWarning marks a state whose eccentric-anomaly solve did
	// not converge within the iteration cap. The state is the best
	// available approximation; playback continues.
	PrecisionWarning bool
}
