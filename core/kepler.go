package core

import "math"

const (
	twoPi = 2 * math.Pi

	// keplerTolerance is the fixed convergence tolerance for the
	// eccentric-anomaly solve, in radians.
	keplerTolerance = 1e-12

	// keplerMaxIterations is the hard cap on Newton iterations. On
	// non-convergence the best available approximation is returned
	// and flagged; propagation never aborts a replay.
	keplerMaxIterations = 50
)

// normalizeAngle wraps an angle in radians into [0, 2π).
func normalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle, twoPi)
	if wrapped < 0 {
		wrapped += twoPi
	}
	return wrapped
}

// solveEccentricAnomaly solves Kepler's equation M = E − e·sin(E) for
// the eccentric anomaly E via bounded Newton iteration. It returns the
// solution (or the best approximation at the iteration cap) and
// whether the solve converged within tolerance.
func solveEccentricAnomaly(meanAnomaly, eccentricity float64) (float64, bool) {
	return solveKepler(meanAnomaly, eccentricity, keplerMaxIterations, keplerTolerance)
}

func solveKepler(meanAnomaly, eccentricity float64, maxIter int, tol float64) (float64, bool) {
	if eccentricity == 0 {
		return normalizeAngle(meanAnomaly), true
	}

	M := normalizeAngle(meanAnomaly)
	E := keplerInitialGuess(M, eccentricity)
	for i := 0; i < maxIter; i++ {
		f := E - eccentricity*math.Sin(E) - M
		fp := 1 - eccentricity*math.Cos(E)
		delta := f / fp
		E -= delta

		if math.Abs(delta) < tol {
			return normalizeAngle(E), true
		}
	}
	return normalizeAngle(E), false
}

// trueAnomalyFromEccentric converts an eccentric anomaly to the true
// anomaly.
func trueAnomalyFromEccentric(eccentricAnomaly, eccentricity float64) float64 {
	if eccentricity == 0 {
		return normalizeAngle(eccentricAnomaly)
	}

	sinE := math.Sin(eccentricAnomaly)
	cosE := math.Cos(eccentricAnomaly)
	sqrtTerm := math.Sqrt(1 - eccentricity*eccentricity)

	return normalizeAngle(math.Atan2(sqrtTerm*sinE, cosE-eccentricity))
}

// keplerInitialGuess picks a Newton starting point. For nearly
// parabolic orbits the mean anomaly itself is a poor seed.
func keplerInitialGuess(meanAnomaly, eccentricity float64) float64 {
	if eccentricity < 0.8 {
		return meanAnomaly
	}
	if meanAnomaly < math.Pi {
		return meanAnomaly + eccentricity/2
	}
	return meanAnomaly - eccentricity/2
}
