package core

import (
	"math"
	"testing"
)

func TestSolveEccentricAnomaly_CircularIdentity(t *testing.T) {
	// For e=0 Kepler's equation degenerates to E = M.
	for _, m := range []float64{0, 0.5, math.Pi, 5.5} {
		e, converged := solveEccentricAnomaly(m, 0)
		if !converged {
			t.Fatalf("circular solve at M=%f did not converge", m)
		}
		if math.Abs(e-m) > 1e-15 {
			t.Fatalf("circular orbit: E=%v, want M=%v", e, m)
		}
	}
}

func TestSolveEccentricAnomaly_SatisfiesKeplersEquation(t *testing.T) {
	eccentricities := []float64{0.001, 0.1, 0.5, 0.9, 0.99}
	anomalies := []float64{0.1, 1.0, 2.0, math.Pi, 4.0, 6.0}

	for _, ecc := range eccentricities {
		for _, m := range anomalies {
			e, converged := solveEccentricAnomaly(m, ecc)
			if !converged {
				t.Fatalf("solve did not converge for e=%f M=%f", ecc, m)
			}
			back := normalizeAngle(e - ecc*math.Sin(e))
			if math.Abs(back-normalizeAngle(m)) > 1e-10 {
				t.Fatalf("e=%f M=%f: E - e·sin(E) = %v, want %v", ecc, m, back, normalizeAngle(m))
			}
		}
	}
}

func TestSolveKepler_IterationCapReturnsBestApproximation(t *testing.T) {
	// A single Newton step cannot reach tolerance for a highly
	// eccentric orbit; the solver must still return a usable value and
	// report non-convergence rather than aborting.
	e, converged := solveKepler(2.5, 0.95, 1, 1e-15)
	if converged {
		t.Fatalf("expected non-convergence within one iteration")
	}
	if math.IsNaN(e) || math.IsInf(e, 0) {
		t.Fatalf("non-converged solve returned unusable value %v", e)
	}
	if e < 0 || e >= 2*math.Pi {
		t.Fatalf("non-converged solve returned unnormalized angle %v", e)
	}
}

func TestNormalizeAngle_WrapsIntoRange(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{2 * math.Pi, 0},
		{-math.Pi / 2, 3 * math.Pi / 2},
		{5 * math.Pi, math.Pi},
	}
	for _, c := range cases {
		if got := normalizeAngle(c.in); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("normalizeAngle(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestTrueAnomalyFromEccentric_MatchesAtApsides(t *testing.T) {
	// True and eccentric anomaly coincide at periapsis and apoapsis
	// for any eccentricity.
	for _, ecc := range []float64{0, 0.3, 0.7} {
		if got := trueAnomalyFromEccentric(0, ecc); math.Abs(got) > 1e-12 {
			t.Fatalf("e=%f: true anomaly at periapsis = %v, want 0", ecc, got)
		}
		if got := trueAnomalyFromEccentric(math.Pi, ecc); math.Abs(got-math.Pi) > 1e-12 {
			t.Fatalf("e=%f: true anomaly at apoapsis = %v, want π", ecc, got)
		}
	}
}
