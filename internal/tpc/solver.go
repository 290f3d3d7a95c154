package tpc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Bounds on the free solver parameters (§4.8): polar and azimuthal angle in
// degrees (converted to radians at the ODE boundary), Brho in T*m.
const (
	polarMinDeg     = 0.0
	polarMaxDeg     = 180.0
	azimuthalMinDeg = 0.0
	azimuthalMaxDeg = 360.0
	brhoMin         = 0.0
	brhoMax         = 5.0
)

// Solve runs C8: refines an estimator InitialValue by minimizing, via
// Nelder-Mead simplex search, the mean distance between the simulated
// trajectory and the cluster's points. The vertex is held fixed; polar
// angle, azimuthal angle (both in degrees within the minimizer, converted to
// radians at the ODE boundary), and Brho are free parameters, bounded to
// [0,180], [0,360), and [0,5] respectively via a penalty wrapper, since
// gonum's NelderMead has no native box-constraint support.
func Solve(cluster Cluster, seed InitialValue, nucleus Nucleus, det DetectorParams, gas StoppingTable, params SolverParams) (SolverResult, error) {
	objectiveFn := func(x []float64) float64 {
		polarDeg, azimuthalDeg, brho := x[0], x[1], x[2]
		if penalty, violated := boundsPenalty(polarDeg, brho); violated {
			return penalty
		}

		trial := InitialValue{
			Vertex:    seed.Vertex,
			Polar:     polarDeg * math.Pi / 180.0,
			Azimuthal: wrapDegrees(azimuthalDeg) * math.Pi / 180.0,
			Brho:      brho,
			Direction: seed.Direction,
		}
		trajectory, aborted := SimulateTrajectory(trial, nucleus, det, gas, params)
		if aborted {
			return math.Inf(1)
		}
		return TrajectoryObjective(cluster, trajectory)
	}

	problem := optimize.Problem{Func: objectiveFn}
	initX := []float64{
		seed.Polar * 180.0 / math.Pi,
		seed.Azimuthal * 180.0 / math.Pi,
		seed.Brho,
	}

	result, err := optimize.Minimize(problem, initX, &optimize.Settings{
		MajorIterations: params.MaxIterations,
		FuncEvaluations: params.MaxIterations * 10,
	}, &optimize.NelderMead{})
	if err != nil && result == nil {
		return SolverResult{}, fmt.Errorf("tpc: solver failed to converge: %w", err)
	}

	refined := InitialValue{
		Vertex:    seed.Vertex,
		Polar:     clamp(result.X[0], polarMinDeg, polarMaxDeg) * math.Pi / 180.0,
		Azimuthal: wrapDegrees(result.X[1]) * math.Pi / 180.0,
		Brho:      clamp(result.X[2], brhoMin, brhoMax),
		Direction: seed.Direction,
	}

	return SolverResult{
		EventID:      cluster.EventID,
		ClusterIndex: cluster.ClusterIndex,
		ClusterLabel: cluster.Label,
		InitialValue: refined,
		Objective:    result.F,
	}, nil
}

// boundsPenalty reports a large, distance-scaled penalty for a trial that
// violates the hard polar/Brho bounds. Azimuthal is periodic and is instead
// wrapped into [0,360) by wrapDegrees, never penalized.
func boundsPenalty(polarDeg, brho float64) (float64, bool) {
	var penalty float64
	violated := false
	if polarDeg < polarMinDeg {
		penalty += polarMinDeg - polarDeg
		violated = true
	} else if polarDeg > polarMaxDeg {
		penalty += polarDeg - polarMaxDeg
		violated = true
	}
	if brho < brhoMin {
		penalty += (brhoMin - brho) * 100
		violated = true
	} else if brho > brhoMax {
		penalty += (brho - brhoMax) * 100
		violated = true
	}
	if !violated {
		return 0, false
	}
	return 1e6 + penalty, true
}

// wrapDegrees reduces an angle in degrees to [0, 360).
func wrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, azimuthalMaxDeg)
	if deg < azimuthalMinDeg {
		deg += azimuthalMaxDeg
	}
	return deg
}
