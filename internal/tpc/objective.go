package tpc

import "math"

// SolverParams configures the C8 trajectory integration and objective
// evaluation.
type SolverParams struct {
	MaxIterations          int
	Tolerance              float64
	MaxStepSeconds         float64 // upper bound on an RK45 step
	TimeSpanSeconds        float64 // total simulated flight time
	EvalGridSpacingSeconds float64 // sampling interval for the objective polyline
}

// DefaultSolverParams returns production-default solver tuning.
func DefaultSolverParams() SolverParams {
	return SolverParams{
		MaxIterations:          2000,
		Tolerance:              1e-3,
		MaxStepSeconds:         1e-1,
		TimeSpanSeconds:        1e-6,
		EvalGridSpacingSeconds: 1e-10,
	}
}

// SimulateTrajectory integrates the equations of motion from an
// InitialValue and returns the resulting polyline in millimetres. aborted is
// true if the trial left the physical kinetic-energy bounds (§4.8/§7): the
// caller should treat such a trial as having an infinite objective.
func SimulateTrajectory(initial InitialValue, nucleus Nucleus, det DetectorParams, gas StoppingTable, params SolverParams) (points []Vertex3, aborted bool) {
	ekin := BrhoToKineticEnergyMeV(initial.Brho, nucleus.Z, nucleus.A)
	speed := SpeedFromKineticEnergyMeV(nucleus.MassMeV, ekin)

	vx := speed * math.Sin(initial.Polar) * math.Cos(initial.Azimuthal)
	vy := speed * math.Sin(initial.Polar) * math.Sin(initial.Azimuthal)
	vz := speed * math.Cos(initial.Polar)

	state := TrajectoryState{
		X:  initial.Vertex.X * 1e-3,
		Y:  initial.Vertex.Y * 1e-3,
		Z:  initial.Vertex.Z * 1e-3,
		VX: vx, VY: vy, VZ: vz,
	}

	eom := EquationsOfMotion{
		Charge:            nucleus.Charge(),
		MassKg:            nucleus.MassKg(),
		RestMassMeV:       nucleus.MassMeV,
		BFieldT:           det.MagneticFieldT,
		EFieldVPerM:       det.ElectricFieldVPerM,
		GasDensityGPerCm3: det.GasDensityGPerCm3,
		Stopping:          gas,
	}

	states, aborted := IntegrateRK45(eom, state, params.TimeSpanSeconds, params.MaxStepSeconds, params.EvalGridSpacingSeconds)

	points = make([]Vertex3, len(states))
	for i, s := range states {
		points[i] = Vertex3{X: s.X * 1e3, Y: s.Y * 1e3, Z: s.Z * 1e3}
	}
	return points, aborted
}

// TrajectoryObjective is the mean distance (mm) from each cluster point to
// its nearest point on the simulated trajectory polyline. A shorter
// trajectory than the cluster (e.g. the particle ranged out early)
// penalizes unmatched cluster points by measuring against the trajectory's
// final point.
func TrajectoryObjective(cluster Cluster, trajectory []Vertex3) float64 {
	if len(trajectory) == 0 || len(cluster.Data) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, p := range cluster.Data {
		best := math.Inf(1)
		for _, v := range trajectory {
			d := distance3(p.X, p.Y, p.Z, v.X, v.Y, v.Z)
			if d < best {
				best = d
			}
		}
		sum += best
	}
	return sum / float64(len(cluster.Data))
}

func distance3(x1, y1, z1, x2, y2, z2 float64) float64 {
	dx, dy, dz := x1-x2, y1-y2, z1-z2
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
