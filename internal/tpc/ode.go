package tpc

import "math"

// TrajectoryState is the ODE state vector integrated by C8: position (m)
// and velocity (m/s) in the lab frame, with the magnetic field along +z.
type TrajectoryState struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// EquationsOfMotion evaluates the Lorentz force plus a gas-drag
// deceleration opposing velocity, entirely in SI units. The deceleration
// term comes from a tabulated dE/dx (gastable.go) evaluated at the
// particle's instantaneous kinetic energy.
type EquationsOfMotion struct {
	Charge            float64 // C
	MassKg            float64
	RestMassMeV       float64
	BFieldT           float64 // T, along +z
	EFieldVPerM       float64 // V/m, along +z
	GasDensityGPerCm3 float64
	Stopping          StoppingTable
}

// Derivative returns d(state)/dt at the given state.
func (eom EquationsOfMotion) Derivative(s TrajectoryState) TrajectoryState {
	v := math.Sqrt(s.VX*s.VX + s.VY*s.VY + s.VZ*s.VZ)

	qOverM := eom.Charge / eom.MassKg
	ax := qOverM * s.VY * eom.BFieldT
	ay := qOverM * -s.VX * eom.BFieldT
	az := qOverM * eom.EFieldVPerM

	if v > 0 && eom.Stopping != nil {
		ekin := KineticEnergyMeV(eom.RestMassMeV, v)
		decel := StoppingDeceleration(eom.Stopping, ekin, eom.GasDensityGPerCm3, eom.MassKg)
		ax -= decel * s.VX / v
		ay -= decel * s.VY / v
		az -= decel * s.VZ / v
	}

	return TrajectoryState{X: s.VX, Y: s.VY, Z: s.VZ, VX: ax, VY: ay, VZ: az}
}

func addState(a, b TrajectoryState, scale float64) TrajectoryState {
	return TrajectoryState{
		X: a.X + scale*b.X, Y: a.Y + scale*b.Y, Z: a.Z + scale*b.Z,
		VX: a.VX + scale*b.VX, VY: a.VY + scale*b.VY, VZ: a.VZ + scale*b.VZ,
	}
}

func stateNorm(s TrajectoryState) float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z + s.VX*s.VX + s.VY*s.VY + s.VZ*s.VZ)
}

// Dormand-Prince RK45 (ode45-style) Butcher tableau.
var (
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	dpB5 = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
	dpB4 = [7]float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}
)

// IntegrateRK45 integrates the equations of motion from t=0 to tSpan
// seconds using an adaptive Dormand-Prince RK45 step capped at maxStep,
// sampling the trajectory every gridSpacing seconds of simulated time.
// Integration stops early once the particle's speed reaches zero (fully
// ranged out in gas), or aborts (aborted=true) the instant the particle's
// kinetic energy leaves [MinPhysicalKineticEnergyMeV,
// MaxPhysicalKineticEnergyMeV] -- stopped or unphysical, respectively. There
// is no gonum ODE solver in the dependency set; this is a small hand-rolled
// adaptive-step integrator.
func IntegrateRK45(eom EquationsOfMotion, initial TrajectoryState, tSpan, maxStep, gridSpacing float64) (samples []TrajectoryState, aborted bool) {
	const (
		safety  = 0.9
		minStep = 1e-14
		tol     = 1e-6
	)

	outOfBounds := func(s TrajectoryState) bool {
		speed := math.Sqrt(s.VX*s.VX + s.VY*s.VY + s.VZ*s.VZ)
		ekin := KineticEnergyMeV(eom.RestMassMeV, speed)
		return ekin < MinPhysicalKineticEnergyMeV || ekin > MaxPhysicalKineticEnergyMeV
	}

	samples = []TrajectoryState{initial}
	if outOfBounds(initial) {
		return samples, true
	}

	state := initial
	t := 0.0
	step := math.Min(maxStep, gridSpacing)
	nextSample := gridSpacing

	for t < tSpan {
		if step > maxStep {
			step = maxStep
		}
		if t+step > tSpan {
			step = tSpan - t
		}
		if step <= 0 {
			break
		}

		var k [7]TrajectoryState
		k[0] = eom.Derivative(state)
		for i := 1; i < 7; i++ {
			trial := state
			for j := 0; j < i; j++ {
				trial = addState(trial, k[j], step*dpA[i][j])
			}
			k[i] = eom.Derivative(trial)
		}

		y5, y4 := state, state
		for i := 0; i < 7; i++ {
			y5 = addState(y5, k[i], step*dpB5[i])
			y4 = addState(y4, k[i], step*dpB4[i])
		}

		errEstimate := stateNorm(addState(y5, y4, -1))
		scale := tol / (errEstimate + 1e-300)
		factor := safety * math.Pow(scale, 0.2)
		factor = math.Max(0.2, math.Min(5.0, factor))

		accepted := errEstimate <= tol || step <= minStep
		if accepted {
			t += step
			state = y5
			for t >= nextSample-1e-15 {
				samples = append(samples, state)
				nextSample += gridSpacing
			}
			speed := math.Sqrt(state.VX*state.VX + state.VY*state.VY + state.VZ*state.VZ)
			if speed <= 0 {
				break
			}
			if outOfBounds(state) {
				return samples, true
			}
		}
		step *= factor
		if step < minStep {
			step = minStep
		}
	}

	return samples, false
}
