package tpc

import "math"

// PhysicsConstants bundles the module-level constants the original analysis
// carried as free globals (c, m_u, elementary charge). Passed explicitly
// into the solver instead of living as process-wide state, per the design
// note on shared module-level constants.
type PhysicsConstants struct {
	SpeedOfLight float64 // m/s, CODATA 2022
	AmuToMeV     float64 // MeV/c^2 per unified atomic mass unit
}

// DefaultPhysicsConstants returns the standard CODATA values used throughout
// the reconstruction.
func DefaultPhysicsConstants() PhysicsConstants {
	return PhysicsConstants{
		SpeedOfLight: SpeedOfLight,
		AmuToMeV:     AmuToMeV,
	}
}

const (
	// SpeedOfLight in m/s, CODATA 2022.
	SpeedOfLight = 299792458.0
	// AmuToMeV converts a unified atomic mass unit to MeV/c^2.
	AmuToMeV = 931.494028
	// ElementaryCharge in coulombs.
	ElementaryCharge = 1.6021773349e-19
	// MeVToJoule converts MeV to joules.
	MeVToJoule = 1.6021773349e-13
	// MeVToKg converts a mass expressed in MeV/c^2 to kilograms.
	MeVToKg = MeVToJoule / (SpeedOfLight * SpeedOfLight)

	// MinPhysicalKineticEnergyMeV and MaxPhysicalKineticEnergyMeV bound the
	// physically plausible kinetic energy range during trajectory
	// integration (C8). Outside this range the particle is either fully
	// stopped or the trial is unphysical, so integration aborts and the
	// trial is scored as infinitely bad.
	MinPhysicalKineticEnergyMeV = 0.001
	MaxPhysicalKineticEnergyMeV = 50.0
)

// KineticEnergyMeV returns the relativistic kinetic energy (MeV) of a
// particle with rest mass massMeV (MeV/c^2) moving at speed v (m/s).
func KineticEnergyMeV(massMeV, v float64) float64 {
	beta := v / SpeedOfLight
	if beta >= 1.0 {
		return math.Inf(1)
	}
	gamma := 1.0 / math.Sqrt(1.0-beta*beta)
	return massMeV * (gamma - 1.0)
}

// SpeedFromKineticEnergyMeV inverts KineticEnergyMeV: returns the speed
// (m/s) of a particle with rest mass massMeV and kinetic energy ekinMeV.
func SpeedFromKineticEnergyMeV(massMeV, ekinMeV float64) float64 {
	gamma := 1.0 + ekinMeV/massMeV
	beta := math.Sqrt(1.0 - 1.0/(gamma*gamma))
	return beta * SpeedOfLight
}

// BrhoToKineticEnergyMeV converts a magnetic rigidity (T*m) for a nucleus
// of charge Z and mass number A into a kinetic energy in MeV, following
// the relativistic energy-momentum relation used to seed the ODE integrator:
// energy = m_u * (sqrt((Brho/3.107 * Z/A)^2 + 1) - 1).
func BrhoToKineticEnergyMeV(brho float64, z, a int) float64 {
	if a == 0 {
		return 0
	}
	x := (brho / 3.107) * (float64(z) / float64(a))
	return AmuToMeV * (math.Sqrt(x*x+1.0) - 1.0)
}

// StoppingTable is a monotone-in-energy lookup of dE/dx (MeV per g/cm^2) as
// a function of kinetic energy (MeV), linearly interpolated between tabulated
// rows. See gastable.go for construction from a tab-delimited gas file.
type StoppingTable interface {
	// DEdx returns the stopping power (MeV / (g/cm^2)) at the given kinetic
	// energy (MeV). Energies outside the tabulated range are clamped to the
	// nearest edge.
	DEdx(ekinMeV float64) float64
}

// StoppingDeceleration computes s (m/s^2), the drag term in the equation of
// motion, for a particle with kinetic energy ekinMeV (MeV), gas density
// rhoGasGPerCm3 (g/cm^3) and mass massKg (kg), using a tabulated dE/dx.
func StoppingDeceleration(table StoppingTable, ekinMeV, rhoGasGPerCm3, massKg float64) float64 {
	dedx := table.DEdx(ekinMeV) // MeV / (g/cm^2)
	return dedx * 1e3 * MeVToJoule * rhoGasGPerCm3 * 100.0 / massKg
}
