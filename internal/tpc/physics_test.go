package tpc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKineticEnergySpeedRoundTrip(t *testing.T) {
	const massMeV = 938.272

	v := SpeedFromKineticEnergyMeV(massMeV, 50.0)
	ekin := KineticEnergyMeV(massMeV, v)
	assert.InDelta(t, 50.0, ekin, 1e-6)
}

func TestKineticEnergyMeVZeroSpeed(t *testing.T) {
	assert.InDelta(t, 0.0, KineticEnergyMeV(938.272, 0), 1e-12)
}

func TestKineticEnergyMeVSuperluminalIsInfinite(t *testing.T) {
	e := KineticEnergyMeV(938.272, SpeedOfLight*1.5)
	assert.True(t, math.IsInf(e, 1))
}

func TestBrhoToKineticEnergyMeVZeroMassNumber(t *testing.T) {
	assert.Equal(t, 0.0, BrhoToKineticEnergyMeV(1.0, 1, 0))
}

func TestBrhoToKineticEnergyMeVPositive(t *testing.T) {
	e := BrhoToKineticEnergyMeV(0.5, 1, 1)
	assert.Greater(t, e, 0.0)
}

type constantStoppingTable struct{ value float64 }

func (c constantStoppingTable) DEdx(float64) float64 { return c.value }

func TestStoppingDecelerationPositive(t *testing.T) {
	table := constantStoppingTable{value: 2.0}
	s := StoppingDeceleration(table, 5.0, 0.000625, 1.66e-27)
	assert.Greater(t, s, 0.0)
}

func TestStoppingDecelerationZeroDensityIsZero(t *testing.T) {
	table := constantStoppingTable{value: 2.0}
	s := StoppingDeceleration(table, 5.0, 0.0, 1.66e-27)
	assert.Equal(t, 0.0, s)
}
