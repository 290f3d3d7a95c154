package tpc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNuclearDataCSV = `Z,A,name,mass_MeV
1,1,p,938.272
1,2,d,1875.613
6,12,12C,11174.862
`

func TestLoadNuclearDataCSVRoundTrip(t *testing.T) {
	m, err := LoadNuclearDataCSV(strings.NewReader(sampleNuclearDataCSV))
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	n, ok := m.Lookup(1, 1)
	require.True(t, ok)
	assert.Equal(t, "p", n.Name)
	assert.InDelta(t, 938.272, n.MassMeV, 1e-6)
}

func TestNuclearDataMapLookupMissing(t *testing.T) {
	m, err := LoadNuclearDataCSV(strings.NewReader(sampleNuclearDataCSV))
	require.NoError(t, err)
	_, ok := m.Lookup(99, 250)
	assert.False(t, ok)
}

func TestNucleusChargeAndMassKg(t *testing.T) {
	n := Nucleus{Z: 1, A: 1, MassMeV: 938.272, Name: "p"}
	assert.InDelta(t, ElementaryCharge, n.Charge(), 1e-30)
	assert.Greater(t, n.MassKg(), 0.0)
}

func TestLoadNuclearDataCSVRejectsEmpty(t *testing.T) {
	_, err := LoadNuclearDataCSV(strings.NewReader(""))
	assert.Error(t, err)
}
