package tpc

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriftCorrectionGridInterpolateExactNode(t *testing.T) {
	grid := NewDriftCorrectionGrid()
	grid.set(0, 0, DriftCorrection{DeltaRho: 1, DeltaTransverse: 2, DeltaT: 3})

	got := grid.Interpolate(0, 0)
	assert.Equal(t, DriftCorrection{DeltaRho: 1, DeltaTransverse: 2, DeltaT: 3}, got)
}

func TestDriftCorrectionGridInterpolateBilinearMidpoint(t *testing.T) {
	grid := NewDriftCorrectionGrid()
	rhoStep := grid.rhoMax / float64(grid.rhoBins-1)
	zStep := grid.zMax / float64(grid.zBins-1)

	grid.set(0, 0, DriftCorrection{DeltaRho: 0})
	grid.set(1, 0, DriftCorrection{DeltaRho: 10})
	grid.set(0, 1, DriftCorrection{DeltaRho: 0})
	grid.set(1, 1, DriftCorrection{DeltaRho: 10})

	got := grid.Interpolate(rhoStep/2, 0)
	assert.InDelta(t, 5.0, got.DeltaRho, 1e-9)
	_ = zStep
}

func TestDriftCorrectionGridInterpolateClampsOutOfRange(t *testing.T) {
	grid := NewDriftCorrectionGrid()
	grid.set(0, 0, DriftCorrection{DeltaRho: 7})

	got := grid.Interpolate(-100, -100)
	assert.Equal(t, 7.0, got.DeltaRho)

	gotHigh := grid.Interpolate(grid.rhoMax+500, grid.zMax+500)
	assert.Equal(t, grid.at(grid.rhoBins-1, grid.zBins-1).DeltaRho, gotHigh.DeltaRho)
}

func TestParseGarfieldFileParsesRows(t *testing.T) {
	data := "0.0 0.0 0.1 0.2 30.0 100.0\n1.0 1.0 1.1 1.2 31.0 101.0\n"
	rows, err := ParseGarfieldFile(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, GarfieldRow{XInitial: 0.0, YInitial: 0.0, XFinal: 0.1, YFinal: 0.2, ZFinal: 30.0, T: 100.0}, rows[0])
}

func TestParseGarfieldFileRejectsShortRows(t *testing.T) {
	_, err := ParseGarfieldFile(strings.NewReader("0.0 0.0 0.1\n"))
	assert.Error(t, err)
}

func TestClampHelper(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-5, 0, 10))
	assert.Equal(t, 10.0, clamp(50, 0, 10))
	assert.Equal(t, 5.0, clamp(5, 0, 10))
}

func TestMinIntMaxIntHelpers(t *testing.T) {
	assert.Equal(t, 2, minInt(2, 5))
	assert.Equal(t, 5, maxInt(2, 5))
}

// buildIdentityGarfieldTable synthesizes a Garfield table for which
// electrons drift straight to their starting radius with no transverse
// shift and no time offset, one 55-row chunk per initial rho in
// rhoInitialsMM (each chunk spanning z_final from 30mm to 1000mm).
func buildIdentityGarfieldTable(rhoInitialsMM []float64) []GarfieldRow {
	var rows []GarfieldRow
	for _, rho := range rhoInitialsMM {
		for i := 0; i < garfieldChunkSize; i++ {
			zMM := 30.0 + float64(i)*(1000.0-30.0)/float64(garfieldChunkSize-1)
			rows = append(rows, GarfieldRow{
				XInitial: rho / 10.0,
				YInitial: rho / 10.0,
				XFinal:   0,
				YFinal:   rho / 10.0,
				ZFinal:   zMM / 10.0,
				T:        0,
			})
		}
	}
	return rows
}

func TestBuildDriftCorrectionGridVertexAtMicromegasIsNearZero(t *testing.T) {
	rows := buildIdentityGarfieldTable([]float64{-270.0, 0.0, 270.0})
	det := DetectorDriftParams{
		DetectorLengthMM:     1000.0,
		MicromegasTimeBucket: 0,
		WindowTimeBucket:     512,
		GETFrequencyMHz:      25.0,
	}

	grid, err := BuildDriftCorrectionGrid(rows, det)
	require.NoError(t, err)

	corr := grid.Interpolate(0, 0)
	mag := math.Sqrt(corr.DeltaRho*corr.DeltaRho + corr.DeltaTransverse*corr.DeltaTransverse)
	assert.Less(t, mag, 1e-3)
}

func TestBuildDriftCorrectionGridRejectsMisshapenTable(t *testing.T) {
	_, err := BuildDriftCorrectionGrid(make([]GarfieldRow, garfieldChunkSize-1), DetectorDriftParams{})
	assert.Error(t, err)
}
