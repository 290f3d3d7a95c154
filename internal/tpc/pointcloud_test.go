package tpc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPointCloudEndToEnd(t *testing.T) {
	padMap := NewPadMap()
	padMap.entries[0] = PadEntry{X: 10.0, Y: 0.0, Ring: 1, Scale: 1.0}
	padMap.entries[1] = PadEntry{X: 0.0, Y: 0.0, Ring: 0, Scale: 1.0}

	grid := NewDriftCorrectionGrid() // all-zero correction: no drift shift

	const n = 512
	samples := make([]float64, n)
	for i := range samples {
		x := float64(i - 256)
		samples[i] = 300.0 * math.Exp(-x*x/(2*10*10))
	}

	frame := EventFrame{
		EventID: 7,
		PadTraces: []PadTrace{
			{PadID: 0, Samples: samples},
			{PadID: 1, Samples: make([]float64, n)}, // flat trace, no peaks
			{PadID: InvalidPadID, Samples: samples},  // skipped: invalid pad
			{PadID: 999, Samples: samples},           // skipped: unmapped pad
		},
	}

	det := DefaultDetectorParams()
	cloud := BuildPointCloud(frame, padMap, grid, DefaultTraceParams(), det)

	require.Len(t, cloud.Points, 1)
	p := cloud.Points[0]
	assert.Equal(t, 0, p.PadID)
	assert.InDelta(t, 10.0, p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)
	assert.Greater(t, p.Charge, 0.0)
	assert.Equal(t, 7, cloud.EventID)
}

func TestBuildPointCloudEmptyFrameProducesNoPoints(t *testing.T) {
	padMap := NewPadMap()
	grid := NewDriftCorrectionGrid()
	cloud := BuildPointCloud(EventFrame{EventID: 1}, padMap, grid, DefaultTraceParams(), DefaultDetectorParams())
	assert.Empty(t, cloud.Points)
}
