package tpc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeTraceFindsGaussianPeak(t *testing.T) {
	const n = 512
	samples := make([]float64, n)
	for i := range samples {
		x := float64(i - 256)
		samples[i] = 300.0 * math.Exp(-x*x/(2*10*10))
	}

	trace := AnalyzeTrace(samples, DefaultTraceParams())

	require.Len(t, trace.Peaks, 1)
	peak := trace.Peaks[0]
	assert.InDelta(t, 256.0, peak.Centroid, 2.0)
	assert.Greater(t, peak.Amplitude, 200.0)
	assert.Greater(t, peak.Integral, 0.0)
}

func TestAnalyzeTraceFlatTraceHasNoPeaks(t *testing.T) {
	samples := make([]float64, 256)
	trace := AnalyzeTrace(samples, DefaultTraceParams())
	assert.Empty(t, trace.Peaks)
}

func TestAnalyzeTraceRespectsPeakSeparation(t *testing.T) {
	const n = 512
	samples := make([]float64, n)
	for i := range samples {
		x1 := float64(i - 200)
		x2 := float64(i - 210)
		samples[i] = 300.0*math.Exp(-x1*x1/(2*5*5)) + 280.0*math.Exp(-x2*x2/(2*5*5))
	}
	params := DefaultTraceParams()
	params.PeakSeparation = 50

	trace := AnalyzeTrace(samples, params)
	assert.Len(t, trace.Peaks, 1)
}

func TestAnalyzeTraceMatrixMatchesPerColumn(t *testing.T) {
	const n = 256
	col1 := make([]float64, n)
	col2 := make([]float64, n)
	for i := range col1 {
		x := float64(i - 128)
		col1[i] = 100.0 * math.Exp(-x*x/(2*8*8))
		col2[i] = 0
	}
	traces := AnalyzeTraceMatrix([][]float64{col1, col2}, DefaultTraceParams())
	require.Len(t, traces, 2)
	assert.Equal(t, AnalyzeTrace(col1, DefaultTraceParams()), traces[0])
	assert.Equal(t, AnalyzeTrace(col2, DefaultTraceParams()), traces[1])
	assert.NotEmpty(t, traces[0].Peaks)
	assert.Empty(t, traces[1].Peaks)
}
