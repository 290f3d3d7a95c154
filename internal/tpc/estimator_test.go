package tpc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticArc builds a cluster of points lying exactly on a circle of the
// given center/radius, spanning a small arc, with z varying linearly in the
// chord distance to the point nearest the beam axis -- a synthetic stand-in
// for a low-momentum proton trajectory's first arc.
func syntheticArc(cx, cy, radius float64, n int, slope, intercept float64) Cluster {
	const thetaSpanDeg = 10.0
	vertexTheta := math.Pi // the circle point nearest the origin sits at theta=180deg when cx>0
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		thetaDeg := 175.0 + float64(i)*thetaSpanDeg/float64(n-1)
		theta := thetaDeg * math.Pi / 180.0
		x := cx + radius*math.Cos(theta)
		y := cy + radius*math.Sin(theta)
		chord := 2 * radius * math.Abs(math.Sin((theta-vertexTheta)/2))
		z := slope*chord + intercept
		pts[i] = Point{X: x, Y: y, Z: z, Charge: 50.0}
	}
	return Cluster{EventID: 1, ClusterIndex: 0, Label: 1, Data: pts}
}

func TestEstimateRecoversSyntheticArc(t *testing.T) {
	cluster := syntheticArc(60, 0, 50, 60, 2.0, 100.0)
	det := DefaultDetectorParams()
	// The arc passes within ~11 mm of the axis; shrink the beam region so the
	// cluster is not rejected as beam.
	det.BeamRegionRadiusMM = 5.0
	params := DefaultEstimateParams()

	initial, diag, err := Estimate(cluster, det, params)
	require.NoError(t, err)

	assert.Equal(t, DirectionForward, initial.Direction)
	assert.InDelta(t, 50.0, diag.Radius, 2.0)
	assert.InDelta(t, 10.0, initial.Vertex.X, 3.0)
	assert.InDelta(t, 0.0, initial.Vertex.Y, 3.0)
	assert.Greater(t, diag.ArcLength, 0.0)
	assert.Greater(t, diag.ChargeDeposit, 0.0)
}

func TestEstimateRejectsTooSmallCluster(t *testing.T) {
	cluster := syntheticArc(60, 0, 50, 10, 2.0, 100.0)
	_, _, err := Estimate(cluster, DefaultDetectorParams(), DefaultEstimateParams())
	assert.ErrorIs(t, err, ErrClusterTooSmall)
}

func TestEstimateRejectsBeamContamination(t *testing.T) {
	pts := make([]Point, 60)
	for i := range pts {
		pts[i] = Point{X: 1.0, Y: 1.0, Z: float64(i), Charge: 10}
	}
	cluster := Cluster{EventID: 1, Data: pts}
	_, _, err := Estimate(cluster, DefaultDetectorParams(), DefaultEstimateParams())
	assert.ErrorIs(t, err, ErrBeamContamination)
}

func TestEstimateRejectsVertexOutOfRange(t *testing.T) {
	cluster := syntheticArc(60, 0, 50, 60, 2.0, 100.0)
	params := DefaultEstimateParams()
	params.MaxDistanceFromBeamAxis = 1.0
	det := DefaultDetectorParams()
	det.BeamRegionRadiusMM = 5.0
	_, _, err := Estimate(cluster, det, params)
	assert.ErrorIs(t, err, ErrVertexOutOfRange)
}

func TestInferDirectionNoneOnShortOverlap(t *testing.T) {
	pts := make([]Point, 10)
	for i := range pts {
		pts[i] = Point{X: float64(i), Y: 0, Z: 0}
	}
	assert.Equal(t, DirectionNone, inferDirection(pts))
}
