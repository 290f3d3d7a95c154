package tpc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveImprovesOnSeedObjective(t *testing.T) {
	nucleus := Nucleus{Z: 1, A: 1, MassMeV: 938.272, Name: "p"}
	det := DefaultDetectorParams()
	det.ElectricFieldVPerM = 0
	gas := constantStoppingTable{value: 0}

	params := DefaultSolverParams()
	params.TimeSpanSeconds = 1e-9
	params.EvalGridSpacingSeconds = 1e-10

	truth := InitialValue{
		Vertex:    Vertex3{X: 0, Y: 0, Z: 0},
		Brho:      0.5,
		Polar:     1.3,
		Azimuthal: 0.2,
	}
	trajectory, aborted := SimulateTrajectory(truth, nucleus, det, gas, params)
	require.False(t, aborted)
	require.NotEmpty(t, trajectory)

	var data []Point
	for i, v := range trajectory {
		if i%5 != 0 {
			continue
		}
		data = append(data, Point{X: v.X, Y: v.Y, Z: v.Z, Charge: 10})
	}
	require.NotEmpty(t, data)
	cluster := Cluster{EventID: 1, ClusterIndex: 0, Label: 1, Data: data}

	seed := InitialValue{
		Vertex:    truth.Vertex,
		Brho:      0.45,
		Polar:     1.25,
		Azimuthal: 0.15,
	}
	seedTrajectory, _ := SimulateTrajectory(seed, nucleus, det, gas, params)
	seedObjective := TrajectoryObjective(cluster, seedTrajectory)

	result, err := Solve(cluster, seed, nucleus, det, gas, params)
	require.NoError(t, err)

	assert.False(t, math.IsInf(result.Objective, 1))
	assert.LessOrEqual(t, result.Objective, seedObjective+1e-6)
	assert.Equal(t, cluster.EventID, result.EventID)
	assert.Equal(t, cluster.ClusterIndex, result.ClusterIndex)
	assert.Equal(t, cluster.Label, result.ClusterLabel)
}
