package tpc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrajectoryObjectiveZeroForExactMatch(t *testing.T) {
	cluster := Cluster{Data: []Point{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}}}
	trajectory := []Vertex3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}}
	assert.InDelta(t, 0.0, TrajectoryObjective(cluster, trajectory), 1e-12)
}

func TestTrajectoryObjectivePositiveForOffsetCluster(t *testing.T) {
	cluster := Cluster{Data: []Point{{X: 0, Y: 5, Z: 0}}}
	trajectory := []Vertex3{{X: 0, Y: 0, Z: 0}}
	assert.InDelta(t, 5.0, TrajectoryObjective(cluster, trajectory), 1e-9)
}

func TestTrajectoryObjectiveInfiniteOnEmptyInput(t *testing.T) {
	assert.True(t, math.IsInf(TrajectoryObjective(Cluster{}, []Vertex3{{X: 0}}), 1))
	assert.True(t, math.IsInf(TrajectoryObjective(Cluster{Data: []Point{{X: 0}}}, nil), 1))
}

func TestSimulateTrajectoryStartsAtVertex(t *testing.T) {
	nucleus := Nucleus{Z: 1, A: 1, MassMeV: 938.272, Name: "p"}
	det := DefaultDetectorParams()
	gas := constantStoppingTable{value: 0}
	initial := InitialValue{
		Vertex:    Vertex3{X: 0, Y: 0, Z: 0},
		Brho:      0.5,
		Polar:     math.Pi / 2,
		Azimuthal: 0,
	}
	params := DefaultSolverParams()
	params.TimeSpanSeconds = 1e-9
	params.EvalGridSpacingSeconds = 1e-10

	traj, aborted := SimulateTrajectory(initial, nucleus, det, gas, params)
	assert.False(t, aborted)
	if assert.NotEmpty(t, traj) {
		assert.InDelta(t, 0.0, traj[0].X, 1e-9)
		assert.InDelta(t, 0.0, traj[0].Y, 1e-9)
		assert.InDelta(t, 0.0, traj[0].Z, 1e-9)
	}
}
