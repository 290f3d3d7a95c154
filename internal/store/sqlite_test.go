package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nscl-frib/spyralgo/internal/tpc"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSavePointCloudRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	cloud := tpc.PointCloud{
		EventID: 42,
		Points:  []tpc.Point{{X: 1, Y: 2, Z: 3, Charge: 10, PadID: 5}},
	}
	if err := st.SavePointCloud(ctx, "run-1", cloud); err != nil {
		t.Fatalf("SavePointCloud: %v", err)
	}

	got, ok, err := st.LoadPointCloud(ctx, "run-1", 42)
	if err != nil {
		t.Fatalf("LoadPointCloud: %v", err)
	}
	if !ok {
		t.Fatal("expected point cloud to be found")
	}
	if len(got.Points) != 1 || got.Points[0].X != 1 {
		t.Errorf("LoadPointCloud() = %+v, want one point at X=1", got)
	}
}

func TestLoadPointCloudMissingIsNotFound(t *testing.T) {
	st := openTestStore(t)
	_, ok, err := st.LoadPointCloud(context.Background(), "run-1", 999)
	if err != nil {
		t.Fatalf("LoadPointCloud: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a missing point cloud")
	}
}

func TestSavePointCloudUpsertsOnConflict(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	cloud := tpc.PointCloud{EventID: 1, Points: []tpc.Point{{X: 1}}}
	if err := st.SavePointCloud(ctx, "run-1", cloud); err != nil {
		t.Fatalf("SavePointCloud (first): %v", err)
	}
	cloud.Points = []tpc.Point{{X: 9}, {X: 10}}
	if err := st.SavePointCloud(ctx, "run-1", cloud); err != nil {
		t.Fatalf("SavePointCloud (second): %v", err)
	}

	got, ok, err := st.LoadPointCloud(ctx, "run-1", 1)
	if err != nil || !ok {
		t.Fatalf("LoadPointCloud: ok=%v err=%v", ok, err)
	}
	if len(got.Points) != 2 {
		t.Errorf("expected the upsert to replace the point cloud, got %d points", len(got.Points))
	}
}

func TestSaveClustersReplacesPriorClusters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	first := []tpc.Cluster{
		{ClusterIndex: 0, Label: 1, Data: []tpc.Point{{X: 1}, {X: 2}}},
		{ClusterIndex: 1, Label: 2, Data: []tpc.Point{{X: 3}}},
	}
	if err := st.SaveClusters(ctx, "run-1", 7, first); err != nil {
		t.Fatalf("SaveClusters (first): %v", err)
	}

	second := []tpc.Cluster{
		{ClusterIndex: 0, Label: 9, Data: []tpc.Point{{X: 100}}},
	}
	if err := st.SaveClusters(ctx, "run-1", 7, second); err != nil {
		t.Fatalf("SaveClusters (second): %v", err)
	}

	got, err := st.LoadClusters(ctx, "run-1", 7)
	if err != nil {
		t.Fatalf("LoadClusters: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected SaveClusters to replace, got %d clusters", len(got))
	}
	if got[0].Label != 9 || len(got[0].Data) != 1 || got[0].Data[0].X != 100 {
		t.Errorf("LoadClusters() = %+v, want the replaced cluster", got[0])
	}
}

func TestLoadClustersOrderedByClusterIndex(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	clusters := []tpc.Cluster{
		{ClusterIndex: 2, Label: 1, Data: []tpc.Point{{X: 1}}},
		{ClusterIndex: 0, Label: 2, Data: []tpc.Point{{X: 2}}},
		{ClusterIndex: 1, Label: 3, Data: []tpc.Point{{X: 3}}},
	}
	if err := st.SaveClusters(ctx, "run-1", 1, clusters); err != nil {
		t.Fatalf("SaveClusters: %v", err)
	}

	got, err := st.LoadClusters(ctx, "run-1", 1)
	if err != nil {
		t.Fatalf("LoadClusters: %v", err)
	}
	for i, c := range got {
		if c.ClusterIndex != i {
			t.Errorf("LoadClusters()[%d].ClusterIndex = %d, want %d", i, c.ClusterIndex, i)
		}
	}
}

func TestSaveAndLoadResults(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	result := tpc.SolverResult{
		EventID:      3,
		ClusterIndex: 0,
		ClusterLabel: 1,
		InitialValue: tpc.InitialValue{
			Vertex:    tpc.Vertex3{X: 1, Y: 2, Z: 3},
			Brho:      0.5,
			Polar:     1.2,
			Azimuthal: 0.3,
			Direction: tpc.DirectionForward,
		},
		Objective: 2.5,
	}
	if err := st.SaveResult(ctx, "run-1", result); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	results, err := st.LoadResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := results[0]
	if got.EventID != 3 || got.Brho != 0.5 || got.Direction != tpc.DirectionForward {
		t.Errorf("LoadResults()[0] = %+v, want the saved result", got)
	}
}

func TestLoadResultsScopedByRunID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.SaveResult(ctx, "run-a", tpc.SolverResult{EventID: 1}); err != nil {
		t.Fatalf("SaveResult run-a: %v", err)
	}
	if err := st.SaveResult(ctx, "run-b", tpc.SolverResult{EventID: 2}); err != nil {
		t.Fatalf("SaveResult run-b: %v", err)
	}

	results, err := st.LoadResults(ctx, "run-a")
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if len(results) != 1 || results[0].EventID != 1 {
		t.Errorf("LoadResults(run-a) = %+v, want only the run-a result", results)
	}
}
