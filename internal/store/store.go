// Package store persists the reconstruction pipeline's intermediate and
// final per-event records (§6): point clouds, clusters, and solver results.
package store

import (
	"context"

	"github.com/nscl-frib/spyralgo/internal/tpc"
)

// PointCloudStore persists and retrieves per-event point clouds (C4 output).
type PointCloudStore interface {
	SavePointCloud(ctx context.Context, runID string, cloud tpc.PointCloud) error
	LoadPointCloud(ctx context.Context, runID string, eventID int) (tpc.PointCloud, bool, error)
}

// ClusterStore persists and retrieves per-event clusters (C5 output).
type ClusterStore interface {
	SaveClusters(ctx context.Context, runID string, eventID int, clusters []tpc.Cluster) error
	LoadClusters(ctx context.Context, runID string, eventID int) ([]tpc.Cluster, error)
}

// ResultStore persists the final per-cluster solver results (C8 output).
type ResultStore interface {
	SaveResult(ctx context.Context, runID string, result tpc.SolverResult) error
	LoadResults(ctx context.Context, runID string) ([]tpc.SolverResult, error)
}

// Store is the full persistence surface the run driver depends on.
type Store interface {
	PointCloudStore
	ClusterStore
	ResultStore
	Close() error
}
