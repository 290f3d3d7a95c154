package tpc

import "errors"

// Soft per-cluster failures (§7). The run driver skips the cluster, emits
// nothing, and increments a counter; nothing is retried.
var (
	ErrClusterTooSmall     = errors.New("tpc: cluster has fewer than the minimum trajectory points")
	ErrBeamContamination   = errors.New("tpc: cluster is dominated by the beam region")
	ErrDegenerateCircleFit = errors.New("tpc: circle fit is degenerate (collinear points)")
	ErrVertexOutOfRange    = errors.New("tpc: reconstructed vertex is too far from the beam axis")
	ErrZeroArcLength       = errors.New("tpc: first arc has zero length")
	ErrNoPoints            = errors.New("tpc: point cloud is empty")
)
