package tpc

import (
	"math"
	"sort"
)

// ClusterParams configures the density-based clusterer (C5). The spec
// treats the clustering algorithm as a black box over (x, y, z) with a
// charge-weighted distance; this is a standard DBSCAN, grounded on the
// same spatial-grid-accelerated DBSCAN the point-cloud pipeline already
// uses for LiDAR foreground clustering, generalised from 2-D (x, y) to
// 3-D (x, y, z) plus a charge term.
type ClusterParams struct {
	Eps            float64 // neighbourhood radius, mm
	MinPts         int     // minimum neighbours to become a core point
	ChargeWeight   float64 // weight applied to normalised charge difference in the distance metric
	MinClusterSize int     // clusters with fewer points than this are dropped (min_total_trajectory_points)
}

// DefaultClusterParams returns production-default clustering tuning.
func DefaultClusterParams() ClusterParams {
	return ClusterParams{
		Eps:            15.0,
		MinPts:         3,
		ChargeWeight:   0.0,
		MinClusterSize: 50,
	}
}

// spatialIndex accelerates neighbourhood queries for DBSCAN using a
// regular 3-D grid keyed by cell coordinates.
type spatialIndex struct {
	cellSize float64
	grid     map[[3]int64][]int
}

func newSpatialIndex(cellSize float64) *spatialIndex {
	return &spatialIndex{cellSize: cellSize, grid: make(map[[3]int64][]int)}
}

func (si *spatialIndex) cell(x, y, z float64) [3]int64 {
	return [3]int64{
		int64(math.Floor(x / si.cellSize)),
		int64(math.Floor(y / si.cellSize)),
		int64(math.Floor(z / si.cellSize)),
	}
}

func (si *spatialIndex) build(points []Point) {
	si.grid = make(map[[3]int64][]int, len(points))
	for i, p := range points {
		c := si.cell(p.X, p.Y, p.Z)
		si.grid[c] = append(si.grid[c], i)
	}
}

// regionQuery returns indices of all points within eps of points[idx],
// using the charge-weighted distance metric.
func (si *spatialIndex) regionQuery(points []Point, idx int, params ClusterParams) []int {
	p := points[idx]
	c := si.cell(p.X, p.Y, p.Z)

	var neighbours []int
	eps2 := params.Eps * params.Eps
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				key := [3]int64{c[0] + dx, c[1] + dy, c[2] + dz}
				for _, j := range si.grid[key] {
					d2 := chargeWeightedDistance2(p, points[j], params.ChargeWeight)
					if d2 <= eps2 {
						neighbours = append(neighbours, j)
					}
				}
			}
		}
	}
	return neighbours
}

// chargeWeightedDistance2 returns the squared Euclidean distance in
// (x, y, z), optionally inflated by a charge-difference term so that
// points with very different charge are less likely to join the same
// cluster even when spatially close.
func chargeWeightedDistance2(a, b Point, chargeWeight float64) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	d2 := dx*dx + dy*dy + dz*dz
	if chargeWeight > 0 {
		dq := a.Charge - b.Charge
		d2 += chargeWeight * dq * dq
	}
	return d2
}

// Cluster3D performs DBSCAN over a PointCloud's points in (x, y, z),
// assigning each point a label: noise points get label -1 and are excluded
// from the returned clusters. Output is deterministic given params:
// clusters are sorted by centroid (x, then y, then z) so repeated runs on
// the same input produce identical cluster ordering and indices.
func Cluster3D(cloud PointCloud, params ClusterParams) []Cluster {
	points := cloud.Points
	n := len(points)
	if n == 0 {
		return nil
	}

	labels := make([]int, n) // 0 = unvisited, -1 = noise, >0 = cluster id
	clusterID := 0

	idx := newSpatialIndex(params.Eps)
	idx.build(points)

	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}
		neighbours := idx.regionQuery(points, i, params)
		if len(neighbours) < params.MinPts {
			labels[i] = -1
			continue
		}

		clusterID++
		labels[i] = clusterID

		queue := append([]int(nil), neighbours...)
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == -1 {
				labels[j] = clusterID
			}
			if labels[j] != 0 {
				continue
			}
			labels[j] = clusterID
			jNeighbours := idx.regionQuery(points, j, params)
			if len(jNeighbours) >= params.MinPts {
				queue = append(queue, jNeighbours...)
			}
		}
	}

	byLabel := make(map[int][]Point, clusterID)
	for i, label := range labels {
		if label <= 0 {
			continue
		}
		byLabel[label] = append(byLabel[label], points[i])
	}

	var clusters []Cluster
	for label, pts := range byLabel {
		if len(pts) < params.MinClusterSize {
			continue
		}
		clusters = append(clusters, Cluster{
			EventID: cloud.EventID,
			Label:   label,
			Data:    pts,
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		ci, cj := centroid(clusters[i].Data), centroid(clusters[j].Data)
		if ci.X != cj.X {
			return ci.X < cj.X
		}
		if ci.Y != cj.Y {
			return ci.Y < cj.Y
		}
		return ci.Z < cj.Z
	})
	for i := range clusters {
		clusters[i].ClusterIndex = i
	}

	return clusters
}

func centroid(pts []Point) Vertex3 {
	var v Vertex3
	for _, p := range pts {
		v.X += p.X
		v.Y += p.Y
		v.Z += p.Z
	}
	n := float64(len(pts))
	if n == 0 {
		return v
	}
	v.X /= n
	v.Y /= n
	v.Z /= n
	return v
}
