package tpc

import "math"

// EstimateParams configures the analytic initial-value estimator (C7).
type EstimateParams struct {
	MinTotalTrajectoryPoints int
	BeamRegionContamination  float64 // fraction of points inside BeamRegionRadiusMM above which the cluster is rejected
	MaxDistanceFromBeamAxis  float64 // mm, rejects vertices reconstructed far from the beam
	EnergyLossCutoffMM       float64 // arclength cutoff for the EstimatorDiagnostics energy-loss integral
	CircleSampleCount        int     // points sampled around the fitted circle when locating the vertex
}

// DefaultEstimateParams returns production-default estimator tuning.
func DefaultEstimateParams() EstimateParams {
	return EstimateParams{
		MinTotalTrajectoryPoints: 50,
		BeamRegionContamination:  0.9,
		MaxDistanceFromBeamAxis:  30.0,
		EnergyLossCutoffMM:       700.0,
		CircleSampleCount:        1000,
	}
}

// Estimate runs C7: rejects degenerate clusters, infers travel direction,
// fits the first arc to recover a vertex and bending radius, and derives
// the polar/azimuthal angles, magnetic rigidity, and dE/dx diagnostics used
// to seed the physics solver (C8).
func Estimate(cluster Cluster, det DetectorParams, params EstimateParams) (InitialValue, EstimatorDiagnostics, error) {
	n := len(cluster.Data)
	if n < params.MinTotalTrajectoryPoints {
		return InitialValue{}, EstimatorDiagnostics{}, ErrClusterTooSmall
	}

	inBeam := 0
	for _, p := range cluster.Data {
		if math.Hypot(p.X, p.Y) < det.BeamRegionRadiusMM {
			inBeam++
		}
	}
	if float64(inBeam)/float64(n) > params.BeamRegionContamination {
		return InitialValue{}, EstimatorDiagnostics{}, ErrBeamContamination
	}

	direction := inferDirection(cluster.Data)
	if direction == DirectionBackward {
		cluster.Reverse()
	}
	pts := cluster.Data

	k := maxInt(10, n/3)
	firstArc := pts[:k]
	xs, ys := xyOf(firstArc)
	circle, err := FitCircle(xs, ys)
	if err != nil {
		return InitialValue{}, EstimatorDiagnostics{}, err
	}

	nearest := nearestCirclePointToAxis(circle, params.CircleSampleCount)

	m := maxInt(10, k/2)
	if m > len(firstArc) {
		m = len(firstArc)
	}
	rhoToVertex := make([]float64, m)
	zs := make([]float64, m)
	for i := 0; i < m; i++ {
		p := firstArc[i]
		rhoToVertex[i] = math.Hypot(p.X-nearest[0], p.Y-nearest[1])
		zs[i] = p.Z
	}
	slope, intercept := linearFit(rhoToVertex, zs)

	vertex := Vertex3{X: nearest[0], Y: nearest[1], Z: intercept}
	if math.Hypot(vertex.X, vertex.Y) > params.MaxDistanceFromBeamAxis {
		return InitialValue{}, EstimatorDiagnostics{}, ErrVertexOutOfRange
	}

	polar := math.Atan(slope)
	if direction == DirectionBackward {
		polar += math.Pi
	}

	azimuthal := math.Atan2(nearest[1]-circle.Y0, nearest[0]-circle.X0)
	if azimuthal < 0 {
		azimuthal += 2 * math.Pi
	}
	azimuthal -= 3 * math.Pi / 2
	if azimuthal < 0 {
		azimuthal += 2 * math.Pi
	}

	brho := det.MagneticFieldT * circle.Radius * 1e-3 / math.Sin(polar)
	if math.IsNaN(brho) {
		brho = 0
	}

	arcLength, chargeDeposit := arcLengthAndCharge(firstArc)
	if arcLength == 0 {
		return InitialValue{}, EstimatorDiagnostics{}, ErrZeroArcLength
	}
	dedx := chargeDeposit / arcLength

	eloss, cutoffIndex := energyLossToCutoff(pts, params.EnergyLossCutoffMM)

	initial := InitialValue{
		Vertex:    vertex,
		Brho:      brho,
		Polar:     polar,
		Azimuthal: azimuthal,
		Direction: direction,
	}
	diagnostics := EstimatorDiagnostics{
		Center:        Vertex3{X: circle.X0, Y: circle.Y0, Z: vertex.Z},
		Radius:        circle.Radius,
		DEdx:          dedx,
		ChargeDeposit: chargeDeposit,
		ArcLength:     arcLength,
		Eloss:         eloss,
		CutoffIndex:   cutoffIndex,
	}
	return initial, diagnostics, nil
}

// inferDirection decides whether a cluster was recorded travelling forward
// (away from the beam entrance) or backward, by comparing the bending
// radius of an arc fit to the first and last thirds of the trajectory.
// When the point farthest from the beam axis lies in the last 10% of the
// recorded points, the endpoint rhos decide instead; otherwise the end whose
// fitted radius is smaller (a slower particle bends more tightly) is taken
// as the trailing end.
func inferDirection(pts []Point) Direction {
	n := len(pts)
	if n == 0 {
		return DirectionNone
	}
	rhos := make([]float64, n)
	maxRho, maxIdx := -1.0, 0
	for i, p := range pts {
		rho := math.Hypot(p.X, p.Y)
		rhos[i] = rho
		if rho > maxRho {
			maxRho = rho
			maxIdx = i
		}
	}
	if float64(maxIdx) > 0.9*float64(n) {
		// Didn't complete a full arc; fall back to the endpoint rhos to
		// tell which end of the recorded track sits closer to the beam.
		if rhos[0] < rhos[n-1] {
			return DirectionForward
		}
		return DirectionBackward
	}

	k := maxInt(10, n/3)
	if 2*k > n {
		return DirectionNone
	}
	beginXs, beginYs := xyOf(pts[:k])
	endXs, endYs := xyOf(pts[n-k:])

	beginCircle, errBegin := FitCircle(beginXs, beginYs)
	endCircle, errEnd := FitCircle(endXs, endYs)
	if errBegin != nil || errEnd != nil {
		return DirectionNone
	}
	if beginCircle.Radius < endCircle.Radius {
		return DirectionBackward
	}
	return DirectionForward
}

// nearestCirclePointToAxis samples n points evenly around the fitted circle
// and returns the one closest to the beam axis (x = y = 0).
func nearestCirclePointToAxis(circle Circle, n int) [2]float64 {
	circlePts := GenerateCirclePoints(circle.X0, circle.Y0, circle.Radius, n)
	bestIdx, bestDist := 0, math.Inf(1)
	for i, cp := range circlePts {
		d := math.Hypot(cp[0], cp[1])
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	return circlePts[bestIdx]
}

// arcLengthAndCharge sums consecutive 3-D point-to-point distances and
// deposited charge over a sequence of points.
func arcLengthAndCharge(pts []Point) (length, charge float64) {
	for i, p := range pts {
		charge += p.Charge
		if i == 0 {
			continue
		}
		prev := pts[i-1]
		length += math.Sqrt((p.X-prev.X)*(p.X-prev.X) + (p.Y-prev.Y)*(p.Y-prev.Y) + (p.Z-prev.Z)*(p.Z-prev.Z))
	}
	return length, charge
}

// energyLossToCutoff walks the full trajectory accumulating arclength and
// charge, stopping once the cumulative arclength exceeds cutoffMM. It
// returns the accumulated charge and the index of the point at which the
// cutoff was reached (or len(pts)-1 if the cutoff is never reached).
func energyLossToCutoff(pts []Point, cutoffMM float64) (eloss float64, cutoffIndex int) {
	var cumLength float64
	for i, p := range pts {
		eloss += p.Charge
		if i == 0 {
			continue
		}
		prev := pts[i-1]
		cumLength += math.Sqrt((p.X-prev.X)*(p.X-prev.X) + (p.Y-prev.Y)*(p.Y-prev.Y) + (p.Z-prev.Z)*(p.Z-prev.Z))
		if cumLength >= cutoffMM {
			return eloss, i
		}
	}
	return eloss, len(pts) - 1
}

// linearFit returns the least-squares slope and intercept of y = slope*x +
// intercept.
func linearFit(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func xyOf(pts []Point) (xs, ys []float64) {
	xs = make([]float64, len(pts))
	ys = make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
