package tpc

import "math"

// PadTrace is one pad-plane channel: the pad id that produced it and its
// raw digitized samples.
type PadTrace struct {
	PadID   int
	Samples []float64
}

// EventFrame is the raw per-event input to the point-cloud builder: the
// pad-plane traces and, optionally, the auxiliary fast-digitizer traces
// (§6, supplemented feature: fast-digitizer ingestion).
type EventFrame struct {
	EventID  int
	PadTraces []PadTrace
	// FRIBTraces holds the fast-digitizer channels (ion chamber, silicon,
	// mesh, ...) in FRIBParams column order. May be nil if the run has no
	// auxiliary digitizer.
	FRIBTraces [][]float64
}

// BuildPointCloud runs C4: for every active pad trace, extract Peaks (C2),
// look up pad geometry (C1), compute z from the peak centroid, apply the
// drift correction (C3), and emit a Point per Peak. Pads with
// InvalidPadID, or with no pad-map entry, or that produce no peaks,
// contribute no points.
func BuildPointCloud(frame EventFrame, padMap *PadMap, grid *DriftCorrectionGrid, traceParams TraceParams, det DetectorParams) PointCloud {
	cloud := PointCloud{EventID: frame.EventID}

	for _, pt := range frame.PadTraces {
		entry, ok := padMap.Lookup(pt.PadID)
		if !ok {
			continue
		}

		trace := AnalyzeTrace(pt.Samples, traceParams)
		for _, peak := range trace.Peaks {
			z := timeBucketToZ(peak.Centroid, det)
			rho := math.Hypot(entry.X, entry.Y)

			correction := grid.Interpolate(rho, z)

			newRho := rho + correction.DeltaRho
			var x, y float64
			if rho > 0 {
				scaleRatio := newRho / rho
				x = entry.X * scaleRatio
				y = entry.Y * scaleRatio
			}
			newZ := z + nsToMM(correction.DeltaT, det)

			cloud.Points = append(cloud.Points, Point{
				X:          x,
				Y:          y,
				Z:          newZ,
				Charge:     peak.Integral * entry.Scale,
				PadID:      pt.PadID,
				TimeBucket: int(math.Round(peak.Centroid)),
				Scale:      entry.Scale,
			})
		}
	}

	return cloud
}

// timeBucketToZ converts a peak centroid (time bucket) to a z position in
// mm using the linear micromegas/window calibration (§4.4):
//
//	z = L * (tb - tb_mm) / (tb_w - tb_mm)
func timeBucketToZ(centroid float64, det DetectorParams) float64 {
	denom := det.WindowTimeBucket - det.MicromegasTimeBucket
	if denom == 0 {
		return 0
	}
	return det.DetectorLengthMM * (centroid - det.MicromegasTimeBucket) / denom
}

// nsToMM converts a drift-grid time-shift (ns) into a z displacement (mm)
// using the same time-bucket-to-length scale as timeBucketToZ.
func nsToMM(deltaTNS float64, det DetectorParams) float64 {
	denom := det.WindowTimeBucket - det.MicromegasTimeBucket
	if denom == 0 {
		return 0
	}
	tbPerNS := 1.0 / (1.0 / det.GETFrequencyMHz * 1000.0)
	deltaTB := deltaTNS * tbPerNS
	return det.DetectorLengthMM * deltaTB / denom
}
