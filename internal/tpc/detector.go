package tpc

// DetectorParams describes the physical AT-TPC geometry and field used
// throughout point-cloud building, estimation, and physics solving.
type DetectorParams struct {
	MagneticFieldT       float64 // T, along +z
	ElectricFieldVPerM   float64 // V/m, along +z
	DetectorLengthMM     float64 // drift length, micromegas to window
	MicromegasTimeBucket float64
	WindowTimeBucket     float64
	GETFrequencyMHz      float64
	BeamRegionRadiusMM   float64
	GasDensityGPerCm3    float64
}

// DefaultDetectorParams returns representative AT-TPC operating parameters.
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		MagneticFieldT:       3.0,
		ElectricFieldVPerM:   0.0,
		DetectorLengthMM:     1000.0,
		MicromegasTimeBucket: 40.0,
		WindowTimeBucket:     490.0,
		GETFrequencyMHz:      6.25,
		BeamRegionRadiusMM:   20.0,
		GasDensityGPerCm3:    0.000625,
	}
}

// FRIBParams configures ingestion of the auxiliary FRIBDAQ fast-digitizer
// traces (ion chamber, silicon, mesh) and their correlation with a TPC
// event (supplemented feature: the distilled spec names the fast-digitizer
// matrix as an input but assigns it no consumer).
type FRIBParams struct {
	IonChamberColumn   int
	SiliconColumn      int
	MeshColumn         int
	SamplingFreqMHz    float64 // SIS3300 module sampling frequency
	ICMultiplicity     int     // max allowed "good" ion chamber count
	CoincidenceWindow  float64 // ns, IC/Si peak coincidence window
}

// DefaultFRIBParams returns the conventional FRIBDAQ column layout.
func DefaultFRIBParams() FRIBParams {
	return FRIBParams{
		IonChamberColumn:  0,
		SiliconColumn:     2,
		MeshColumn:        1,
		SamplingFreqMHz:   12.5,
		ICMultiplicity:    1,
		CoincidenceWindow: 50.0,
	}
}

// ICCorrelation records the ion-chamber timing association for one event
// (supplemented feature, §SUPPLEMENTED FEATURES item 1).
type ICCorrelation struct {
	EventID         int
	GoodMultiplicity int
	GoodPeak        Peak
	TimeCorrectionTB float64 // GET time-bucket correction
}

// CorrectIonChamberTime computes the GET time-bucket correction implied by
// a "good" ion-chamber peak relative to the earliest ion-chamber peak in
// the same event, following the original FRIBDAQ time-walk correction.
func CorrectIonChamberTime(goodPeak Peak, icPeaks []Peak, getFrequencyMHz, samplingFreqMHz float64) float64 {
	earliest := NewPeak()
	for _, p := range icPeaks {
		if p.Centroid < earliest.Centroid || earliest.Centroid < 0 {
			earliest = p
		}
	}
	return (goodPeak.Centroid - earliest.Centroid) * getFrequencyMHz / samplingFreqMHz
}

// GoodIonChamberPeak selects the "good" ion-chamber peak for an event: IC
// peaks with a silicon peak within the coincidence window are vetoed as
// un-reacted beam, and the last remaining IC peak is returned. The event is
// rejected when no IC peak remains or more than ICMultiplicity remain; with
// no silicon peaks at all, only a single IC peak is accepted.
func GoodIonChamberPeak(icPeaks, siPeaks []Peak, params FRIBParams) (ICCorrelation, bool) {
	if len(icPeaks) == 0 {
		return ICCorrelation{}, false
	}
	if len(siPeaks) == 0 {
		if len(icPeaks) == 1 {
			return ICCorrelation{GoodMultiplicity: 1, GoodPeak: icPeaks[0]}, true
		}
		return ICCorrelation{}, false
	}

	goodCount := 0
	goodIndex := -1
	for i, ic := range icPeaks {
		coincident := false
		for _, si := range siPeaks {
			if absFloat(ic.Centroid-si.Centroid) < params.CoincidenceWindow {
				coincident = true
				break
			}
		}
		if !coincident {
			goodCount++
			goodIndex = i
		}
	}
	if goodCount == 0 || goodCount > params.ICMultiplicity {
		return ICCorrelation{}, false
	}
	return ICCorrelation{GoodMultiplicity: goodCount, GoodPeak: icPeaks[goodIndex]}, true
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
