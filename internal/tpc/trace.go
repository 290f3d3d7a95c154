package tpc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// TraceParams configures the trace analyzer (C2): the Fourier baseline
// filter width and the peak-finder thresholds.
type TraceParams struct {
	BaselineWindowScale float64 // w in sinc(k/w); larger = wider pass band (gentler low-pass)
	PeakHeight          float64 // minimum baseline-subtracted amplitude
	PeakProminence      float64 // minimum topographic prominence
	PeakSeparation      int     // minimum index separation between accepted peaks
}

// DefaultTraceParams returns the production-default trace analyzer tuning.
func DefaultTraceParams() TraceParams {
	return TraceParams{
		BaselineWindowScale: 20.0,
		PeakHeight:          20.0,
		PeakProminence:      20.0,
		PeakSeparation:      20,
	}
}

// AnalyzeTrace runs the full C2 pipeline on a single 1-D digitized signal:
// edge smoothing, Fourier baseline removal, and peak finding. It is a pure
// function: the same samples and params always produce the same Trace.
func AnalyzeTrace(samples []float64, params TraceParams) Trace {
	n := len(samples)
	if n < 4 {
		return Trace{Samples: append([]float64(nil), samples...)}
	}

	smoothed := append([]float64(nil), samples...)
	smoothed[0] = smoothed[1]
	smoothed[n-1] = smoothed[n-2]

	baseline := estimateBaseline(smoothed, params.BaselineWindowScale)

	residual := make([]float64, n)
	for i := range residual {
		residual[i] = smoothed[i] - baseline[i]
	}

	peaks := findPeaks(residual, params)

	return Trace{Samples: smoothed, Peaks: peaks}
}

// AnalyzeTraceMatrix runs AnalyzeTrace independently over every column of a
// (T, N) sample matrix, columns given as a slice of per-column sample
// slices. The result is element-for-element identical to calling
// AnalyzeTrace on each column separately (§4.2 batch-mode guarantee).
func AnalyzeTraceMatrix(columns [][]float64, params TraceParams) []Trace {
	traces := make([]Trace, len(columns))
	for i, col := range columns {
		traces[i] = AnalyzeTrace(col, params)
	}
	return traces
}

// estimateBaseline implements the masked-mean + windowed-sinc low-pass
// baseline estimate of §4.2 steps 2-3. It deliberately multiplies the FFT
// of the masked samples directly by the (un-transformed, shifted) sinc
// window values, exactly as the original analysis does: the sinc sequence
// itself serves as the frequency-domain gain profile, it is never itself
// Fourier transformed.
func estimateBaseline(smoothed []float64, w float64) []float64 {
	n := len(smoothed)

	mean := stat.Mean(smoothed, nil)
	sigma := stat.StdDev(smoothed, nil)

	masked := append([]float64(nil), smoothed...)
	var unmaskedSum float64
	var unmaskedCount int
	isMasked := make([]bool, n)
	for i, v := range smoothed {
		if v-mean > 1.5*sigma {
			isMasked[i] = true
		} else {
			unmaskedSum += v
			unmaskedCount++
		}
	}
	unmaskedMean := mean
	if unmaskedCount > 0 {
		unmaskedMean = unmaskedSum / float64(unmaskedCount)
	}
	for i := range masked {
		if isMasked[i] {
			masked[i] = unmaskedMean
		}
	}

	filter := shiftedSincFilter(n, w)

	fft := fourier.NewCmplxFFT(n)
	spectrum := fft.Coefficients(nil, toComplex(masked))
	for i := range spectrum {
		spectrum[i] *= complex(filter[i], 0)
	}
	back := fft.Sequence(nil, spectrum)

	result := make([]float64, n)
	for i, v := range back {
		result[i] = real(v) / float64(n)
	}
	return result
}

func toComplex(xs []float64) []complex128 {
	out := make([]complex128, len(xs))
	for i, x := range xs {
		out[i] = complex(x, 0)
	}
	return out
}

// shiftedSincFilter builds sinc(k/w) over a window centred at zero, then
// applies an ifftshift so the peak sits at index 0 (§4.2 step 3).
func shiftedSincFilter(n int, w float64) []float64 {
	raw := make([]float64, n)
	half := float64(n) / 2.0
	for i := 0; i < n; i++ {
		x := (float64(i) - half) / w
		raw[i] = normalizedSinc(x)
	}
	shifted := make([]float64, n)
	shift := n / 2
	for i := 0; i < n; i++ {
		shifted[i] = raw[(i+shift)%n]
	}
	return shifted
}

func normalizedSinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	pix := math.Pi * x
	return math.Sin(pix) / pix
}

// findPeaks locates local maxima in residual above params.PeakHeight, with a
// minimum separation and minimum prominence, and fills in each Peak's
// inflection bounds, trapezoidal integral, and sub-sample centroid.
func findPeaks(residual []float64, params TraceParams) []Peak {
	n := len(residual)
	if n < 3 {
		return nil
	}

	var candidates []peakCandidate
	for i := 1; i < n-1; i++ {
		if residual[i] < params.PeakHeight {
			continue
		}
		if residual[i] <= residual[i-1] || residual[i] < residual[i+1] {
			continue
		}
		prom := prominence(residual, i)
		if prom < params.PeakProminence {
			continue
		}
		candidates = append(candidates, peakCandidate{index: i, prominence: prom})
	}

	// Greedily accept candidates by descending amplitude, enforcing
	// minimum separation between accepted peaks.
	sort.Slice(candidates, func(i, j int) bool {
		return residual[candidates[i].index] > residual[candidates[j].index]
	})

	var acceptedIdx []int
	for _, c := range candidates {
		tooClose := false
		for _, a := range acceptedIdx {
			if abs(c.index-a) < params.PeakSeparation {
				tooClose = true
				break
			}
		}
		if !tooClose {
			acceptedIdx = append(acceptedIdx, c.index)
		}
	}
	sort.Ints(acceptedIdx)

	peaks := make([]Peak, 0, len(acceptedIdx))
	for _, idx := range acceptedIdx {
		left := findLeftInflection(residual, idx)
		right := findRightInflection(residual, idx)
		integral := trapezoidalIntegral(residual, left, right)
		centroid := parabolicCentroid(residual, idx)
		peaks = append(peaks, Peak{
			Centroid:           centroid,
			Amplitude:          residual[idx],
			PositiveInflection: left,
			NegativeInflection: right,
			Integral:           integral,
		})
	}
	return peaks
}

// prominence computes the topographic prominence of the local maximum at
// index peakIdx: the peak height above the higher of the two nearest
// flanking valleys.
func prominence(residual []float64, peakIdx int) float64 {
	peakVal := residual[peakIdx]

	leftMin := peakVal
	for i := peakIdx - 1; i >= 0; i-- {
		if residual[i] > peakVal {
			break
		}
		if residual[i] < leftMin {
			leftMin = residual[i]
		}
	}
	rightMin := peakVal
	for i := peakIdx + 1; i < len(residual); i++ {
		if residual[i] > peakVal {
			break
		}
		if residual[i] < rightMin {
			rightMin = residual[i]
		}
	}
	base := math.Max(leftMin, rightMin)
	return peakVal - base
}

// findLeftInflection walks left from the peak to the nearest local minimum
// (the rising-flank inflection bound used for integration).
func findLeftInflection(residual []float64, peakIdx int) int {
	i := peakIdx
	for i > 0 && residual[i-1] <= residual[i] {
		i--
	}
	return i
}

// findRightInflection walks right from the peak to the nearest local
// minimum (the falling-flank inflection bound).
func findRightInflection(residual []float64, peakIdx int) int {
	i := peakIdx
	for i < len(residual)-1 && residual[i+1] <= residual[i] {
		i++
	}
	return i
}

func trapezoidalIntegral(values []float64, left, right int) float64 {
	if right <= left {
		return 0
	}
	var sum float64
	for i := left; i < right; i++ {
		sum += 0.5 * (values[i] + values[i+1])
	}
	return sum
}

// parabolicCentroid refines the integer peak index to a sub-sample maximum
// location by fitting a parabola through the peak and its two neighbours.
func parabolicCentroid(values []float64, peakIdx int) float64 {
	if peakIdx <= 0 || peakIdx >= len(values)-1 {
		return float64(peakIdx)
	}
	ym1, y0, yp1 := values[peakIdx-1], values[peakIdx], values[peakIdx+1]
	denom := ym1 - 2*y0 + yp1
	if denom == 0 {
		return float64(peakIdx)
	}
	offset := 0.5 * (ym1 - yp1) / denom
	return float64(peakIdx) + offset
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type peakCandidate struct {
	index      int
	prominence float64
}
