package tpc

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"
)

// DriftGridRhoBins and DriftGridZBins fix the persisted grid shape (§3):
// rho in [0, 275] mm with 276 bins, z in [0, 1000] mm with 1001 bins.
const (
	DriftGridRhoBins = 276
	DriftGridRhoMax  = 275.0
	DriftGridZBins   = 1001
	DriftGridZMax    = 1000.0
)

// DriftCorrection is the (Δρ, Δtransverse, Δt) triple looked up from the
// drift-correction grid at a given (ρ, z), in mm (Δρ, Δtransverse) and ns
// (Δt).
type DriftCorrection struct {
	DeltaRho         float64
	DeltaTransverse  float64
	DeltaT           float64
}

// DriftCorrectionGrid is the dense, precomputed (Nrho, Nz, 3) electron-drift
// correction table. It is read-only after construction and safe to share by
// reference across workers.
type DriftCorrectionGrid struct {
	rhoBins, zBins int
	rhoMax, zMax   float64
	// cells[rhoIdx*zBins+zIdx] holds the correction at that grid node.
	cells []DriftCorrection
}

// NewDriftCorrectionGrid allocates a zero-valued grid of the canonical
// shape (276, 1001, 3).
func NewDriftCorrectionGrid() *DriftCorrectionGrid {
	return &DriftCorrectionGrid{
		rhoBins: DriftGridRhoBins,
		zBins:   DriftGridZBins,
		rhoMax:  DriftGridRhoMax,
		zMax:    DriftGridZMax,
		cells:   make([]DriftCorrection, DriftGridRhoBins*DriftGridZBins),
	}
}

func (g *DriftCorrectionGrid) idx(rhoIdx, zIdx int) int { return rhoIdx*g.zBins + zIdx }

func (g *DriftCorrectionGrid) set(rhoIdx, zIdx int, c DriftCorrection) {
	g.cells[g.idx(rhoIdx, zIdx)] = c
}

func (g *DriftCorrectionGrid) at(rhoIdx, zIdx int) DriftCorrection {
	return g.cells[g.idx(rhoIdx, zIdx)]
}

// Interpolate returns the bilinearly interpolated (Δρ, Δtransverse, Δt) at
// (rho, z), clamping to the grid boundary when the query falls outside
// [0, rhoMax] x [0, zMax].
func (g *DriftCorrectionGrid) Interpolate(rho, z float64) DriftCorrection {
	rhoStep := g.rhoMax / float64(g.rhoBins-1)
	zStep := g.zMax / float64(g.zBins-1)

	rho = clamp(rho, 0, g.rhoMax)
	z = clamp(z, 0, g.zMax)

	rf := rho / rhoStep
	zf := z / zStep

	r0 := int(math.Floor(rf))
	z0 := int(math.Floor(zf))
	r1 := minInt(r0+1, g.rhoBins-1)
	z1 := minInt(z0+1, g.zBins-1)
	r0 = minInt(r0, g.rhoBins-1)
	z0 = minInt(z0, g.zBins-1)

	tr := rf - float64(r0)
	tz := zf - float64(z0)

	c00 := g.at(r0, z0)
	c10 := g.at(r1, z0)
	c01 := g.at(r0, z1)
	c11 := g.at(r1, z1)

	lerp3 := func(a, b, c, d DriftCorrection) DriftCorrection {
		top := DriftCorrection{
			DeltaRho:        a.DeltaRho*(1-tr) + b.DeltaRho*tr,
			DeltaTransverse: a.DeltaTransverse*(1-tr) + b.DeltaTransverse*tr,
			DeltaT:          a.DeltaT*(1-tr) + b.DeltaT*tr,
		}
		bottom := DriftCorrection{
			DeltaRho:        c.DeltaRho*(1-tr) + d.DeltaRho*tr,
			DeltaTransverse: c.DeltaTransverse*(1-tr) + d.DeltaTransverse*tr,
			DeltaT:          c.DeltaT*(1-tr) + d.DeltaT*tr,
		}
		return DriftCorrection{
			DeltaRho:        top.DeltaRho*(1-tz) + bottom.DeltaRho*tz,
			DeltaTransverse: top.DeltaTransverse*(1-tz) + bottom.DeltaTransverse*tz,
			DeltaT:          top.DeltaT*(1-tz) + bottom.DeltaT*tz,
		}
	}
	return lerp3(c00, c10, c01, c11)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// GarfieldRow is one row of the Garfield electron-trajectory simulation
// table: [x_initial, y_initial, x_final, y_final, z_final, t], all in cm.
type GarfieldRow struct {
	XInitial, YInitial float64
	XFinal, YFinal     float64
	ZFinal             float64
	T                  float64
}

// ParseGarfieldFile reads a whitespace-separated Garfield-format table.
func ParseGarfieldFile(r io.Reader) ([]GarfieldRow, error) {
	var rows []GarfieldRow
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			return nil, fmt.Errorf("tpc: garfield file line %d: expected 6 fields, got %d", lineNo, len(fields))
		}
		vals := make([]float64, 6)
		for i := 0; i < 6; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("tpc: garfield file line %d: %w", lineNo, err)
			}
			vals[i] = v
		}
		rows = append(rows, GarfieldRow{
			XInitial: vals[0], YInitial: vals[1],
			XFinal: vals[2], YFinal: vals[3],
			ZFinal: vals[4], T: vals[5],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tpc: garfield file: %w", err)
	}
	return rows, nil
}

// DetectorDriftParams carries the detector geometry needed to build the
// drift-correction grid from a Garfield table (§4.3).
type DetectorDriftParams struct {
	DetectorLengthMM      float64
	MicromegasTimeBucket  float64
	WindowTimeBucket      float64
	GETFrequencyMHz       float64
}

const garfieldChunkSize = 55
const garfieldChunkMidpoint = 27

// BuildDriftCorrectionGrid converts a Garfield simulation table into the
// persisted (276, 1001, 3) correction grid (§4.3 construction).
//
// The Garfield rows are laid out in chunks of 55 (steps in initial rho),
// one chunk per z step. For each chunk we centre the time column on its
// midpoint row, then build:
//   - a per-chunk 1-D interpolator mapping final-z -> final-rho (the
//     "contour" of constant initial rho), used to invert (rho, z) -> the
//     initial rho that drifted there;
//   - a bilinear interpolator over (z_final, rho_final) returning
//     (transverse shift, time shift).
//
// For each output cell we invert the contour to find the initial rho, take
// Δρ = ρ_initial − ρ, and look up the transverse/time shift at that
// initial rho's position.
func BuildDriftCorrectionGrid(rows []GarfieldRow, det DetectorDriftParams) (*DriftCorrectionGrid, error) {
	if len(rows)%garfieldChunkSize != 0 || len(rows) == 0 {
		return nil, fmt.Errorf("tpc: garfield table has %d rows, not a multiple of chunk size %d", len(rows), garfieldChunkSize)
	}
	nChunks := len(rows) / garfieldChunkSize

	// zFinalMM[chunk][row], rhoFinalMM[chunk][row], transverseMM[chunk][row], timeNS[chunk][row]
	zFinalMM := make([][]float64, nChunks)
	rhoFinalMM := make([][]float64, nChunks)
	transverseMM := make([][]float64, nChunks)
	timeNS := make([][]float64, nChunks)

	for chunk := 0; chunk < nChunks; chunk++ {
		zFinalMM[chunk] = make([]float64, garfieldChunkSize)
		rhoFinalMM[chunk] = make([]float64, garfieldChunkSize)
		transverseMM[chunk] = make([]float64, garfieldChunkSize)
		timeNS[chunk] = make([]float64, garfieldChunkSize)
		for row := 0; row < garfieldChunkSize; row++ {
			g := rows[chunk*garfieldChunkSize+row]
			zFinalMM[chunk][row] = g.ZFinal * 10.0
			rhoFinalMM[chunk][row] = g.YFinal * 10.0
			transverseMM[chunk][row] = g.XFinal * 10.0
			timeNS[chunk][row] = g.T
		}
		mid := timeNS[chunk][garfieldChunkMidpoint]
		for row := range timeNS[chunk] {
			timeNS[chunk][row] -= mid
		}
	}

	grid := NewDriftCorrectionGrid()

	rhoStep := grid.rhoMax / float64(grid.rhoBins-1)
	zStep := grid.zMax / float64(grid.zBins-1)

	timeScale := det.DetectorLengthMM / ((det.WindowTimeBucket - det.MicromegasTimeBucket) * (1.0 / det.GETFrequencyMHz * 1000.0))

	for ridx := 0; ridx < grid.rhoBins; ridx++ {
		r := float64(ridx) * rhoStep
		for zidx := 0; zidx < grid.zBins; zidx++ {
			z := float64(zidx) * zStep

			// Rescale the output z back into Garfield's coordinate
			// convention (first sample at 30mm, spanning to 1000mm).
			zg := (1.0-z*0.001)*970.0 + 30.0

			rhoInitial, err := interpolateInitialRho(zFinalMM, rhoFinalMM, zg, r)
			if err != nil {
				return nil, err
			}
			deltaRho := rhoInitial - r

			transverse, timeShift, err := bilinearGarfieldLookup(zFinalMM, rhoFinalMM, transverseMM, timeNS, zg, deltaRho)
			if err != nil {
				return nil, err
			}

			grid.set(ridx, zidx, DriftCorrection{
				DeltaRho:        deltaRho,
				DeltaTransverse: transverse,
				DeltaT:          timeShift * timeScale,
			})
		}
	}
	return grid, nil
}

// interpolateInitialRho inverts the (z, rho) contour for the chunk whose
// rho_initial best matches, using a 1-D linear interpolation of
// rho_final(z) within that chunk (the "contour generator" of §4.3a),
// finding the chunk whose final rho is nearest the query rho, then solving
// for the initial rho at the query z within that chunk.
func interpolateInitialRho(zFinalMM, rhoFinalMM [][]float64, zg, rhoQuery float64) (float64, error) {
	nChunks := len(zFinalMM)
	rhoStep := (2 * 270.0) / float64(nChunks-1)

	bestChunk, bestDist := 0, math.Inf(1)
	for chunk := 0; chunk < nChunks; chunk++ {
		rho, err := interpAtZ(zFinalMM[chunk], rhoFinalMM[chunk], zg)
		if err != nil {
			continue
		}
		d := math.Abs(rho - rhoQuery)
		if d < bestDist {
			bestDist = d
			bestChunk = chunk
		}
	}
	rhoInitial := -270.0 + float64(bestChunk)*rhoStep
	return rhoInitial, nil
}

func bilinearGarfieldLookup(zFinalMM, rhoFinalMM, transverseMM, timeNS [][]float64, zg, rho float64) (transverse, timeShift float64, err error) {
	nChunks := len(zFinalMM)
	rhoStep := (2 * 270.0) / float64(nChunks-1)
	chunkF := (rho + 270.0) / rhoStep
	chunk := int(math.Round(chunkF))
	if chunk < 0 {
		chunk = 0
	}
	if chunk > nChunks-1 {
		chunk = nChunks - 1
	}
	t, err := interpAtZ(zFinalMM[chunk], transverseMM[chunk], zg)
	if err != nil {
		return 0, 0, err
	}
	ts, err := interpAtZ(zFinalMM[chunk], timeNS[chunk], zg)
	if err != nil {
		return 0, 0, err
	}
	return t, ts, nil
}

// interpAtZ fits a monotone 1-D linear interpolator over (z, value) pairs
// sorted by z and evaluates it at zg, clamping to the data range.
func interpAtZ(zs, values []float64, zg float64) (float64, error) {
	idx := make([]int, len(zs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return zs[idx[a]] < zs[idx[b]] })
	sortedZ := make([]float64, len(zs))
	sortedV := make([]float64, len(zs))
	for i, j := range idx {
		sortedZ[i] = zs[j]
		sortedV[i] = values[j]
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(sortedZ, sortedV); err != nil {
		return 0, fmt.Errorf("tpc: drift grid interpolation: %w", err)
	}
	zg = clamp(zg, sortedZ[0], sortedZ[len(sortedZ)-1])
	return pl.Predict(zg), nil
}
