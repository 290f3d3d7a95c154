package tpc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"
)

// GasStoppingTable is a monotone-in-energy dE/dx table loaded from a gas
// file (§6) and linearly interpolated, implementing StoppingTable.
type GasStoppingTable struct {
	minE, maxE float64
	pl         interp.PiecewiseLinear
}

// LoadGasFile reads a tab-delimited gas file `E_MeV  dE/dx_MeV_per_g_cm2`,
// monotone in E, and returns a GasStoppingTable that linearly interpolates
// between rows.
func LoadGasFile(r io.Reader) (*GasStoppingTable, error) {
	var energies, dedx []float64

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("tpc: gas file line %d: expected 2 columns, got %d", lineNo, len(fields))
		}
		e, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("tpc: gas file line %d: bad energy: %w", lineNo, err)
		}
		d, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("tpc: gas file line %d: bad dE/dx: %w", lineNo, err)
		}
		energies = append(energies, e)
		dedx = append(dedx, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tpc: gas file: %w", err)
	}
	if len(energies) < 2 {
		return nil, fmt.Errorf("tpc: gas file needs >= 2 rows, got %d", len(energies))
	}

	table := &GasStoppingTable{minE: energies[0], maxE: energies[len(energies)-1]}
	if err := table.pl.Fit(energies, dedx); err != nil {
		return nil, fmt.Errorf("tpc: gas file interpolation: %w", err)
	}
	return table, nil
}

// DEdx implements StoppingTable: linear interpolation, clamped to the
// tabulated energy range.
func (t *GasStoppingTable) DEdx(ekinMeV float64) float64 {
	e := clamp(ekinMeV, t.minE, t.maxE)
	return t.pl.Predict(e)
}
