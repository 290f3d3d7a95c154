package tpc

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// NuclearDataMap is a static, read-only Z,A -> Nucleus lookup, shared by
// reference across workers. It never mutates after construction.
type NuclearDataMap struct {
	byZA map[[2]int]Nucleus
}

// NewNuclearDataMap returns an empty map; use LoadNuclearDataCSV to
// populate one from the nuclear-data CSV input (§6).
func NewNuclearDataMap() *NuclearDataMap {
	return &NuclearDataMap{byZA: make(map[[2]int]Nucleus)}
}

// LoadNuclearDataCSV reads a nuclear-data CSV with columns {Z, A, name,
// mass_MeV}. The first row is assumed to be a header and is skipped.
func LoadNuclearDataCSV(r io.Reader) (*NuclearDataMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tpc: read nuclear data csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tpc: nuclear data csv is empty")
	}

	m := NewNuclearDataMap()
	for i, row := range records[1:] {
		if len(row) < 4 {
			return nil, fmt.Errorf("tpc: nuclear data csv row %d: expected 4 columns, got %d", i+1, len(row))
		}
		z, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("tpc: nuclear data csv row %d: bad Z: %w", i+1, err)
		}
		a, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("tpc: nuclear data csv row %d: bad A: %w", i+1, err)
		}
		name := row[2]
		mass, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("tpc: nuclear data csv row %d: bad mass_MeV: %w", i+1, err)
		}
		m.byZA[[2]int{z, a}] = Nucleus{Z: z, A: a, Name: name, MassMeV: mass}
	}
	return m, nil
}

// Lookup returns the Nucleus for (Z, A), if present.
func (m *NuclearDataMap) Lookup(z, a int) (Nucleus, bool) {
	n, ok := m.byZA[[2]int{z, a}]
	return n, ok
}

// Len returns the number of nuclides in the map.
func (m *NuclearDataMap) Len() int { return len(m.byZA) }
