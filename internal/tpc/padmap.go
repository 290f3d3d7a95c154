package tpc

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// PadEntry is one row of the pad-geometry map: a pad-plane location and its
// per-pad gain correction.
type PadEntry struct {
	X, Y  float64 // mm
	Ring  int
	Scale float64
}

// PadMap is a read-only, pad-id -> (x, y, ring, scale) lookup, shared by
// reference across all workers (§5: no locks on the hot path, construct
// once, never mutated afterward).
type PadMap struct {
	entries map[int]PadEntry
}

// NewPadMap returns an empty PadMap; use LoadPadMapCSV to populate one from
// the pad-map CSV input (§6).
func NewPadMap() *PadMap {
	return &PadMap{entries: make(map[int]PadEntry)}
}

// LoadPadMapCSV reads a pad-map CSV with columns {pad_id, x_mm, y_mm, ring,
// scale} and returns the resulting read-only PadMap. The first row is
// assumed to be a header and is skipped.
func LoadPadMapCSV(r io.Reader) (*PadMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tpc: read pad map csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tpc: pad map csv is empty")
	}

	pm := NewPadMap()
	for i, row := range records[1:] {
		if len(row) < 5 {
			return nil, fmt.Errorf("tpc: pad map csv row %d: expected 5 columns, got %d", i+1, len(row))
		}
		padID, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("tpc: pad map csv row %d: bad pad_id: %w", i+1, err)
		}
		x, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("tpc: pad map csv row %d: bad x_mm: %w", i+1, err)
		}
		y, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("tpc: pad map csv row %d: bad y_mm: %w", i+1, err)
		}
		ring, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("tpc: pad map csv row %d: bad ring: %w", i+1, err)
		}
		scale, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("tpc: pad map csv row %d: bad scale: %w", i+1, err)
		}
		pm.entries[padID] = PadEntry{X: x, Y: y, Ring: ring, Scale: scale}
	}
	return pm, nil
}

// Lookup returns the geometry for padID. ok is false for InvalidPadID or any
// pad id not present in the map; callers must skip the pad in that case.
func (pm *PadMap) Lookup(padID int) (entry PadEntry, ok bool) {
	if padID == InvalidPadID {
		return PadEntry{}, false
	}
	entry, ok = pm.entries[padID]
	return entry, ok
}

// Len returns the number of pads in the map.
func (pm *PadMap) Len() int {
	return len(pm.entries)
}
