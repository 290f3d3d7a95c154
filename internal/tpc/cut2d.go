package tpc

import (
	"encoding/json"
	"fmt"
	"io"
)

// Cut2D is a closed polygon gate in an arbitrary 2-D projection (typically
// dE/dx vs. Brho), used to select a particle species (C9).
type Cut2D struct {
	Name     string      `json:"name"`
	Vertices [][2]float64 `json:"vertices"`
}

// LoadCut2D decodes a Cut2D from its JSON {name, vertices} representation.
func LoadCut2D(r io.Reader) (Cut2D, error) {
	var cut Cut2D
	if err := json.NewDecoder(r).Decode(&cut); err != nil {
		return Cut2D{}, fmt.Errorf("tpc: decode cut2d: %w", err)
	}
	if len(cut.Vertices) < 3 {
		return Cut2D{}, fmt.Errorf("tpc: cut2d %q needs >= 3 vertices, got %d", cut.Name, len(cut.Vertices))
	}
	return cut, nil
}

// Encode writes the Cut2D back out as JSON.
func (c Cut2D) Encode(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("tpc: encode cut2d: %w", err)
	}
	return nil
}

// Contains reports whether (x, y) lies inside the polygon, using a
// ray-casting point-in-polygon test. The polygon is treated as implicitly
// closed (the last vertex connects back to the first) regardless of
// whether the caller repeated the first vertex at the end. Edges are
// half-open on their lower/left boundary, matching the convention that a
// point exactly on the upper or right edge of the gate is excluded.
func (c Cut2D) Contains(x, y float64) bool {
	n := len(c.Vertices)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := c.Vertices[i][0], c.Vertices[i][1]
		xj, yj := c.Vertices[j][0], c.Vertices[j][1]

		crosses := (yi > y) != (yj > y)
		if !crosses {
			continue
		}
		xIntersect := (xj-xi)*(y-yi)/(yj-yi) + xi
		if x < xIntersect {
			inside = !inside
		}
	}
	return inside
}
