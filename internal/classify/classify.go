// Package classify maps sampled cell colors to tile types.
package classify

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"chosenoffset.com/gridsense/internal/grid"
	"chosenoffset.com/gridsense/internal/mapping"
)

// Classify resolves a color against the mapping store. An exact match wins
// regardless of tolerance. Otherwise, with a positive tolerance, the nearest
// mapped color by Euclidean RGB distance is accepted iff its distance is at
// most the tolerance; equal distances resolve to the lowest type id. Colors
// matching nothing classify as TypeUnknown.
//
// The function is pure: same inputs, same answer, no side effects.
func Classify(c mapping.RGB, store *mapping.Store, tolerance float64) mapping.TypeID {
	if id, ok := store.LookupType(c); ok {
		return id
	}
	if tolerance <= 0 {
		return mapping.TypeUnknown
	}

	best := mapping.TypeUnknown
	bestDist := tolerance + 1
	// Entries are sorted by ascending type id, so a strict improvement test
	// leaves the lowest id in place on distance ties.
	for _, e := range store.Entries() {
		if d := Distance(c, e.Color); d < bestDist {
			bestDist = d
			best = e.Type
		}
	}
	if bestDist <= tolerance {
		return best
	}
	return mapping.TypeUnknown
}

// Annotate classifies every cell of a partitioned grid in place and returns
// how many cells resolved to TypeUnknown.
func Annotate(g *grid.Grid, store *mapping.Store, tolerance float64) int {
	unknown := 0
	for i := range g.Cells {
		g.Cells[i].Type = Classify(g.Cells[i].Color, store, tolerance)
		if g.Cells[i].Type == mapping.TypeUnknown {
			unknown++
		}
	}
	return unknown
}

// Distance is the Euclidean distance between two colors in 8-bit RGB
// channel space (0..~441).
func Distance(a, b mapping.RGB) float64 {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	return ca.DistanceRgb(cb) * 255
}
