package l5rings

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/banshee-data/coverage.planner/internal/coverage"
)

// Simplifier reduces the vertex count of a polygon. Topology need not be
// preserved.
type Simplifier interface {
	Simplify(p orb.Polygon) (orb.Polygon, error)
}

// DouglasPeucker simplifies every ring with the Douglas-Peucker algorithm.
type DouglasPeucker struct {
	// Tolerance is the maximum distance, in world units, a removed vertex
	// may lie from the simplified ring.
	Tolerance float64
}

// Simplify implements Simplifier. The input is not modified. Holes that
// collapse are dropped; an exterior that collapses below a triangle is a
// degenerate geometry error.
func (s DouglasPeucker) Simplify(p orb.Polygon) (orb.Polygon, error) {
	if !coverage.IsFinite(s.Tolerance) || s.Tolerance < 0 {
		return nil, coverage.ConfigurationErrorf("simplify tolerance must be a non-negative number, got %v", s.Tolerance)
	}
	if len(p) == 0 {
		return nil, coverage.DegenerateGeometryErrorf("polygon has no exterior")
	}

	out := simplify.DouglasPeucker(s.Tolerance).Polygon(p.Clone())
	if len(out) == 0 || !validRing(out[0]) {
		return nil, coverage.DegenerateGeometryErrorf(
			"exterior collapsed from %d to %d vertices at tolerance %g", len(p[0]), ringLen(out), s.Tolerance)
	}

	kept := out[:1]
	for _, h := range out[1:] {
		if validRing(h) {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// validRing reports whether r is a closed ring of at least three distinct
// vertices enclosing some area.
func validRing(r orb.Ring) bool {
	return len(r) >= 4 && planar.Area(r) != 0
}

func ringLen(p orb.Polygon) int {
	if len(p) == 0 {
		return 0
	}
	return len(p[0])
}
