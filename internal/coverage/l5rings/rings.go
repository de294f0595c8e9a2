package l5rings

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/monitoring"
)

// Generator turns a region polygon into nested rings.
type Generator struct {
	Offset   OffsetOperator
	Simplify Simplifier
	// Spacing is the inward offset between consecutive rings, typically
	// twice the sensor radius.
	Spacing float64
	// MinRingArea drops rings enclosing less than this world area.
	MinRingArea float64
}

// NewGenerator returns a generator using Clipper offsets and
// Douglas-Peucker simplification at tolerance.
func NewGenerator(spacing, tolerance, minRingArea float64) *Generator {
	return &Generator{
		Offset:      NewClipperOffset(),
		Simplify:    DouglasPeucker{Tolerance: tolerance},
		Spacing:     spacing,
		MinRingArea: minRingArea,
	}
}

// Validate checks the generator parameters.
func (g *Generator) Validate() error {
	if g.Offset == nil || g.Simplify == nil {
		return coverage.ConfigurationErrorf("ring generator needs an offset operator and a simplifier")
	}
	if !coverage.IsFinite(g.Spacing) || g.Spacing <= 0 {
		return coverage.ConfigurationErrorf("ring spacing must be positive, got %v", g.Spacing)
	}
	if !coverage.IsFinite(g.MinRingArea) || g.MinRingArea < 0 {
		return coverage.ConfigurationErrorf("minimum ring area must be a non-negative number, got %v", g.MinRingArea)
	}
	return nil
}

// Rings simplifies region and returns it followed by its successive inward
// offsets. The components of one offset are listed together, then the
// first of them is expanded before its siblings.
//
// Offsetting runs on an explicit stack. A non-empty offset pushes each of
// its components; an empty offset is retried once at half the spacing and
// those components are kept but not offset further. A component is only
// pushed when its area is strictly smaller than its parent's, so the
// stack always drains.
func (g *Generator) Rings(region orb.Polygon) ([]orb.Polygon, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	simplified, err := g.Simplify.Simplify(region)
	if err != nil {
		return nil, err
	}

	var rings []orb.Polygon
	keep := func(p orb.Polygon) {
		if planar.Area(p) >= g.MinRingArea {
			rings = append(rings, p)
		}
	}
	keep(simplified)

	type item struct {
		poly orb.Polygon
		area float64
	}
	stack := []item{{simplified, planar.Area(simplified)}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		shrunk, err := g.Offset.Offset(top.poly, g.Spacing)
		if err != nil {
			return nil, fmt.Errorf("offset ring by %g: %w", g.Spacing, err)
		}
		if len(shrunk) == 0 {
			half, err := g.Offset.Offset(top.poly, g.Spacing/2)
			if err != nil {
				return nil, fmt.Errorf("offset ring by %g: %w", g.Spacing/2, err)
			}
			for _, p := range half {
				keep(p)
			}
			continue
		}

		// Push in reverse so the first component is expanded first.
		var children []item
		for _, p := range shrunk {
			keep(p)
			a := planar.Area(p)
			if a < top.area {
				children = append(children, item{p, a})
			} else {
				monitoring.Warnf("offset ring area %.3g did not shrink below %.3g; not offsetting further", a, top.area)
			}
		}
		for k := len(children) - 1; k >= 0; k-- {
			stack = append(stack, children[k])
		}
	}
	return rings, nil
}
