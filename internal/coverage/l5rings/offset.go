package l5rings

import (
	"math"
	"sort"

	clipper "github.com/ctessum/go.clipper"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/coverage.planner/internal/coverage"
)

// OffsetOperator shrinks a polygon inwards by delta world units. An empty
// result means the polygon vanished. A polygon may split into several.
type OffsetOperator interface {
	Offset(p orb.Polygon, delta float64) (orb.MultiPolygon, error)
}

// ClipperOffset offsets polygons with round joins using Clipper on a
// fixed-point copy of the coordinates.
type ClipperOffset struct {
	// Scale converts world units to Clipper integers. Defaults to 1000,
	// millimetre precision for metric input.
	Scale float64
	// ArcTolerance is the maximum deviation of round joins from a true
	// arc, in world units. Defaults to 0.05.
	ArcTolerance float64
}

// NewClipperOffset returns an offset operator with default precision.
func NewClipperOffset() *ClipperOffset {
	return &ClipperOffset{Scale: 1000, ArcTolerance: 0.05}
}

// Offset implements OffsetOperator. Outer rings of the result are
// counter-clockwise and holes clockwise.
func (c *ClipperOffset) Offset(p orb.Polygon, delta float64) (orb.MultiPolygon, error) {
	if !coverage.IsFinite(delta) || delta < 0 {
		return nil, coverage.ConfigurationErrorf("offset distance must be a non-negative number, got %v", delta)
	}
	if len(p) == 0 {
		return nil, nil
	}
	scale := c.Scale
	if scale <= 0 {
		scale = 1000
	}
	tol := c.ArcTolerance
	if tol <= 0 {
		tol = 0.05
	}

	co := clipper.NewClipperOffset()
	co.ArcTolerance = tol * scale
	paths := make(clipper.Paths, 0, len(p))
	for _, r := range p {
		if path := toPath(r, scale); len(path) >= 3 {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return nil, nil
	}
	co.AddPaths(paths, clipper.JtRound, clipper.EtClosedPolygon)
	return assemble(co.Execute(-delta*scale), scale), nil
}

func toPath(r orb.Ring, scale float64) clipper.Path {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	path := make(clipper.Path, 0, n)
	for _, pt := range r[:n] {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(pt[0] * scale)),
			Y: clipper.CInt(math.Round(pt[1] * scale)),
		})
	}
	return path
}

func fromPath(path clipper.Path, scale float64) orb.Ring {
	r := make(orb.Ring, 0, len(path)+1)
	for _, pt := range path {
		r = append(r, orb.Point{float64(pt.X) / scale, float64(pt.Y) / scale})
	}
	if len(r) > 0 {
		r = append(r, r[0])
	}
	return r
}

type nestedRing struct {
	ring  orb.Ring
	area  float64
	depth int
}

// assemble groups Clipper output into polygons. Rings are classified by
// nesting depth rather than by winding, so even depths are exteriors and
// odd depths are holes of the smallest exterior containing them. Output
// exteriors are counter-clockwise and holes clockwise.
func assemble(paths clipper.Paths, scale float64) orb.MultiPolygon {
	var rings []nestedRing
	for _, path := range paths {
		if len(path) < 3 {
			continue
		}
		r := fromPath(path, scale)
		if a := math.Abs(planar.Area(r)); a > 0 {
			rings = append(rings, nestedRing{ring: r, area: a})
		}
	}
	if len(rings) == 0 {
		return nil
	}
	sort.SliceStable(rings, func(a, b int) bool { return rings[a].area > rings[b].area })

	// parent[k] is the smallest larger ring containing ring k.
	parent := make([]int, len(rings))
	for k := range rings {
		parent[k] = -1
		for c := k - 1; c >= 0; c-- {
			if rings[c].area > rings[k].area && planar.RingContains(rings[c].ring, rings[k].ring[0]) {
				parent[k] = c
				rings[k].depth = rings[c].depth + 1
				break
			}
		}
	}

	var mp orb.MultiPolygon
	index := make([]int, len(rings))
	for k, r := range rings {
		if r.depth%2 == 0 {
			orient(r.ring, orb.CCW)
			index[k] = len(mp)
			mp = append(mp, orb.Polygon{r.ring})
		}
	}
	for k, r := range rings {
		if r.depth%2 == 1 {
			orient(r.ring, orb.CW)
			owner := index[parent[k]]
			mp[owner] = append(mp[owner], r.ring)
		}
	}
	return mp
}

func orient(r orb.Ring, want orb.Orientation) {
	if r.Orientation() != want {
		r.Reverse()
	}
}
