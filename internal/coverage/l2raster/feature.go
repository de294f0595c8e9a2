package l2raster

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/resample"

	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l1grid"
)

// FeatureKind identifies the geometry family of a feature.
type FeatureKind int

const (
	// KindNone is the kind of a layer with no features.
	KindNone FeatureKind = iota
	// KindLine is a linear feature such as a road or river.
	KindLine
	// KindPolygon is an areal feature such as a building or forest.
	KindPolygon
)

func (k FeatureKind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	default:
		return "none"
	}
}

// Feature is a single geometry resolved to a known kind. The set of
// implementations is closed: LineFeature and PolygonFeature.
type Feature interface {
	Kind() FeatureKind
	mark(g *l1grid.GridIndex, opts Options, occ *occupancy)
}

// LineFeature is a polyline sampled at even intervals.
type LineFeature struct {
	Line orb.LineString
}

// Kind implements Feature.
func (LineFeature) Kind() FeatureKind { return KindLine }

func (f LineFeature) mark(g *l1grid.GridIndex, opts Options, occ *occupancy) {
	for _, p := range sampleLine(f.Line, opts.SampleDistance) {
		occ.markPoint(g, p)
	}
}

// PolygonFeature is an areal feature, filled or outlined depending on
// Options.Infill.
type PolygonFeature struct {
	Polygon orb.Polygon
}

// Kind implements Feature.
func (PolygonFeature) Kind() FeatureKind { return KindPolygon }

func (f PolygonFeature) mark(g *l1grid.GridIndex, opts Options, occ *occupancy) {
	if opts.Infill && fillPolygon(g, f.Polygon, occ) > 0 {
		return
	}
	// Outline sampling, also used when a polygon is too small to cover
	// any bin centre.
	for _, r := range f.Polygon {
		for _, p := range sampleLine(orb.LineString(r), opts.SampleDistance) {
			occ.markPoint(g, p)
		}
	}
}

// sampleLine returns floor(L/d)+1 evenly spaced points along ls, including
// both ends, or the single midpoint when the line is shorter than d.
func sampleLine(ls orb.LineString, d float64) []orb.Point {
	switch len(ls) {
	case 0:
		return nil
	case 1:
		return []orb.Point{ls[0]}
	}
	length := planar.Length(ls)
	if length < d {
		return []orb.Point{coverage.Interpolate(ls, length/2)}
	}
	return resample.ToInterval(ls.Clone(), planar.Distance, d)
}

// fillPolygon marks every bin whose centre lies inside p under the even-odd
// rule over all of its rings. It returns the number of bins marked.
func fillPolygon(g *l1grid.GridIndex, p orb.Polygon, occ *occupancy) int {
	if len(p) == 0 {
		return 0
	}
	nx, ny := g.Dims()
	dx, dy := g.CellSize()
	origin := g.Origin()
	b := p.Bound()

	j0 := int(math.Ceil((b.Min[1]-origin[1])/dy - 0.5))
	j1 := int(math.Floor((b.Max[1]-origin[1])/dy - 0.5))
	if j0 < 0 {
		j0 = 0
	}
	if j1 > ny-1 {
		j1 = ny - 1
	}

	marked := 0
	var xs []float64
	for j := j0; j <= j1; j++ {
		y := origin[1] + (float64(j)+0.5)*dy
		xs = xs[:0]
		for _, r := range p {
			xs = appendCrossings(xs, r, y)
		}
		sort.Float64s(xs)
		for k := 0; k+1 < len(xs); k += 2 {
			// Bin centres c_i with xs[k] <= c_i < xs[k+1].
			i0 := int(math.Ceil((xs[k]-origin[0])/dx - 0.5))
			i1 := int(math.Ceil((xs[k+1]-origin[0])/dx-0.5)) - 1
			if i0 < 0 {
				i0 = 0
			}
			if i1 > nx-1 {
				i1 = nx - 1
			}
			for i := i0; i <= i1; i++ {
				occ.mark(i, j)
				marked++
			}
		}
	}
	return marked
}

// appendCrossings appends the x positions where ring edges cross the
// horizontal line at y. Edges are half-open in y so shared vertices count
// once.
func appendCrossings(xs []float64, r orb.Ring, y float64) []float64 {
	n := len(r)
	if n < 2 {
		return xs
	}
	for i := 0; i < n; i++ {
		a, b := r[i], r[(i+1)%n]
		if (a[1] > y) == (b[1] > y) {
			continue
		}
		xs = append(xs, a[0]+(y-a[1])*(b[0]-a[0])/(b[1]-a[1]))
	}
	return xs
}

// occupancy is a per-layer bin mask. Overlapping samples count once.
type occupancy struct {
	ny     int
	cells  []bool
	filled int
}

func newOccupancy(g *l1grid.GridIndex) *occupancy {
	nx, ny := g.Dims()
	return &occupancy{ny: ny, cells: make([]bool, nx*ny)}
}

func (o *occupancy) mark(i, j int) {
	idx := i*o.ny + j
	if !o.cells[idx] {
		o.cells[idx] = true
		o.filled++
	}
}

func (o *occupancy) markPoint(g *l1grid.GridIndex, p orb.Point) {
	if i, j, ok := g.BinOf(p); ok {
		o.mark(i, j)
	}
}

// unsupportedGeometry formats the error for a geometry the rasterizer
// cannot classify.
func unsupportedGeometry(layer string, g orb.Geometry) error {
	name := "nil"
	if g != nil {
		name = fmt.Sprintf("%T", g)
	}
	return coverage.InputTypeErrorf("layer %q: unsupported geometry %s", layer, name)
}
