package l1grid

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/banshee-data/coverage.planner/internal/coverage"
)

// GridIndex maps world coordinates of a survey region to integer bins.
//
// The bin counts are derived from the unbuffered extent:
// nx = floor((maxx-minx)/binSize). The edge arrays then span the buffered
// extent [minx-buffer, maxx+buffer] with nx+1 evenly spaced entries, so the
// real cell width may differ slightly from binSize. All mappings use the
// real cell size so that bins and edges always agree.
//
// A GridIndex is immutable after construction and safe for concurrent use.
type GridIndex struct {
	bounds  orb.Bound
	buffer  float64
	binSize float64

	nx, ny int
	dx, dy float64

	xEdges []float64
	yEdges []float64
}

// NewGridIndex builds the grid for bounds, padded by buffer on each side,
// with square bins of roughly binSize world units.
func NewGridIndex(bounds orb.Bound, buffer, binSize float64) (*GridIndex, error) {
	if !coverage.IsFinite(binSize) || binSize <= 0 {
		return nil, coverage.ConfigurationErrorf("bin size must be positive, got %v", binSize)
	}
	if !coverage.IsFinite(buffer) || buffer < 0 {
		return nil, coverage.ConfigurationErrorf("buffer must be non-negative, got %v", buffer)
	}
	if bounds.IsEmpty() || !coverage.IsFinite(bounds.Min[0]) || !coverage.IsFinite(bounds.Max[0]) ||
		!coverage.IsFinite(bounds.Min[1]) || !coverage.IsFinite(bounds.Max[1]) {
		return nil, coverage.ConfigurationErrorf("survey boundary has no extent: %v", bounds)
	}

	width := bounds.Max[0] - bounds.Min[0]
	height := bounds.Max[1] - bounds.Min[1]
	nx := int(math.Floor(width / binSize))
	ny := int(math.Floor(height / binSize))
	if nx < 1 || ny < 1 {
		return nil, coverage.ConfigurationErrorf(
			"survey boundary %.3gx%.3g is smaller than one %.3g bin", width, height, binSize)
	}

	g := &GridIndex{
		bounds:  bounds,
		buffer:  buffer,
		binSize: binSize,
		nx:      nx,
		ny:      ny,
		xEdges:  linspace(bounds.Min[0]-buffer, bounds.Max[0]+buffer, nx+1),
		yEdges:  linspace(bounds.Min[1]-buffer, bounds.Max[1]+buffer, ny+1),
	}
	g.dx = (width + 2*buffer) / float64(nx)
	g.dy = (height + 2*buffer) / float64(ny)
	return g, nil
}

// linspace returns n evenly spaced values with exact end points.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Dims returns the bin counts along x and y.
func (g *GridIndex) Dims() (nx, ny int) { return g.nx, g.ny }

// BinSize returns the requested bin size in world units.
func (g *GridIndex) BinSize() float64 { return g.binSize }

// Buffer returns the margin added around the boundary.
func (g *GridIndex) Buffer() float64 { return g.buffer }

// Bounds returns the unbuffered survey bounds.
func (g *GridIndex) Bounds() orb.Bound { return g.bounds }

// CellSize returns the real width and height of one bin.
func (g *GridIndex) CellSize() (dx, dy float64) { return g.dx, g.dy }

// CellArea returns the world area of one bin.
func (g *GridIndex) CellArea() float64 { return g.dx * g.dy }

// Origin returns the world position of the corner of bin (0, 0).
func (g *GridIndex) Origin() orb.Point { return orb.Point{g.xEdges[0], g.yEdges[0]} }

// XEdges returns a copy of the nx+1 bin edges along x.
func (g *GridIndex) XEdges() []float64 { return append([]float64(nil), g.xEdges...) }

// YEdges returns a copy of the ny+1 bin edges along y.
func (g *GridIndex) YEdges() []float64 { return append([]float64(nil), g.yEdges...) }

// Contains reports whether (i, j) addresses a bin of this grid.
func (g *GridIndex) Contains(i, j int) bool {
	return i >= 0 && i < g.nx && j >= 0 && j < g.ny
}

// WorldToBin maps a world point to the (possibly out of range) bin that
// contains it, truncating towards negative infinity.
func (g *GridIndex) WorldToBin(p orb.Point) (i, j int) {
	i = int(math.Floor((p[0] - g.xEdges[0]) / g.dx))
	j = int(math.Floor((p[1] - g.yEdges[0]) / g.dy))
	return i, j
}

// BinOf maps a world point to its bin using histogram rules: bins are
// half-open except the last one, which includes its right edge. ok is
// false for points outside the buffered extent.
func (g *GridIndex) BinOf(p orb.Point) (i, j int, ok bool) {
	i, ok = binOf(p[0], g.xEdges, g.dx)
	if !ok {
		return 0, 0, false
	}
	j, ok = binOf(p[1], g.yEdges, g.dy)
	if !ok {
		return 0, 0, false
	}
	return i, j, true
}

func binOf(v float64, edges []float64, step float64) (int, bool) {
	n := len(edges) - 1
	if !(v >= edges[0] && v <= edges[n]) {
		return 0, false
	}
	if v == edges[n] {
		return n - 1, true
	}
	idx := int((v - edges[0]) / step)
	// Rounding near an interior edge can land one bin off.
	if idx >= n {
		idx = n - 1
	}
	if idx > 0 && v < edges[idx] {
		idx--
	} else if idx+1 < n && v >= edges[idx+1] {
		idx++
	}
	return idx, true
}

// BinToWorld maps bin corner coordinates back to world coordinates. Corner
// (i, j) is the lower-left corner of bin (i, j); i may equal nx and j may
// equal ny for the outer corners.
func (g *GridIndex) BinToWorld(i, j int) orb.Point {
	return orb.Point{
		g.xEdges[0] + float64(i)*g.dx,
		g.yEdges[0] + float64(j)*g.dy,
	}
}

// BinCenter returns the world position of the centre of bin (i, j).
func (g *GridIndex) BinCenter(i, j int) orb.Point {
	return orb.Point{
		g.xEdges[0] + (float64(i)+0.5)*g.dx,
		g.yEdges[0] + (float64(j)+0.5)*g.dy,
	}
}
