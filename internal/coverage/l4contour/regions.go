package l4contour

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l1grid"
)

// RegionNode is one node of the region tree. A top-level node is an outer
// boundary; its children are the holes inside it. Holes have no children:
// foreground islands inside a hole are separate top-level regions.
//
// Nodes are built once by Extract and never modified; accessors return
// copies.
type RegionNode struct {
	ring  orb.Ring
	holes []*RegionNode
	// binArea is the unsigned area enclosed by ring, in bins.
	binArea float64
}

// Ring returns a copy of the boundary ring in world coordinates.
func (n *RegionNode) Ring() orb.Ring { return n.ring.Clone() }

// Holes returns the hole nodes of an outer region.
func (n *RegionNode) Holes() []*RegionNode { return append([]*RegionNode(nil), n.holes...) }

// Polygon returns a fresh polygon with the boundary as exterior and every
// hole as an interior ring.
func (n *RegionNode) Polygon() orb.Polygon {
	p := make(orb.Polygon, 0, 1+len(n.holes))
	p = append(p, n.ring.Clone())
	for _, h := range n.holes {
		p = append(p, h.ring.Clone())
	}
	return p
}

// Area returns the world area of the region net of its holes.
func (n *RegionNode) Area() float64 { return planar.Area(n.Polygon()) }

// BinArea returns the area enclosed by the boundary ring, in bins,
// ignoring holes.
func (n *RegionNode) BinArea() float64 { return n.binArea }

// Extract thresholds the heatmap at tau and returns the region tree of the
// foreground. minArea is in world units; outer boundaries and holes
// enclosing less than minArea are dropped. Regions are ordered by the
// raster position (j outer, i inner) of their first bin.
//
// An empty slice with a nil error means every region was below minArea.
func Extract(heatmap *l1grid.Surface, tau, minArea float64) ([]*RegionNode, error) {
	if !coverage.IsFinite(minArea) || minArea < 0 {
		return nil, coverage.ConfigurationErrorf("minimum region area must be a non-negative number, got %v", minArea)
	}
	mask, err := Threshold(heatmap, tau)
	if err != nil {
		return nil, err
	}
	g := heatmap.Grid()
	return buildRegions(mask, g, minArea/g.CellArea()), nil
}

// buildRegions assigns each traced loop to its 8-connected component and
// maps the surviving loops to world coordinates.
func buildRegions(mask *Mask, g *l1grid.GridIndex, minBinArea float64) []*RegionNode {
	labels, n := mask.components()
	outers := make([]*RegionNode, n)
	holes := make([][]*RegionNode, n)

	for _, l := range traceLoops(mask) {
		comp := labels[l.pixel]
		area := l.area
		if area < 0 {
			area = -area
		}
		if area < minBinArea {
			continue
		}
		node := &RegionNode{ring: toWorld(g, l.vertices), binArea: area}
		if l.area > 0 {
			outers[comp] = node
		} else {
			holes[comp] = append(holes[comp], node)
		}
	}

	regions := make([]*RegionNode, 0, n)
	for comp, outer := range outers {
		if outer == nil {
			continue
		}
		outer.holes = holes[comp]
		regions = append(regions, outer)
	}
	return regions
}

func toWorld(g *l1grid.GridIndex, vertices []corner) orb.Ring {
	r := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		r = append(r, g.BinToWorld(v.i, v.j))
	}
	return append(r, r[0])
}
