package l2raster

import (
	"github.com/paulmach/orb"

	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l1grid"
	"github.com/banshee-data/coverage.planner/internal/monitoring"
)

// Options controls how features are turned into bin occupancy.
type Options struct {
	// SampleDistance is the spacing, in world units, of samples taken
	// along lines and polygon outlines.
	SampleDistance float64
	// Infill fills polygon interiors. When false only the outline is
	// sampled.
	Infill bool
}

// DefaultOptions returns one-metre sampling with polygon infill.
func DefaultOptions() Options {
	return Options{SampleDistance: 1, Infill: true}
}

// Validate checks that the options can be used for rasterization.
func (o Options) Validate() error {
	if !coverage.IsFinite(o.SampleDistance) || o.SampleDistance <= 0 {
		return coverage.ConfigurationErrorf("sample distance must be positive, got %v", o.SampleDistance)
	}
	return nil
}

// Layer is a named, homogeneous collection of features. All features of a
// layer share one kind; the kind is resolved by NewLayer and never
// re-inspected.
type Layer struct {
	name     string
	kind     FeatureKind
	features []Feature
	// infill overrides Options.Infill for this layer when set.
	infill *bool
}

// NewLayer classifies geoms into features. Multi-geometries and
// collections are flattened. Mixing lines with polygons, or passing points,
// fails with an input type error.
func NewLayer(name string, geoms []orb.Geometry) (*Layer, error) {
	l := &Layer{name: name}
	for _, g := range geoms {
		if err := l.add(g); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// WithInfill returns a copy of the layer that overrides the polygon infill
// option.
func (l *Layer) WithInfill(infill bool) *Layer {
	c := *l
	c.infill = &infill
	return &c
}

func (l *Layer) add(g orb.Geometry) error {
	switch g := g.(type) {
	case orb.LineString:
		return l.push(LineFeature{Line: g.Clone()})
	case orb.MultiLineString:
		for _, ls := range g {
			if err := l.push(LineFeature{Line: ls.Clone()}); err != nil {
				return err
			}
		}
		return nil
	case orb.Ring:
		return l.push(PolygonFeature{Polygon: orb.Polygon{g.Clone()}})
	case orb.Polygon:
		return l.push(PolygonFeature{Polygon: g.Clone()})
	case orb.MultiPolygon:
		for _, p := range g {
			if err := l.push(PolygonFeature{Polygon: p.Clone()}); err != nil {
				return err
			}
		}
		return nil
	case orb.Bound:
		return l.push(PolygonFeature{Polygon: g.ToPolygon()})
	case orb.Collection:
		for _, c := range g {
			if err := l.add(c); err != nil {
				return err
			}
		}
		return nil
	default:
		return unsupportedGeometry(l.name, g)
	}
}

func (l *Layer) push(f Feature) error {
	if l.kind == KindNone {
		l.kind = f.Kind()
	} else if l.kind != f.Kind() {
		return coverage.InputTypeErrorf("layer %q mixes %s and %s features", l.name, l.kind, f.Kind())
	}
	l.features = append(l.features, f)
	return nil
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Kind returns the kind shared by every feature of the layer.
func (l *Layer) Kind() FeatureKind { return l.kind }

// Len returns the number of features.
func (l *Layer) Len() int { return len(l.features) }

// Rasterize builds the probability grid of a layer: every bin touched by a
// sample or fill is set to 1, then the grid is divided by the number of
// occupied bins so it sums to 1. A layer that touches no bin yields an
// all-zero grid and a warning.
func Rasterize(g *l1grid.GridIndex, l *Layer, opts Options) (*l1grid.Surface, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if l.infill != nil {
		opts.Infill = *l.infill
	}

	occ := newOccupancy(g)
	for _, f := range l.features {
		f.mark(g, opts, occ)
	}

	if occ.filled == 0 {
		monitoring.Warnf("layer %q has no features inside the survey grid; contributing zeros", l.name)
		return l1grid.Zeros(g), nil
	}

	values := make([]float64, len(occ.cells))
	w := 1 / float64(occ.filled)
	for idx, on := range occ.cells {
		if on {
			values[idx] = w
		}
	}
	return l1grid.NewSurfaceFromValues(g, values)
}
