package features

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/fsutil"
)

// BoundaryRole marks the boundary feature in a mixed collection.
const BoundaryRole = "boundary"

// GeoJSONProvider serves layers from an in-memory FeatureCollection.
type GeoJSONProvider struct {
	fc *geojson.FeatureCollection
}

// NewGeoJSONProvider parses a GeoJSON FeatureCollection.
func NewGeoJSONProvider(data []byte) (*GeoJSONProvider, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}
	return &GeoJSONProvider{fc: fc}, nil
}

// LoadGeoJSONProvider reads and parses a GeoJSON file from fs.
func LoadGeoJSONProvider(fs fsutil.FileSystem, path string) (*GeoJSONProvider, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewGeoJSONProvider(data)
}

// Fetch returns copies of the geometries selected for layer.
func (p *GeoJSONProvider) Fetch(ctx context.Context, layer string, tags Tags) ([]orb.Geometry, error) {
	var out []orb.Geometry
	for _, f := range p.fc.Features {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isBoundary(f) || !Selects(f, layer, tags) {
			continue
		}
		out = append(out, orb.Clone(f.Geometry))
	}
	return out, nil
}

// Layers returns the distinct layer property values in first-seen order.
func (p *GeoJSONProvider) Layers() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range p.fc.Features {
		name, ok := f.Properties[LayerProperty].(string)
		if !ok || seen[name] || isBoundary(f) {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Boundary returns the survey boundary held in the collection: the feature
// with role "boundary", or else the largest polygon with no layer.
func (p *GeoJSONProvider) Boundary() (orb.Polygon, error) {
	var best orb.Polygon
	bestArea := 0.0
	for _, f := range p.fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			continue
		}
		if isBoundary(f) {
			return poly.Clone(), nil
		}
		if _, hasLayer := f.Properties[LayerProperty]; hasLayer {
			continue
		}
		if a := planar.Area(poly); a > bestArea {
			best, bestArea = poly, a
		}
	}
	if best == nil {
		return nil, coverage.InputTypeErrorf("no boundary polygon in feature collection")
	}
	return best.Clone(), nil
}

// ParseBoundary reads a boundary polygon from a GeoJSON document holding
// a FeatureCollection, a single Feature or a bare geometry.
func ParseBoundary(data []byte) (orb.Polygon, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		return (&GeoJSONProvider{fc: fc}).Boundary()
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		if poly, ok := f.Geometry.(orb.Polygon); ok {
			return poly, nil
		}
		return nil, coverage.InputTypeErrorf("boundary feature is %s, want Polygon", f.Geometry.GeoJSONType())
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundary: %w", err)
	}
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok {
		return nil, coverage.InputTypeErrorf("boundary geometry is %s, want Polygon", g.Type)
	}
	return poly, nil
}

func isBoundary(f *geojson.Feature) bool {
	role, _ := f.Properties["role"].(string)
	return role == BoundaryRole
}
