package pipeline

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/coverage.planner/internal/coverage/l1grid"
	"github.com/banshee-data/coverage.planner/internal/coverage/l3heatmap"
	"github.com/banshee-data/coverage.planner/internal/coverage/l4contour"
	"github.com/banshee-data/coverage.planner/internal/coverage/l6paths"
)

// Feature roles used in exported collections.
const (
	RoleBoundary = "boundary"
	RoleRegion   = "region"
	RoleRing     = "ring"
	RolePath     = "path"
)

// Result is the output of one run. Nothing in it aliases planner state or
// another result.
type Result struct {
	RunID      uuid.UUID
	Boundary   orb.Polygon
	Grid       *l1grid.GridIndex
	Heatmap    *l1grid.Surface
	Regions    []*l4contour.RegionNode
	Rings      []RegionRings
	Paths      []l6paths.CoveragePath
	Params     map[string]l3heatmap.LayerParams
	Thresholds Thresholds
	Timings    []StageTiming
}

// RegionRings lists the rings generated for one region, outermost first.
// Region indexes Result.Regions.
type RegionRings struct {
	Region int
	Rings  []orb.Polygon
}

// Summary is a compact description of a result.
type Summary struct {
	RunID       string        `json:"run_id"`
	Regions     int           `json:"regions"`
	Rings       int           `json:"rings"`
	Paths       int           `json:"paths"`
	TotalLength float64       `json:"total_length"`
	HeatmapMax  float64       `json:"heatmap_max"`
	Timings     []StageTiming `json:"timings"`
}

// Summary counts the result's regions, rings and paths.
func (r *Result) Summary() Summary {
	s := Summary{
		RunID:      r.RunID.String(),
		Regions:    len(r.Regions),
		Paths:      len(r.Paths),
		HeatmapMax: r.Heatmap.Max(),
		Timings:    append([]StageTiming(nil), r.Timings...),
	}
	for _, rr := range r.Rings {
		s.Rings += len(rr.Rings)
	}
	for _, p := range r.Paths {
		s.TotalLength += p.Length
	}
	return s
}

// FeatureCollection exports the boundary, regions, rings and paths as
// GeoJSON features tagged with a "role" property. Paths carry their
// region, ring, length and position in the travel order.
func (r *Result) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{"run_id": r.RunID.String()}

	if len(r.Boundary) > 0 {
		f := geojson.NewFeature(r.Boundary.Clone())
		f.Properties["role"] = RoleBoundary
		fc.Append(f)
	}
	for i, region := range r.Regions {
		f := geojson.NewFeature(region.Polygon())
		f.Properties["role"] = RoleRegion
		f.Properties["region"] = i
		f.Properties["area"] = region.Area()
		fc.Append(f)
	}
	for _, rr := range r.Rings {
		for k, ring := range rr.Rings {
			f := geojson.NewFeature(ring.Clone())
			f.Properties["role"] = RoleRing
			f.Properties["region"] = rr.Region
			f.Properties["ring"] = k
			fc.Append(f)
		}
	}
	for order, p := range r.Paths {
		f := geojson.NewFeature(p.Line.Clone())
		f.Properties["role"] = RolePath
		f.Properties["region"] = p.Region
		f.Properties["ring"] = p.Ring
		f.Properties["order"] = order
		f.Properties["length"] = p.Length
		fc.Append(f)
	}
	return fc
}
