package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l1grid"
	"github.com/banshee-data/coverage.planner/internal/coverage/l2raster"
	"github.com/banshee-data/coverage.planner/internal/coverage/l3heatmap"
	"github.com/banshee-data/coverage.planner/internal/coverage/l4contour"
	"github.com/banshee-data/coverage.planner/internal/coverage/l5rings"
	"github.com/banshee-data/coverage.planner/internal/coverage/l6paths"
	"github.com/banshee-data/coverage.planner/internal/monitoring"
	"github.com/banshee-data/coverage.planner/internal/timeutil"
)

// LayerInput is the geometry of one layer plus optional overrides of the
// configured smoothing, weight and polygon infill.
type LayerInput struct {
	Geometry []orb.Geometry
	Sigma    *float64
	Alpha    *float64
	Infill   *bool
}

// Thresholds holds the post-combine parameters of a run.
type Thresholds struct {
	ContourThreshold float64 `json:"contour_threshold"`
	MinFeatureArea   float64 `json:"min_feature_area"`
	SensorRadius     float64 `json:"sensor_radius"`
	RingSpacing      float64 `json:"ring_spacing"`
	ContourSmoothing float64 `json:"contour_smoothing"`
	MinRingArea      float64 `json:"min_ring_area"`
	MaxPathLength    float64 `json:"max_path_length"`

	CutPolicy l6paths.CutPolicy `json:"-"`
	Origin    orb.Point         `json:"-"`
}

// ThresholdsFromConfig reads the run thresholds from cfg. A sweep camera
// sets the ring spacing unless ring_spacing is given explicitly.
func ThresholdsFromConfig(cfg *config.PlannerConfig) (Thresholds, error) {
	policy, err := l6paths.ParseCutPolicy(cfg.GetCutPolicy())
	if err != nil {
		return Thresholds{}, err
	}
	origin := cfg.GetStartOrigin()
	spacing := cfg.GetRingSpacing()
	if cfg.Sweep != nil && cfg.RingSpacing == nil {
		if spacing, err = l5rings.SweepOffset(cfg.Sweep.Overlap, cfg.Sweep.Height, cfg.Sweep.FOVDeg); err != nil {
			return Thresholds{}, err
		}
	}
	return Thresholds{
		ContourThreshold: cfg.GetContourThreshold(),
		MinFeatureArea:   cfg.GetMinFeatureArea(),
		SensorRadius:     cfg.GetSensorRadius(),
		RingSpacing:      spacing,
		ContourSmoothing: cfg.GetContourSmoothing(),
		MinRingArea:      cfg.GetMinRingArea(),
		MaxPathLength:    cfg.GetMaxPathLength(),
		CutPolicy:        policy,
		Origin:           orb.Point{origin[0], origin[1]},
	}, nil
}

// LayerParamsFromConfig reads the smoothing and weight of one layer from
// cfg. A smoothing_width in metres is converted to a sigma in bins and
// wins over sigma.
func LayerParamsFromConfig(cfg *config.PlannerConfig, name string) l3heatmap.LayerParams {
	p := l3heatmap.LayerParams{Sigma: cfg.GetLayerSigma(name), Alpha: cfg.GetLayerAlpha(name)}
	if width, ok := cfg.GetLayerSmoothingWidth(name); ok {
		p.Sigma = l3heatmap.FilterSigma(width, cfg.GetMeterPerBin())
	}
	return p
}

// Planner holds the rasterized layers of one survey. Rasterization runs
// once in NewPlanner; Run may then be called any number of times, also
// concurrently, with different parameters.
type Planner struct {
	boundary orb.Polygon
	grid     *l1grid.GridIndex
	combiner *l3heatmap.Combiner
	params   map[string]l3heatmap.LayerParams
	th       Thresholds
	clock    timeutil.Clock
	offset   l5rings.OffsetOperator
}

// NewPlanner builds the grid around boundary and rasterizes every layer.
// The configured values become the defaults returned by Params and
// Thresholds.
func NewPlanner(ctx context.Context, boundary orb.Polygon, layers map[string]LayerInput, cfg *config.PlannerConfig) (*Planner, error) {
	if cfg == nil {
		cfg = config.EmptyPlannerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, coverage.ConfigurationErrorf("%v", err)
	}
	if len(boundary) == 0 || len(boundary[0]) < 4 || planar.Area(boundary) == 0 {
		return nil, coverage.ConfigurationErrorf("empty survey boundary")
	}
	if len(layers) == 0 {
		return nil, coverage.ConfigurationErrorf("no layers to plan over")
	}
	th, err := ThresholdsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	clock := timeutil.Clock(timeutil.RealClock{})
	stage := monitoring.StartStage(clock, "rasterize")

	grid, err := l1grid.NewGridIndex(boundary.Bound(), cfg.GetBuffer(), cfg.GetMeterPerBin())
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(layers))
	for name := range layers {
		names = append(names, name)
	}
	sort.Strings(names)

	rasterLayers := make([]*l2raster.Layer, 0, len(names))
	params := make(map[string]l3heatmap.LayerParams, len(names))
	for _, name := range names {
		in := layers[name]
		l, err := l2raster.NewLayer(name, in.Geometry)
		if err != nil {
			return nil, err
		}
		infill := cfg.GetLayerInfill(name)
		if in.Infill != nil {
			infill = *in.Infill
		}
		rasterLayers = append(rasterLayers, l.WithInfill(infill))

		p := LayerParamsFromConfig(cfg, name)
		if in.Sigma != nil {
			p.Sigma = *in.Sigma
		}
		if in.Alpha != nil {
			p.Alpha = *in.Alpha
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("layer %q: %w", name, err)
		}
		params[name] = p
	}

	opts := l2raster.Options{SampleDistance: cfg.GetSampleDistance(), Infill: cfg.GetInfillPolygons()}
	surfaces, err := l2raster.RasterizeAll(ctx, grid, rasterLayers, opts, cfg.GetWorkers())
	if err != nil {
		return nil, err
	}
	combiner, err := l3heatmap.NewCombiner(surfaces)
	if err != nil {
		return nil, err
	}
	stage.Stop()

	return &Planner{
		boundary: boundary.Clone(),
		grid:     grid,
		combiner: combiner,
		params:   params,
		th:       th,
		clock:    clock,
		offset:   l5rings.NewClipperOffset(),
	}, nil
}

// SetClock replaces the clock used for stage timings. Call before Run.
func (p *Planner) SetClock(c timeutil.Clock) { p.clock = c }

// SetOffsetOperator replaces the polygon offset used for rings. Call
// before Run.
func (p *Planner) SetOffsetOperator(op l5rings.OffsetOperator) { p.offset = op }

// Grid returns the grid shared by every run.
func (p *Planner) Grid() *l1grid.GridIndex { return p.grid }

// Boundary returns a copy of the survey boundary.
func (p *Planner) Boundary() orb.Polygon { return p.boundary.Clone() }

// Layers returns the layer names in sorted order.
func (p *Planner) Layers() []string { return p.combiner.Names() }

// Layer returns the normalized grid of one layer.
func (p *Planner) Layer(name string) (*l1grid.Surface, bool) { return p.combiner.Layer(name) }

// Params returns a copy of the default layer parameters.
func (p *Planner) Params() map[string]l3heatmap.LayerParams {
	out := make(map[string]l3heatmap.LayerParams, len(p.params))
	for k, v := range p.params {
		out[k] = v
	}
	return out
}

// Thresholds returns the default thresholds.
func (p *Planner) Thresholds() Thresholds { return p.th }

// Run combines the layers with params and extracts regions, rings and
// paths using th. Every parameter is checked before any stage runs.
func (p *Planner) Run(params map[string]l3heatmap.LayerParams, th Thresholds) (*Result, error) {
	gen := &l5rings.Generator{
		Offset:      p.offset,
		Simplify:    l5rings.DouglasPeucker{Tolerance: th.ContourSmoothing},
		Spacing:     th.RingSpacing,
		MinRingArea: th.MinRingArea,
	}
	seg := &l6paths.Segmenter{
		MaxLength:    th.MaxPathLength,
		SensorRadius: th.SensorRadius,
		Origin:       th.Origin,
		Policy:       th.CutPolicy,
	}
	if err := validateThresholds(th); err != nil {
		return nil, err
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	if err := seg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:      uuid.New(),
		Boundary:   p.boundary.Clone(),
		Grid:       p.grid,
		Params:     copyParams(params),
		Thresholds: th,
	}
	timed := func(name string, fn func() error) error {
		stage := monitoring.StartStage(p.clock, name)
		err := fn()
		res.Timings = append(res.Timings, StageTiming{Stage: name, Duration: stage.Stop()})
		return err
	}

	if err := timed("heatmap", func() (err error) {
		res.Heatmap, err = p.combiner.Combine(params)
		return err
	}); err != nil {
		return nil, err
	}

	if err := timed("regions", func() (err error) {
		res.Regions, err = l4contour.Extract(res.Heatmap, th.ContourThreshold, th.MinFeatureArea)
		return err
	}); err != nil {
		return nil, err
	}
	if len(res.Regions) == 0 {
		return nil, coverage.EmptyResultErrorf("no region reaches the minimum area of %g", th.MinFeatureArea)
	}

	if err := timed("coverage", func() error {
		for i, region := range res.Regions {
			rings, err := gen.Rings(region.Polygon())
			if errors.Is(err, coverage.ErrDegenerateGeometry) {
				monitoring.Warnf("dropping region %d (%.1f m2): %v", i, region.Area(), err)
				continue
			}
			if err != nil {
				return fmt.Errorf("region %d: %w", i, err)
			}
			res.Rings = append(res.Rings, RegionRings{Region: i, Rings: rings})
			for k, ring := range rings {
				paths, err := seg.Segment(i, k, ring)
				if err != nil {
					return fmt.Errorf("region %d ring %d: %w", i, k, err)
				}
				res.Paths = append(res.Paths, paths...)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(res.Rings) == 0 {
		return nil, coverage.EmptyResultErrorf("every region degenerated during ring generation")
	}
	return res, nil
}

func validateThresholds(th Thresholds) error {
	if !coverage.IsFinite(th.MinFeatureArea) || th.MinFeatureArea < 0 {
		return coverage.ConfigurationErrorf("minimum feature area must be a non-negative number, got %v", th.MinFeatureArea)
	}
	if !coverage.IsFinite(th.ContourSmoothing) || th.ContourSmoothing < 0 {
		return coverage.ConfigurationErrorf("contour smoothing must be a non-negative number, got %v", th.ContourSmoothing)
	}
	return nil
}

func copyParams(in map[string]l3heatmap.LayerParams) map[string]l3heatmap.LayerParams {
	out := make(map[string]l3heatmap.LayerParams, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Plan rasterizes layers over boundary and runs the pipeline once with the
// parameters from cfg.
func Plan(ctx context.Context, boundary orb.Polygon, layers map[string]LayerInput, cfg *config.PlannerConfig) (*Result, error) {
	p, err := NewPlanner(ctx, boundary, layers, cfg)
	if err != nil {
		return nil, err
	}
	return p.Run(p.Params(), p.Thresholds())
}

// StageTiming records how long one stage of a run took.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}
