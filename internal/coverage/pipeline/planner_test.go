package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l3heatmap"
	"github.com/banshee-data/coverage.planner/internal/monitoring"
	"github.com/banshee-data/coverage.planner/internal/timeutil"
)

func square(x0, y0, size float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0}}}
}

func diagonalLayers() map[string]LayerInput {
	return map[string]LayerInput{
		"roads": {Geometry: []orb.Geometry{orb.LineString{{0, 0}, {100, 100}}}},
	}
}

func diagonalConfig() *config.PlannerConfig {
	return config.EmptyPlannerConfig().WithMeterPerBin(1).WithContourThreshold(0)
}

func TestPlan_DiagonalEndToEnd(t *testing.T) {
	t.Parallel()

	cfg := diagonalConfig()
	res, err := Plan(context.Background(), square(0, 0, 100), diagonalLayers(), cfg)
	require.NoError(t, err)

	nx, ny := res.Heatmap.Dims()
	assert.Equal(t, 100, nx)
	assert.Equal(t, 100, ny)
	assert.Greater(t, res.Heatmap.Max(), 0.0)

	require.Len(t, res.Regions, 1)
	require.Len(t, res.Rings, 1)
	assert.NotEmpty(t, res.Rings[0].Rings)
	require.NotEmpty(t, res.Paths)

	// The first path leaves from the vertex nearest the origin, so after
	// trimming it starts closer to the origin than any of its interior
	// vertices.
	first := res.Paths[0]
	start := planar.Distance(first.Line[0], orb.Point{})
	for _, p := range first.Line[1 : len(first.Line)-1] {
		assert.Less(t, start, planar.Distance(p, orb.Point{}))
	}

	r := cfg.GetSensorRadius()
	for i, p := range res.Paths {
		assert.LessOrEqual(t, p.Length, cfg.GetMaxPathLength()+1e-6, "path %d", i)
		assert.GreaterOrEqual(t, p.Length, r-1e-6, "path %d", i)
		assert.Equal(t, 0, p.Region)
	}
}

func TestPlan_PathsAreOrderedByRegionThenRing(t *testing.T) {
	t.Parallel()

	layers := map[string]LayerInput{
		"fields": {Geometry: []orb.Geometry{square(5, 5, 40), square(60, 60, 35)}},
	}
	cfg := config.EmptyPlannerConfig().WithMeterPerBin(1).WithContourThreshold(0).WithSensorRadius(4)
	cfg.DefaultSigma = ptr(0.0)

	res, err := Plan(context.Background(), square(0, 0, 100), layers, cfg)
	require.NoError(t, err)
	require.Len(t, res.Regions, 2)

	lastRegion, lastRing := 0, 0
	for _, p := range res.Paths {
		if p.Region == lastRegion {
			assert.GreaterOrEqual(t, p.Ring, lastRing)
		} else {
			assert.Greater(t, p.Region, lastRegion)
		}
		lastRegion, lastRing = p.Region, p.Ring
	}
	assert.Equal(t, 1, lastRegion)
}

func TestPlanner_RunIsRepeatableAndIsolated(t *testing.T) {
	t.Parallel()

	p, err := NewPlanner(context.Background(), square(0, 0, 100), diagonalLayers(), diagonalConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"roads"}, p.Layers())

	before, ok := p.Layer("roads")
	require.True(t, ok)
	sumBefore := before.Sum()

	first, err := p.Run(p.Params(), p.Thresholds())
	require.NoError(t, err)

	doubled := p.Params()
	doubled["roads"] = l3heatmap.LayerParams{Sigma: doubled["roads"].Sigma, Alpha: 2}
	second, err := p.Run(doubled, p.Thresholds())
	require.NoError(t, err)

	assert.InDelta(t, 2*first.Heatmap.Max(), second.Heatmap.Max(), 1e-12)
	assert.NotEqual(t, first.RunID, second.RunID)

	after, _ := p.Layer("roads")
	assert.InDelta(t, sumBefore, after.Sum(), 1e-12)
	assert.InDelta(t, 1.0, after.Sum(), 1e-9)

	// Mutating one result leaves the next one intact.
	first.Paths[0].Line[0] = orb.Point{-99, -99}
	third, err := p.Run(p.Params(), p.Thresholds())
	require.NoError(t, err)
	assert.NotEqual(t, orb.Point{-99, -99}, third.Paths[0].Line[0])
}

func TestPlanner_ConcurrentRuns(t *testing.T) {
	t.Parallel()

	p, err := NewPlanner(context.Background(), square(0, 0, 100), diagonalLayers(), diagonalConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	counts := make([]int, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Run(p.Params(), p.Thresholds())
			errs[i] = err
			if err == nil {
				counts[i] = len(res.Paths)
			}
		}(i)
	}
	wg.Wait()
	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, counts[0], counts[i])
	}
}

func TestPlanner_InvalidParametersProduceNoOutput(t *testing.T) {
	t.Parallel()

	p, err := NewPlanner(context.Background(), square(0, 0, 100), diagonalLayers(), diagonalConfig())
	require.NoError(t, err)

	tests := []struct {
		name   string
		params map[string]l3heatmap.LayerParams
		th     func(Thresholds) Thresholds
	}{
		{"negative sigma", map[string]l3heatmap.LayerParams{"roads": {Sigma: -1, Alpha: 1}}, nil},
		{"negative alpha", map[string]l3heatmap.LayerParams{"roads": {Sigma: 1, Alpha: -1}}, nil},
		{"missing layer params", map[string]l3heatmap.LayerParams{}, nil},
		{"threshold above max", nil, func(th Thresholds) Thresholds { th.ContourThreshold = 10; return th }},
		{"negative threshold", nil, func(th Thresholds) Thresholds { th.ContourThreshold = -1; return th }},
		{"zero ring spacing", nil, func(th Thresholds) Thresholds { th.RingSpacing = 0; return th }},
		{"zero path length", nil, func(th Thresholds) Thresholds { th.MaxPathLength = 0; return th }},
		{"negative min area", nil, func(th Thresholds) Thresholds { th.MinFeatureArea = -1; return th }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			params := tt.params
			if params == nil {
				params = p.Params()
			}
			th := p.Thresholds()
			if tt.th != nil {
				th = tt.th(th)
			}
			res, err := p.Run(params, th)
			assert.ErrorIs(t, err, coverage.ErrConfiguration)
			assert.Nil(t, res)
		})
	}
}

func TestNewPlanner_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		name     string
		boundary orb.Polygon
		layers   map[string]LayerInput
		cfg      *config.PlannerConfig
		want     error
	}{
		{"no layers", square(0, 0, 100), nil, nil, coverage.ErrConfiguration},
		{"empty boundary", orb.Polygon{}, diagonalLayers(), nil, coverage.ErrConfiguration},
		{"bin larger than boundary", square(0, 0, 10), diagonalLayers(), config.EmptyPlannerConfig().WithMeterPerBin(20), coverage.ErrConfiguration},
		{"invalid config", square(0, 0, 100), diagonalLayers(), config.EmptyPlannerConfig().WithMeterPerBin(-1), coverage.ErrConfiguration},
		{"mixed layer", square(0, 0, 100), map[string]LayerInput{"mixed": {Geometry: []orb.Geometry{
			orb.LineString{{0, 0}, {1, 1}}, square(0, 0, 5),
		}}}, nil, coverage.ErrInputType},
		{"negative layer alpha", square(0, 0, 100), map[string]LayerInput{"roads": {
			Geometry: []orb.Geometry{orb.LineString{{0, 0}, {1, 1}}}, Alpha: ptr(-1.0),
		}}, nil, coverage.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewPlanner(ctx, tt.boundary, tt.layers, tt.cfg)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, p)
		})
	}
}

func TestPlan_NoForegroundIsEmptyResult(t *testing.T) {
	t.Parallel()

	layers := map[string]LayerInput{
		"far": {Geometry: []orb.Geometry{orb.LineString{{500, 500}, {600, 600}}}},
	}
	_, err := Plan(context.Background(), square(0, 0, 100), layers, diagonalConfig())
	assert.ErrorIs(t, err, coverage.ErrEmptyResult)
}

func TestPlan_AllRegionsBelowMinAreaIsEmptyResult(t *testing.T) {
	t.Parallel()

	cfg := diagonalConfig()
	cfg.MinFeatureArea = ptr(1e9)
	_, err := Plan(context.Background(), square(0, 0, 100), diagonalLayers(), cfg)
	assert.ErrorIs(t, err, coverage.ErrEmptyResult)
}

// Not parallel: replaces the package logger.
func TestPlan_DegenerateRegionIsDroppedWithWarning(t *testing.T) {
	var mu sync.Mutex
	var logs []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })

	layers := map[string]LayerInput{
		"fields": {Geometry: []orb.Geometry{square(10, 10, 40), square(80, 80, 1)}},
	}
	cfg := config.EmptyPlannerConfig().WithMeterPerBin(1).WithContourThreshold(0)
	cfg.DefaultSigma = ptr(0.0)

	res, err := Plan(context.Background(), square(0, 0, 100), layers, cfg)
	require.NoError(t, err)
	require.Len(t, res.Regions, 2)
	require.Len(t, res.Rings, 1)
	assert.Equal(t, 0, res.Rings[0].Region)
	for _, p := range res.Paths {
		assert.Equal(t, 0, p.Region)
	}

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, l := range logs {
		if strings.HasPrefix(l, "WARN dropping region 1") {
			found = true
		}
	}
	assert.True(t, found, "expected a drop warning in %v", logs)
}

func TestPlanner_StageTimingsUseClock(t *testing.T) {
	t.Parallel()

	p, err := NewPlanner(context.Background(), square(0, 0, 100), diagonalLayers(), diagonalConfig())
	require.NoError(t, err)
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	clock.AutoStep(time.Second)
	p.SetClock(clock)

	res, err := p.Run(p.Params(), p.Thresholds())
	require.NoError(t, err)

	require.Len(t, res.Timings, 3)
	assert.Equal(t, []string{"heatmap", "regions", "coverage"},
		[]string{res.Timings[0].Stage, res.Timings[1].Stage, res.Timings[2].Stage})
	for _, st := range res.Timings {
		assert.Positive(t, st.Duration)
	}
}

func TestThresholdsFromConfig_Sweep(t *testing.T) {
	t.Parallel()

	cfg := config.EmptyPlannerConfig().WithSensorRadius(4)
	cfg.Sweep = &config.SweepConfig{Height: 10, FOVDeg: 90, Overlap: 0.5}
	th, err := ThresholdsFromConfig(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, th.RingSpacing, 1e-9)

	cfg.RingSpacing = ptr(3.0)
	th, err = ThresholdsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3.0, th.RingSpacing)

	cfg.RingSpacing = nil
	cfg.Sweep.Overlap = 1.5
	_, err = ThresholdsFromConfig(cfg)
	assert.ErrorIs(t, err, coverage.ErrConfiguration)
}

func ptr[T any](v T) *T { return &v }

func TestLayerParamsFromConfig(t *testing.T) {
	t.Parallel()

	fwhm := 2 * math.Sqrt(2*math.Ln2)
	cfg := config.EmptyPlannerConfig().WithMeterPerBin(2).WithLayer("roads", 1.5, 0.25)
	cfg.Layers["water"] = config.LayerConfig{Sigma: ptr(5.0), SmoothingWidth: ptr(2 * fwhm)}

	tests := []struct {
		name  string
		layer string
		want  l3heatmap.LayerParams
	}{
		{"sigma", "roads", l3heatmap.LayerParams{Sigma: 1.5, Alpha: 0.25}},
		{"width wins and is scaled by bin size", "water", l3heatmap.LayerParams{Sigma: 1, Alpha: 1}},
		{"defaults", "unknown", l3heatmap.LayerParams{Sigma: 3, Alpha: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := LayerParamsFromConfig(cfg, tt.layer)
			assert.InDelta(t, tt.want.Sigma, got.Sigma, 1e-12)
			assert.InDelta(t, tt.want.Alpha, got.Alpha, 1e-12)
		})
	}
}

func TestNewPlanner_SmoothingWidthSetsSigma(t *testing.T) {
	t.Parallel()

	cfg := diagonalConfig()
	cfg.Layers = map[string]config.LayerConfig{"roads": {SmoothingWidth: ptr(10.0)}}
	p, err := NewPlanner(context.Background(), square(0, 0, 100), diagonalLayers(), cfg)
	require.NoError(t, err)
	assert.InDelta(t, l3heatmap.FilterSigma(10, 1), p.Params()["roads"].Sigma, 1e-12)
}
