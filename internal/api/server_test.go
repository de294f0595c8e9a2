package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage/pipeline"
	"github.com/banshee-data/coverage.planner/internal/monitoring"
	"github.com/banshee-data/coverage.planner/internal/version"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	boundary := orb.Polygon{{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {0, 0}}}
	layers := map[string]pipeline.LayerInput{
		"roads": {Geometry: []orb.Geometry{orb.LineString{{0, 0}, {100, 100}}}},
	}
	cfg := config.EmptyPlannerConfig().WithMeterPerBin(1).WithContourThreshold(0)
	p, err := pipeline.NewPlanner(context.Background(), boundary, layers, cfg)
	require.NoError(t, err)
	return NewServer(p, cfg)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func TestHandlePlan_Defaults(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/plan", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Summary pipeline.Summary `json:"summary"`
		GeoJSON struct {
			Type     string            `json:"type"`
			Features []json.RawMessage `json:"features"`
		} `json:"geojson"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.Regions)
	assert.Positive(t, resp.Summary.Paths)
	assert.Equal(t, "FeatureCollection", resp.GeoJSON.Type)
	assert.NotEmpty(t, resp.GeoJSON.Features)
}

func TestHandlePlan_AlphaOverrideScalesHeatmap(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	var base, doubled PlanResponse
	rec := do(t, s, http.MethodPost, "/api/plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &base))

	rec = do(t, s, http.MethodPost, "/api/plan", `{"layers": {"roads": {"alpha": 2}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doubled))

	assert.InDelta(t, 2, doubled.Params["roads"].Alpha, 1e-12)
	assert.InDelta(t, base.Params["roads"].Sigma, doubled.Params["roads"].Sigma, 1e-12)
	assert.InDelta(t, 2*base.Summary.HeatmapMax, doubled.Summary.HeatmapMax, 1e-12)
	assert.NotEqual(t, base.Summary.RunID, doubled.Summary.RunID)
}

func TestHandlePlan_SigmaOverridesConfiguredWidth(t *testing.T) {
	t.Parallel()
	boundary := orb.Polygon{{{0, 0}, {100, 0}, {100, 100}, {0, 100}, {0, 0}}}
	layers := map[string]pipeline.LayerInput{
		"roads": {Geometry: []orb.Geometry{orb.LineString{{0, 0}, {100, 100}}}},
	}
	cfg := config.EmptyPlannerConfig().WithMeterPerBin(1).WithContourThreshold(0)
	width := 10.0
	cfg.Layers = map[string]config.LayerConfig{"roads": {SmoothingWidth: &width}}
	p, err := pipeline.NewPlanner(context.Background(), boundary, layers, cfg)
	require.NoError(t, err)
	s := NewServer(p, cfg)

	var resp PlanResponse
	rec := do(t, s, http.MethodPost, "/api/plan", `{"layers": {"roads": {"sigma": 1}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 1, resp.Params["roads"].Sigma, 1e-12)

	// An alpha-only override keeps the configured width.
	rec = do(t, s, http.MethodPost, "/api/plan", `{"layers": {"roads": {"alpha": 2}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, p.Params()["roads"].Sigma, resp.Params["roads"].Sigma, 1e-12)
	assert.Greater(t, resp.Params["roads"].Sigma, 4.0)
}

func TestHandlePlan_Errors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"malformed body", http.MethodPost, `{"sensor_radius":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"radius": 3}`, http.StatusBadRequest},
		{"invalid value", http.MethodPost, `{"sensor_radius": -1}`, http.StatusBadRequest},
		{"threshold above max", http.MethodPost, `{"contour_threshold": 10}`, http.StatusBadRequest},
		{"raster field", http.MethodPost, `{"meter_per_bin": 2}`, http.StatusBadRequest},
		{"layer infill", http.MethodPost, `{"layers": {"roads": {"infill": false}}}`, http.StatusBadRequest},
		{"unknown cut policy", http.MethodPost, `{"cut_policy": "random"}`, http.StatusBadRequest},
		{"everything filtered", http.MethodPost, `{"min_feature_area": 1e9}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, s, tt.method, "/api/plan", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleLayers(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/layers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var layers []LayerInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layers))
	require.Len(t, layers, 1)
	assert.Equal(t, "roads", layers[0].Name)
	assert.InDelta(t, 1.0, layers[0].Sum, 1e-9)
	assert.InDelta(t, 1.0, layers[0].Alpha, 1e-12)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodPost, "/api/layers", "").Code)
}

func TestHandleVersion(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info version.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, version.Get(), info)
}

func TestHandleHeatmap(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/heatmap?max_cells=2500", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "echarts")
	assert.Contains(t, body, "Coverage heatmap")
	assert.Contains(t, body, "stride=2")
}

func TestHandleHeatmap_UsesLatestResult(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/plan", `{"sensor_radius": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = do(t, s, http.MethodGet, "/api/heatmap", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run="+resp.Summary.RunID)
}

func TestHandlePlanPNG(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/plan.png", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestHeatmapStride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		nx, ny, max int
		want        int
	}{
		{100, 100, 20000, 1},
		{100, 100, 10000, 1},
		{100, 100, 2500, 2},
		{1000, 1000, 20000, 8},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d/%d", tt.nx, tt.ny, tt.max), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, heatmapStride(tt.nx, tt.ny, tt.max))
		})
	}
}

// Not parallel: replaces the package logger.
func TestLoggingMiddleware(t *testing.T) {
	var mu sync.Mutex
	var logs []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/layers?x=1", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], statusCodeColor(http.StatusTeapot))
	assert.Contains(t, logs[0], "/api/layers?x=1")
}
