package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l3heatmap"
	"github.com/banshee-data/coverage.planner/internal/coverage/pipeline"
	"github.com/banshee-data/coverage.planner/internal/coverage/render"
	"github.com/banshee-data/coverage.planner/internal/httputil"
	"github.com/banshee-data/coverage.planner/internal/version"
)

// PlanResponse is returned by POST /api/plan.
type PlanResponse struct {
	Summary    pipeline.Summary                 `json:"summary"`
	Params     map[string]l3heatmap.LayerParams `json:"params"`
	Thresholds pipeline.Thresholds              `json:"thresholds"`
	GeoJSON    *geojson.FeatureCollection       `json:"geojson"`
}

// LayerInfo describes one rasterized layer.
type LayerInfo struct {
	Name  string  `json:"name"`
	Sigma float64 `json:"sigma"`
	Alpha float64 `json:"alpha"`
	Sum   float64 `json:"sum"`
}

// handlePlan runs the pipeline with the request body merged over the
// server configuration. An empty body runs the defaults.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var override config.PlannerConfig
	if err := httputil.DecodeJSON(r, &override); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := rasterFieldsUnset(&override); err != nil {
		writeError(w, err)
		return
	}

	merged := s.cfg.Merge(&override)
	if err := merged.Validate(); err != nil {
		writeError(w, coverage.ConfigurationErrorf("%v", err))
		return
	}
	th, err := pipeline.ThresholdsFromConfig(merged)
	if err != nil {
		writeError(w, err)
		return
	}
	params := s.planner.Params()
	for _, name := range s.planner.Layers() {
		if touchesLayer(&override, name) {
			params[name] = pipeline.LayerParamsFromConfig(merged, name)
		}
	}

	res, err := s.run(params, th)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, PlanResponse{
		Summary:    res.Summary(),
		Params:     res.Params,
		Thresholds: res.Thresholds,
		GeoJSON:    res.FeatureCollection(),
	})
}

// rasterFieldsUnset rejects overrides that would need the layers
// rasterized again.
func rasterFieldsUnset(o *config.PlannerConfig) error {
	fields := []struct {
		name string
		set  bool
	}{
		{"meter_per_bin", o.MeterPerBin != nil},
		{"buffer", o.Buffer != nil},
		{"sample_distance", o.SampleDistance != nil},
		{"infill_polygons", o.InfillPolygons != nil},
		{"workers", o.Workers != nil},
	}
	for _, f := range fields {
		if f.set {
			return coverage.ConfigurationErrorf("%s is fixed once the layers are rasterized", f.name)
		}
	}
	for name, l := range o.Layers {
		if l.Infill != nil || l.Tags != nil {
			return coverage.ConfigurationErrorf("layers.%s: infill and tags are fixed once the layers are rasterized", name)
		}
	}
	return nil
}

// touchesLayer reports whether the override changes the smoothing or
// weight of the named layer, either directly or through the defaults.
func touchesLayer(o *config.PlannerConfig, name string) bool {
	if o.DefaultSigma != nil || o.DefaultAlpha != nil {
		return true
	}
	_, ok := o.Layers[name]
	return ok
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	params := s.planner.Params()
	names := s.planner.Layers()
	out := make([]LayerInfo, 0, len(names))
	for _, name := range names {
		info := LayerInfo{Name: name, Sigma: params[name].Sigma, Alpha: params[name].Alpha}
		if l, ok := s.planner.Layer(name); ok {
			info.Sum = l.Sum()
		}
		out = append(out, info)
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Get())
}

// handlePlanPNG renders the latest result as a PNG.
func (s *Server) handlePlanPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res, err := s.Latest()
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := render.WriteImage(&buf, "png", res, render.DefaultOptions()); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
