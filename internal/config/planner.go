package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/banshee-data/coverage.planner/internal/fsutil"
)

// DefaultConfigPath is the path to the canonical planner defaults file.
const DefaultConfigPath = "config/planner.defaults.json"

// maxConfigSize bounds config files read from disk.
const maxConfigSize = 1 * 1024 * 1024 // 1MB

// PlannerConfig is the root configuration of a coverage plan. The schema
// matches the body of POST /api/plan so the same JSON drives the CLI, the
// server's startup defaults and per-request overrides.
type PlannerConfig struct {
	// Grid and rasterization
	MeterPerBin    *float64 `json:"meter_per_bin,omitempty"`
	Buffer         *float64 `json:"buffer,omitempty"`
	SampleDistance *float64 `json:"sample_distance,omitempty"`
	InfillPolygons *bool    `json:"infill_polygons,omitempty"`
	Workers        *int     `json:"workers,omitempty"`

	// Heatmap combination
	DefaultSigma *float64               `json:"default_sigma,omitempty"`
	DefaultAlpha *float64               `json:"default_alpha,omitempty"`
	Layers       map[string]LayerConfig `json:"layers,omitempty"`

	// Region extraction
	ContourThreshold *float64 `json:"contour_threshold,omitempty"`
	MinFeatureArea   *float64 `json:"min_feature_area,omitempty"`

	// Rings
	SensorRadius *float64 `json:"sensor_radius,omitempty"`
	// RingSpacing defaults to the sweep swath when Sweep is set, else to
	// 2*sensor_radius.
	RingSpacing      *float64     `json:"ring_spacing,omitempty"`
	ContourSmoothing *float64     `json:"contour_smoothing,omitempty"`
	MinRingArea      *float64     `json:"min_ring_area,omitempty"`
	Sweep            *SweepConfig `json:"sweep,omitempty"`

	// Paths
	MaxPathLength *float64    `json:"max_path_length,omitempty"`
	CutPolicy     *string     `json:"cut_policy,omitempty"` // "modulus" or "binary"
	StartOrigin   *[2]float64 `json:"start_origin,omitempty"`
}

// SweepConfig describes a downward-looking camera. The ring spacing becomes
// its ground swath less the overlap between neighbouring passes.
type SweepConfig struct {
	Height  float64 `json:"height"`
	FOVDeg  float64 `json:"fov_deg"`
	Overlap float64 `json:"overlap"`
}

// LayerConfig holds the per-layer settings. Nil fields fall back to the
// plan-wide defaults.
type LayerConfig struct {
	Sigma *float64 `json:"sigma,omitempty"`
	Alpha *float64 `json:"alpha,omitempty"`
	// SmoothingWidth, when set, overrides Sigma with the sigma of a
	// Gaussian whose full width at half maximum is this many metres.
	SmoothingWidth *float64 `json:"smoothing_width,omitempty"`
	Infill         *bool    `json:"infill,omitempty"`
	// Tags selects source features, e.g. {"highway": ["primary", "track"]}.
	Tags map[string][]string `json:"tags,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPlannerConfig returns a PlannerConfig with all fields unset. The
// Get* methods supply the defaults.
func EmptyPlannerConfig() *PlannerConfig {
	return &PlannerConfig{}
}

// LoadPlannerConfig loads a PlannerConfig from a JSON file on disk.
func LoadPlannerConfig(path string) (*PlannerConfig, error) {
	return LoadPlannerConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadPlannerConfigFS loads a PlannerConfig from fs. The file must have a
// .json extension and be under 1MB. Fields omitted from the file keep
// their defaults, so partial configs are safe.
func LoadPlannerConfigFS(fs fsutil.FileSystem, path string) (*PlannerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fs.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigSize)
	}

	data, err := fs.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParsePlannerConfig(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParsePlannerConfig decodes and validates a JSON config document.
func ParsePlannerConfig(data []byte) (*PlannerConfig, error) {
	cfg := EmptyPlannerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical planner defaults from
// DefaultConfigPath, searching the current directory and its parents.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PlannerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/coverage/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPlannerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable. Unset fields are
// not checked; their defaults are valid.
func (c *PlannerConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"meter_per_bin", c.MeterPerBin},
		{"sample_distance", c.SampleDistance},
		{"sensor_radius", c.SensorRadius},
		{"ring_spacing", c.RingSpacing},
		{"max_path_length", c.MaxPathLength},
	}
	for _, f := range positive {
		if f.v != nil && !(*f.v > 0 && !math.IsInf(*f.v, 1)) {
			return fmt.Errorf("%s must be positive, got %v", f.name, *f.v)
		}
	}

	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"buffer", c.Buffer},
		{"default_sigma", c.DefaultSigma},
		{"default_alpha", c.DefaultAlpha},
		{"contour_threshold", c.ContourThreshold},
		{"min_feature_area", c.MinFeatureArea},
		{"contour_smoothing", c.ContourSmoothing},
		{"min_ring_area", c.MinRingArea},
	}
	for _, f := range nonNegative {
		if f.v != nil && !(*f.v >= 0 && !math.IsInf(*f.v, 1)) {
			return fmt.Errorf("%s must be non-negative, got %v", f.name, *f.v)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.CutPolicy != nil {
		switch *c.CutPolicy {
		case "", "modulus", "binary":
		default:
			return fmt.Errorf("cut_policy must be 'modulus' or 'binary', got %q", *c.CutPolicy)
		}
	}

	if c.Sweep != nil {
		if !(c.Sweep.Height > 0) || math.IsInf(c.Sweep.Height, 1) {
			return fmt.Errorf("sweep.height must be positive, got %v", c.Sweep.Height)
		}
		if !(c.Sweep.FOVDeg > 0 && c.Sweep.FOVDeg < 180) {
			return fmt.Errorf("sweep.fov_deg must be between 0 and 180, got %v", c.Sweep.FOVDeg)
		}
	}

	for name, l := range c.Layers {
		for _, f := range []struct {
			field string
			v     *float64
		}{{"sigma", l.Sigma}, {"alpha", l.Alpha}, {"smoothing_width", l.SmoothingWidth}} {
			if f.v != nil && !(*f.v >= 0 && !math.IsInf(*f.v, 1)) {
				return fmt.Errorf("layers.%s.%s must be non-negative, got %v", name, f.field, *f.v)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *PlannerConfig) Clone() *PlannerConfig {
	out := *c
	if c.Sweep != nil {
		sweep := *c.Sweep
		out.Sweep = &sweep
	}
	if c.Layers != nil {
		out.Layers = make(map[string]LayerConfig, len(c.Layers))
		for name, l := range c.Layers {
			if l.Tags != nil {
				tags := make(map[string][]string, len(l.Tags))
				for k, v := range l.Tags {
					tags[k] = append([]string(nil), v...)
				}
				l.Tags = tags
			}
			out.Layers[name] = l
		}
	}
	return &out
}

// Merge returns a copy of c with every field set in override applied on
// top. Layer entries are merged field by field.
func (c *PlannerConfig) Merge(override *PlannerConfig) *PlannerConfig {
	out := c.Clone()
	if override == nil {
		return out
	}
	o := override.Clone()
	setF := func(dst **float64, src *float64) {
		if src != nil {
			*dst = src
		}
	}
	setF(&out.MeterPerBin, o.MeterPerBin)
	setF(&out.Buffer, o.Buffer)
	setF(&out.SampleDistance, o.SampleDistance)
	setF(&out.DefaultSigma, o.DefaultSigma)
	setF(&out.DefaultAlpha, o.DefaultAlpha)
	setF(&out.ContourThreshold, o.ContourThreshold)
	setF(&out.MinFeatureArea, o.MinFeatureArea)
	setF(&out.SensorRadius, o.SensorRadius)
	setF(&out.RingSpacing, o.RingSpacing)
	setF(&out.ContourSmoothing, o.ContourSmoothing)
	setF(&out.MinRingArea, o.MinRingArea)
	setF(&out.MaxPathLength, o.MaxPathLength)
	if o.InfillPolygons != nil {
		out.InfillPolygons = o.InfillPolygons
	}
	if o.Workers != nil {
		out.Workers = o.Workers
	}
	if o.CutPolicy != nil {
		out.CutPolicy = o.CutPolicy
	}
	if o.StartOrigin != nil {
		out.StartOrigin = o.StartOrigin
	}
	if o.Sweep != nil {
		out.Sweep = o.Sweep
	}
	for name, ol := range o.Layers {
		if out.Layers == nil {
			out.Layers = make(map[string]LayerConfig)
		}
		l := out.Layers[name]
		setF(&l.Sigma, ol.Sigma)
		setF(&l.Alpha, ol.Alpha)
		setF(&l.SmoothingWidth, ol.SmoothingWidth)
		// sigma and smoothing_width describe the same kernel; the one the
		// override sets replaces the other.
		if ol.Sigma != nil && ol.SmoothingWidth == nil {
			l.SmoothingWidth = nil
		}
		if ol.SmoothingWidth != nil && ol.Sigma == nil {
			l.Sigma = nil
		}
		if ol.Infill != nil {
			l.Infill = ol.Infill
		}
		if ol.Tags != nil {
			l.Tags = ol.Tags
		}
		out.Layers[name] = l
	}
	return out
}

// WithLayer sets the smoothing and weight of one layer and returns c for
// chaining.
func (c *PlannerConfig) WithLayer(name string, sigma, alpha float64) *PlannerConfig {
	if c.Layers == nil {
		c.Layers = make(map[string]LayerConfig)
	}
	l := c.Layers[name]
	l.Sigma = ptrFloat64(sigma)
	l.Alpha = ptrFloat64(alpha)
	c.Layers[name] = l
	return c
}

// WithSensorRadius sets the sensor radius and returns c for chaining.
func (c *PlannerConfig) WithSensorRadius(r float64) *PlannerConfig {
	c.SensorRadius = ptrFloat64(r)
	return c
}

// WithContourThreshold sets the contour threshold and returns c for
// chaining.
func (c *PlannerConfig) WithContourThreshold(tau float64) *PlannerConfig {
	c.ContourThreshold = ptrFloat64(tau)
	return c
}

// WithMeterPerBin sets the bin size and returns c for chaining.
func (c *PlannerConfig) WithMeterPerBin(m float64) *PlannerConfig {
	c.MeterPerBin = ptrFloat64(m)
	return c
}

// WithCutPolicy sets the cut policy and returns c for chaining.
func (c *PlannerConfig) WithCutPolicy(policy string) *PlannerConfig {
	c.CutPolicy = ptrString(policy)
	return c
}

// WithInfill sets plan-wide polygon infill and returns c for chaining.
func (c *PlannerConfig) WithInfill(infill bool) *PlannerConfig {
	c.InfillPolygons = ptrBool(infill)
	return c
}

// WithWorkers sets the rasterization pool size and returns c for chaining.
func (c *PlannerConfig) WithWorkers(n int) *PlannerConfig {
	c.Workers = ptrInt(n)
	return c
}

// LayerNames returns the configured layer names in sorted order.
func (c *PlannerConfig) LayerNames() []string {
	names := make([]string, 0, len(c.Layers))
	for name := range c.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetMeterPerBin returns the meter_per_bin value or the default.
func (c *PlannerConfig) GetMeterPerBin() float64 {
	if c.MeterPerBin == nil {
		return 3.0
	}
	return *c.MeterPerBin
}

// GetBuffer returns the buffer value or the default.
func (c *PlannerConfig) GetBuffer() float64 {
	if c.Buffer == nil {
		return 0
	}
	return *c.Buffer
}

// GetSampleDistance returns the sample_distance value or the default.
func (c *PlannerConfig) GetSampleDistance() float64 {
	if c.SampleDistance == nil {
		return 1.0
	}
	return *c.SampleDistance
}

// GetInfillPolygons returns the infill_polygons value or the default.
func (c *PlannerConfig) GetInfillPolygons() bool {
	if c.InfillPolygons == nil {
		return true
	}
	return *c.InfillPolygons
}

// GetWorkers returns the rasterization pool size, GOMAXPROCS when unset
// or zero.
func (c *PlannerConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetDefaultSigma returns the default_sigma value or the default.
func (c *PlannerConfig) GetDefaultSigma() float64 {
	if c.DefaultSigma == nil {
		return 3.0
	}
	return *c.DefaultSigma
}

// GetDefaultAlpha returns the default_alpha value or the default.
func (c *PlannerConfig) GetDefaultAlpha() float64 {
	if c.DefaultAlpha == nil {
		return 1.0
	}
	return *c.DefaultAlpha
}

// GetLayerSigma returns the configured sigma of a layer in bins or
// default_sigma. It does not consult smoothing_width.
func (c *PlannerConfig) GetLayerSigma(name string) float64 {
	if l, ok := c.Layers[name]; ok && l.Sigma != nil {
		return *l.Sigma
	}
	return c.GetDefaultSigma()
}

// GetLayerSmoothingWidth returns the smoothing_width of a layer in metres,
// if one is configured.
func (c *PlannerConfig) GetLayerSmoothingWidth(name string) (float64, bool) {
	if l, ok := c.Layers[name]; ok && l.SmoothingWidth != nil {
		return *l.SmoothingWidth, true
	}
	return 0, false
}

// GetLayerAlpha returns the weight of a layer or default_alpha.
func (c *PlannerConfig) GetLayerAlpha(name string) float64 {
	if l, ok := c.Layers[name]; ok && l.Alpha != nil {
		return *l.Alpha
	}
	return c.GetDefaultAlpha()
}

// GetLayerInfill returns the polygon infill of a layer or infill_polygons.
func (c *PlannerConfig) GetLayerInfill(name string) bool {
	if l, ok := c.Layers[name]; ok && l.Infill != nil {
		return *l.Infill
	}
	return c.GetInfillPolygons()
}

// GetContourThreshold returns the contour_threshold value or the default.
func (c *PlannerConfig) GetContourThreshold() float64 {
	if c.ContourThreshold == nil {
		return 1e-5
	}
	return *c.ContourThreshold
}

// GetMinFeatureArea returns the min_feature_area value or the default.
func (c *PlannerConfig) GetMinFeatureArea() float64 {
	if c.MinFeatureArea == nil {
		return 0.01
	}
	return *c.MinFeatureArea
}

// GetSensorRadius returns the sensor_radius value or the default.
func (c *PlannerConfig) GetSensorRadius() float64 {
	if c.SensorRadius == nil {
		return 8.0
	}
	return *c.SensorRadius
}

// GetRingSpacing returns the ring_spacing value, or twice the sensor
// radius when unset.
func (c *PlannerConfig) GetRingSpacing() float64 {
	if c.RingSpacing == nil {
		return 2 * c.GetSensorRadius()
	}
	return *c.RingSpacing
}

// GetContourSmoothing returns the contour_smoothing value or the default.
func (c *PlannerConfig) GetContourSmoothing() float64 {
	if c.ContourSmoothing == nil {
		return 5.0
	}
	return *c.ContourSmoothing
}

// GetMinRingArea returns the min_ring_area value or the default.
func (c *PlannerConfig) GetMinRingArea() float64 {
	if c.MinRingArea == nil {
		return 1.0
	}
	return *c.MinRingArea
}

// GetMaxPathLength returns the max_path_length value or the default.
func (c *PlannerConfig) GetMaxPathLength() float64 {
	if c.MaxPathLength == nil {
		return 500.0
	}
	return *c.MaxPathLength
}

// GetCutPolicy returns the cut_policy value or the default.
func (c *PlannerConfig) GetCutPolicy() string {
	if c.CutPolicy == nil || *c.CutPolicy == "" {
		return "modulus"
	}
	return *c.CutPolicy
}

// GetStartOrigin returns the reference point for loop starts, the
// coordinate origin by default.
func (c *PlannerConfig) GetStartOrigin() [2]float64 {
	if c.StartOrigin == nil {
		return [2]float64{0, 0}
	}
	return *c.StartOrigin
}
