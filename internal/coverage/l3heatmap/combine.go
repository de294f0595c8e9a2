package l3heatmap

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l1grid"
)

// LayerParams weights one layer in the combined heatmap.
type LayerParams struct {
	// Sigma is the Gaussian smoothing width in bins. Zero disables
	// smoothing.
	Sigma float64 `json:"sigma"`
	// Alpha scales the smoothed layer.
	Alpha float64 `json:"alpha"`
}

// Validate checks that both values are finite and non-negative.
func (p LayerParams) Validate() error {
	if !coverage.IsFinite(p.Sigma) || p.Sigma < 0 {
		return coverage.ConfigurationErrorf("sigma must be a non-negative number, got %v", p.Sigma)
	}
	if !coverage.IsFinite(p.Alpha) || p.Alpha < 0 {
		return coverage.ConfigurationErrorf("alpha must be a non-negative number, got %v", p.Alpha)
	}
	return nil
}

// Combiner holds an immutable set of layer grids for repeated
// combination with different parameters.
type Combiner struct {
	grid   *l1grid.GridIndex
	names  []string
	layers map[string]*l1grid.Surface
}

// NewCombiner captures layers. All layers must share one grid.
func NewCombiner(layers map[string]*l1grid.Surface) (*Combiner, error) {
	if len(layers) == 0 {
		return nil, coverage.ConfigurationErrorf("no layers to combine")
	}
	c := &Combiner{layers: make(map[string]*l1grid.Surface, len(layers))}
	for name, s := range layers {
		if s == nil {
			return nil, coverage.ConfigurationErrorf("layer %q has no grid", name)
		}
		if c.grid == nil {
			c.grid = s.Grid()
		} else if s.Grid() != c.grid {
			return nil, coverage.ConfigurationErrorf("layer %q is on a different grid", name)
		}
		c.layers[name] = s
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Names returns the layer names in sorted order.
func (c *Combiner) Names() []string { return append([]string(nil), c.names...) }

// Grid returns the grid shared by every layer.
func (c *Combiner) Grid() *l1grid.GridIndex { return c.grid }

// Layer returns the grid of one layer.
func (c *Combiner) Layer(name string) (*l1grid.Surface, bool) {
	s, ok := c.layers[name]
	return s, ok
}

// Combine returns sum(blur(layer, sigma) * alpha) over all layers. The
// result is not normalized. Every layer needs parameters and every
// parameter entry needs a layer; any invalid entry fails the whole call.
func (c *Combiner) Combine(params map[string]LayerParams) (*l1grid.Surface, error) {
	for _, name := range c.names {
		p, ok := params[name]
		if !ok {
			return nil, coverage.ConfigurationErrorf("no parameters for layer %q", name)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("layer %q: %w", name, err)
		}
	}
	for name := range params {
		if _, ok := c.layers[name]; !ok {
			return nil, coverage.ConfigurationErrorf("parameters given for unknown layer %q", name)
		}
	}

	nx, ny := c.grid.Dims()
	acc := make([]float64, nx*ny)
	for _, name := range c.names {
		p := params[name]
		if p.Alpha == 0 {
			continue
		}
		smoothed := blur(c.layers[name].Values(), nx, ny, p.Sigma)
		floats.AddScaled(acc, p.Alpha, smoothed)
	}
	return l1grid.NewSurfaceFromValues(c.grid, acc)
}

// Combine is a one-shot form of Combiner.Combine.
func Combine(layers map[string]*l1grid.Surface, params map[string]LayerParams) (*l1grid.Surface, error) {
	c, err := NewCombiner(layers)
	if err != nil {
		return nil, err
	}
	return c.Combine(params)
}
