package features

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LayerProperty is the feature property that names a feature's layer.
const LayerProperty = "layer"

// Wildcard matches any non-empty tag value.
const Wildcard = "*"

// Provider returns the planar geometry of one feature layer. The returned
// geometry must not be shared with the provider's own state.
type Provider interface {
	Fetch(ctx context.Context, layer string, tags Tags) ([]orb.Geometry, error)
}

// Tags filters features by property, e.g. {"highway": ["track", "path"]}.
// A feature matches when any key holds any of the listed values.
type Tags map[string][]string

// Match reports whether props satisfies t. An empty filter matches nothing.
func (t Tags) Match(props geojson.Properties) bool {
	for key, values := range t {
		raw, ok := props[key]
		if !ok || raw == nil {
			continue
		}
		got := fmt.Sprint(raw)
		for _, v := range values {
			if v == got || (v == Wildcard && got != "") {
				return true
			}
		}
	}
	return false
}

// Keys returns the filter keys in sorted order.
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Selects reports whether a feature belongs to layer: its layer property
// equals the name, or it matches the tag filter.
func Selects(f *geojson.Feature, layer string, tags Tags) bool {
	if f == nil || f.Geometry == nil {
		return false
	}
	if name, ok := f.Properties[LayerProperty].(string); ok && name == layer {
		return true
	}
	return tags.Match(f.Properties)
}
