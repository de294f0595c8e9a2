package pipeline

import (
	"context"
	"fmt"

	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage/features"
	"github.com/banshee-data/coverage.planner/internal/monitoring"
)

// LoadLayers fetches every named layer from p using the tag filter
// configured for it. Layers that come back empty are skipped with a
// warning.
func LoadLayers(ctx context.Context, p features.Provider, names []string, cfg *config.PlannerConfig) (map[string]LayerInput, error) {
	if cfg == nil {
		cfg = config.EmptyPlannerConfig()
	}
	out := make(map[string]LayerInput, len(names))
	for _, name := range names {
		var tags features.Tags
		if lc, ok := cfg.Layers[name]; ok {
			tags = features.Tags(lc.Tags)
		}
		geoms, err := p.Fetch(ctx, name, tags)
		if err != nil {
			return nil, fmt.Errorf("fetch layer %q: %w", name, err)
		}
		if len(geoms) == 0 {
			monitoring.Warnf("layer %q has no features, skipping", name)
			continue
		}
		out[name] = LayerInput{Geometry: geoms}
	}
	return out, nil
}
