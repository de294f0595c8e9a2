package source

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/features"
	"github.com/banshee-data/coverage.planner/internal/coverage/pipeline"
	"github.com/banshee-data/coverage.planner/internal/featuredb"
	"github.com/banshee-data/coverage.planner/internal/fsutil"
	"github.com/banshee-data/coverage.planner/internal/httputil"
)

// Options names where the features and the boundary come from. Exactly
// one of FeaturesPath, FeaturesURL and DBPath must be set.
type Options struct {
	FeaturesPath string
	FeaturesURL  string
	DBPath       string
	// BoundaryPath is a GeoJSON polygon, feature or collection. When
	// empty the boundary feature of the GeoJSON source is used.
	BoundaryPath string

	FS     fsutil.FileSystem
	Client httputil.HTTPClient
}

// Inputs is everything NewPlanner needs besides the configuration.
type Inputs struct {
	Boundary orb.Polygon
	Layers   map[string]pipeline.LayerInput
}

// Load reads the boundary and fetches the configured layers. When cfg
// names no layers, every layer the source knows about is loaded.
func Load(ctx context.Context, opts Options, cfg *config.PlannerConfig) (*Inputs, error) {
	if cfg == nil {
		cfg = config.EmptyPlannerConfig()
	}
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}

	set := 0
	for _, s := range []string{opts.FeaturesPath, opts.FeaturesURL, opts.DBPath} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return nil, coverage.ConfigurationErrorf("exactly one feature source is required, got %d", set)
	}

	var (
		provider features.Provider
		boundary orb.Polygon
		names    = cfg.LayerNames()
		err      error
	)
	switch {
	case opts.FeaturesPath != "":
		p, err := features.LoadGeoJSONProvider(opts.FS, opts.FeaturesPath)
		if err != nil {
			return nil, err
		}
		provider = p
		if len(names) == 0 {
			names = p.Layers()
		}
		if opts.BoundaryPath == "" {
			if boundary, err = p.Boundary(); err != nil {
				return nil, err
			}
		}

	case opts.FeaturesURL != "":
		p := features.NewHTTPProvider(opts.FeaturesURL, opts.Client)
		provider = p
		if len(names) == 0 {
			if names, err = p.Layers(ctx); err != nil {
				return nil, err
			}
		}
		if opts.BoundaryPath == "" {
			if boundary, err = p.Boundary(ctx); err != nil {
				return nil, err
			}
		}

	default:
		if opts.BoundaryPath == "" {
			return nil, coverage.ConfigurationErrorf("a feature database needs a boundary file")
		}
		store, err := featuredb.Open(opts.DBPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		provider = store
		if len(names) == 0 {
			summaries, err := store.Layers(ctx)
			if err != nil {
				return nil, err
			}
			for _, s := range summaries {
				names = append(names, s.Name)
			}
		}
	}

	if opts.BoundaryPath != "" {
		data, err := opts.FS.ReadFile(opts.BoundaryPath)
		if err != nil {
			return nil, fmt.Errorf("read boundary: %w", err)
		}
		if boundary, err = features.ParseBoundary(data); err != nil {
			return nil, err
		}
	}

	layers, err := pipeline.LoadLayers(ctx, provider, names, cfg)
	if err != nil {
		return nil, err
	}
	return &Inputs{Boundary: boundary, Layers: layers}, nil
}
