package l2raster

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l1grid"
)

type layerResult struct {
	name    string
	surface *l1grid.Surface
}

// RasterizeAll rasterizes every layer in a pool of at most workers
// goroutines (GOMAXPROCS when workers <= 0). Workers send finished grids
// over a channel to a single reducer, which owns the result map. The first
// failure cancels the tasks that have not started and is returned.
func RasterizeAll(ctx context.Context, g *l1grid.GridIndex, layers []*Layer, opts Options, workers int) (map[string]*l1grid.Surface, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	seen := make(map[string]bool, len(layers))
	for _, l := range layers {
		if seen[l.name] {
			return nil, coverage.ConfigurationErrorf("duplicate layer %q", l.name)
		}
		seen[l.name] = true
	}

	results := make(chan layerResult)
	out := make(map[string]*l1grid.Surface, len(layers))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range results {
			out[r.name] = r.surface
		}
	}()

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, l := range layers {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := Rasterize(g, l, opts)
			if err != nil {
				return fmt.Errorf("rasterize layer %q: %w", l.name, err)
			}
			select {
			case results <- layerResult{name: l.name, surface: s}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	err := eg.Wait()
	close(results)
	<-done
	if err != nil {
		return nil, err
	}
	return out, nil
}
