package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage/features"
)

type stubProvider struct {
	layers map[string][]orb.Geometry
	tags   map[string]features.Tags
	err    error
}

func (s *stubProvider) Fetch(ctx context.Context, layer string, tags features.Tags) ([]orb.Geometry, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.tags == nil {
		s.tags = map[string]features.Tags{}
	}
	s.tags[layer] = tags
	return s.layers[layer], nil
}

func TestLoadLayers(t *testing.T) {
	t.Parallel()

	p := &stubProvider{layers: map[string][]orb.Geometry{
		"roads": {orb.LineString{{0, 0}, {100, 100}}},
	}}
	cfg := config.EmptyPlannerConfig()
	cfg.Layers = map[string]config.LayerConfig{
		"roads": {Tags: map[string][]string{"highway": {"track"}}},
	}

	layers, err := LoadLayers(context.Background(), p, []string{"roads", "water"}, cfg)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Len(t, layers["roads"].Geometry, 1)
	assert.Equal(t, features.Tags{"highway": {"track"}}, p.tags["roads"])
	assert.Nil(t, p.tags["water"])

	res, err := Plan(context.Background(), square(0, 0, 100), layers, diagonalConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Paths)
}

func TestLoadLayers_ProviderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := LoadLayers(context.Background(), &stubProvider{err: boom}, []string{"roads"}, nil)
	assert.ErrorIs(t, err, boom)
}
