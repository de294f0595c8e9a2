package featuredb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/coverage.planner/internal/coverage/features"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "features.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func lineFeature(props geojson.Properties, pts ...orb.Point) *geojson.Feature {
	f := geojson.NewFeature(orb.LineString(pts))
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

func TestOpen_AppliesMigrations(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)

	latest, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.Equal(t, uint(2), latest)

	// Re-running is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestMigrateDownAndUp(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	require.NoError(t, s.MigrateDown())
	version, _, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	err = s.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='feature_tags'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.MigrateUp())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestOpenNoMigrate_ReportsNilVersion(t *testing.T) {
	t.Parallel()

	s, err := OpenNoMigrate(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer s.Close()

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, s.MigrateForce(1))
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestInsertAndFetch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "roads", lineFeature(geojson.Properties{"highway": "primary"}, orb.Point{0, 0}, orb.Point{10, 10}))
	require.NoError(t, err)
	_, err = s.Insert(ctx, "tracks", lineFeature(geojson.Properties{"highway": "track"}, orb.Point{0, 5}, orb.Point{10, 5}))
	require.NoError(t, err)
	_, err = s.Insert(ctx, "buildings", geojson.NewFeature(orb.Polygon{{{1, 1}, {2, 1}, {2, 2}, {1, 2}, {1, 1}}}))
	require.NoError(t, err)

	roads, err := s.Fetch(ctx, "roads", nil)
	require.NoError(t, err)
	require.Len(t, roads, 1)
	assert.Equal(t, orb.LineString{{0, 0}, {10, 10}}, roads[0])

	withTracks, err := s.Fetch(ctx, "roads", features.Tags{"highway": {"track"}})
	require.NoError(t, err)
	assert.Len(t, withTracks, 2)

	anyHighway, err := s.Fetch(ctx, "nothing", features.Tags{"highway": {features.Wildcard}})
	require.NoError(t, err)
	assert.Len(t, anyHighway, 2)

	buildings, err := s.Fetch(ctx, "buildings", nil)
	require.NoError(t, err)
	require.Len(t, buildings, 1)
	assert.IsType(t, orb.Polygon{}, buildings[0])
}

func TestImportCollection(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	fc := geojson.NewFeatureCollection()
	fc.Append(lineFeature(geojson.Properties{"layer": "roads"}, orb.Point{0, 0}, orb.Point{1, 1}))
	fc.Append(lineFeature(nil, orb.Point{0, 0}, orb.Point{2, 2}))
	fc.Append(&geojson.Feature{Type: "Feature", Properties: geojson.Properties{"layer": "roads"}})

	n, err := s.ImportCollection(ctx, "paths", fc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	layers, err := s.Layers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []LayerSummary{
		{Name: "paths", Kind: "LineString", Features: 1},
		{Name: "roads", Kind: "LineString", Features: 1},
	}, layers)
}

func TestImportCollection_SkipsUnlayeredWithoutDefault(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	fc := geojson.NewFeatureCollection()
	fc.Append(lineFeature(nil, orb.Point{0, 0}, orb.Point{2, 2}))

	n, err := s.ImportCollection(context.Background(), "", fc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeleteLayerCascadesTags(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, "roads", lineFeature(geojson.Properties{"highway": "primary", "lanes": 2.0}, orb.Point{0, 0}, orb.Point{1, 0}))
	require.NoError(t, err)

	var tags int
	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM feature_tags`).Scan(&tags))
	assert.Equal(t, 2, tags)

	deleted, err := s.DeleteLayer(ctx, "roads")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM feature_tags`).Scan(&tags))
	assert.Equal(t, 0, tags)
}

func TestSelectQuery(t *testing.T) {
	t.Parallel()

	query, args := selectQuery("roads", features.Tags{
		"waterway": {"river", "stream"},
		"building": {features.Wildcard},
		"ignored":  nil,
	})

	assert.Equal(t, 2, strings.Count(query, "EXISTS"))
	assert.Contains(t, query, "t.value IN (?, ?)")
	assert.Contains(t, query, "t.value <> ''")
	assert.Equal(t, []interface{}{"roads", "building", "waterway", "river", "stream"}, args)
}
