// Package featuredb is a SQLite store of planner input features. Each row
// holds one GeoJSON geometry tagged with its layer and the string-valued
// properties of the source feature, so the store can serve the same layer
// and tag selections as a GeoJSON file.
package featuredb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/coverage.planner/internal/coverage/features"
	"github.com/banshee-data/coverage.planner/internal/monitoring"
)

// Store wraps a SQLite database holding features.
type Store struct {
	*sql.DB
}

var _ features.Provider = (*Store)(nil)

// Open opens the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	s, err := OpenNoMigrate(path)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenNoMigrate opens the database without touching the schema. The
// migrate subcommands use it so they can inspect or repair state.
func OpenNoMigrate(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open feature database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open feature database: %w", err)
	}
	return &Store{db}, nil
}

// LayerSummary describes one stored layer.
type LayerSummary struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Features int    `json:"features"`
}

// Insert stores one feature under layer and returns its row ID.
func (s *Store) Insert(ctx context.Context, layer string, f *geojson.Feature) (int64, error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, err := insertFeature(ctx, tx, layer, f)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// ImportCollection stores every feature of fc in one transaction. Features
// carrying a "layer" property are stored under that layer; the rest go to
// defaultLayer, and are skipped when it is empty. Features without
// geometry are skipped. It returns the number of stored features.
func (s *Store) ImportCollection(ctx context.Context, defaultLayer string, fc *geojson.FeatureCollection) (int, error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	n := 0
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		layer, _ := f.Properties[features.LayerProperty].(string)
		if layer == "" {
			layer = defaultLayer
		}
		if layer == "" {
			continue
		}
		if _, err := insertFeature(ctx, tx, layer, f); err != nil {
			return 0, fmt.Errorf("feature %d: %w", i, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	monitoring.Logf("featuredb: imported %d of %d features", n, len(fc.Features))
	return n, nil
}

func insertFeature(ctx context.Context, tx *sql.Tx, layer string, f *geojson.Feature) (int64, error) {
	if f.Geometry == nil {
		return 0, fmt.Errorf("feature has no geometry")
	}
	geom, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("encode geometry: %w", err)
	}
	props := f.Properties
	if props == nil {
		props = geojson.Properties{}
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return 0, fmt.Errorf("encode properties: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO features (layer, kind, geometry, properties) VALUES (?, ?, ?, ?)`,
		layer, f.Geometry.GeoJSONType(), string(geom), string(propsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert feature: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert feature: %w", err)
	}

	for key, raw := range props {
		if raw == nil {
			continue
		}
		switch raw.(type) {
		case map[string]interface{}, []interface{}:
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_tags (feature_id, key, value) VALUES (?, ?, ?)`,
			id, key, fmt.Sprint(raw),
		); err != nil {
			return 0, fmt.Errorf("insert tag %q: %w", key, err)
		}
	}
	return id, nil
}

// Fetch returns the geometries stored under layer plus those whose tags
// match the filter, in insertion order.
func (s *Store) Fetch(ctx context.Context, layer string, tags features.Tags) ([]orb.Geometry, error) {
	query, args := selectQuery(layer, tags)
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	var out []orb.Geometry
	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		g, err := geojson.UnmarshalGeometry([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("feature %d: decode geometry: %w", id, err)
		}
		out = append(out, g.Geometry())
	}
	return out, rows.Err()
}

// selectQuery builds the layer-or-tags selection. Keys are visited in
// sorted order so the statement text is stable.
func selectQuery(layer string, tags features.Tags) (string, []interface{}) {
	var b strings.Builder
	args := []interface{}{layer}
	b.WriteString(`SELECT f.id, f.geometry FROM features f WHERE f.layer = ?`)

	for _, key := range tags.Keys() {
		values := tags[key]
		if len(values) == 0 {
			continue
		}
		wildcard := false
		var exact []string
		for _, v := range values {
			if v == features.Wildcard {
				wildcard = true
			} else {
				exact = append(exact, v)
			}
		}
		b.WriteString(` OR EXISTS (SELECT 1 FROM feature_tags t WHERE t.feature_id = f.id AND t.key = ?`)
		args = append(args, key)
		if wildcard {
			b.WriteString(` AND t.value <> ''`)
		} else {
			b.WriteString(` AND t.value IN (?` + strings.Repeat(`, ?`, len(exact)-1) + `)`)
			for _, v := range exact {
				args = append(args, v)
			}
		}
		b.WriteString(`)`)
	}
	b.WriteString(` ORDER BY f.id`)
	return b.String(), args
}

// Layers summarises the stored layers by name.
func (s *Store) Layers(ctx context.Context) ([]LayerSummary, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT layer, MIN(kind), COUNT(*)
		FROM features
		GROUP BY layer
		ORDER BY layer
	`)
	if err != nil {
		return nil, fmt.Errorf("query layers: %w", err)
	}
	defer rows.Close()

	var out []LayerSummary
	for rows.Next() {
		var l LayerSummary
		if err := rows.Scan(&l.Name, &l.Kind, &l.Features); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteLayer removes every feature of layer and returns the count.
func (s *Store) DeleteLayer(ctx context.Context, layer string) (int64, error) {
	res, err := s.ExecContext(ctx, `DELETE FROM features WHERE layer = ?`, layer)
	if err != nil {
		return 0, fmt.Errorf("delete layer %q: %w", layer, err)
	}
	return res.RowsAffected()
}
