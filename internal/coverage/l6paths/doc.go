// Package l6paths owns Layer 6 (Paths) of the coverage planner.
//
// Responsibilities: turning ring polygons into bounded-length travel
// paths. Each ring is opened at the vertex nearest the origin, cut into
// pieces no longer than the maximum path length, and trimmed by the
// sensor radius.
// Key types: Segmenter, CoveragePath, CutPolicy.
//
// Dependency rule: L6 may depend on the shared coverage package only.
package l6paths
