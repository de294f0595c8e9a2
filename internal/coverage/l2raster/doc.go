// Package l2raster owns Layer 2 (Raster) of the coverage planner.
//
// Responsibilities: classifying feature geometry once at ingestion,
// sampling lines and filling polygons onto a GridIndex, and producing one
// normalized probability grid per layer. Layers are rasterized in a
// bounded worker pool that reports results to a single reducer.
// Key types: Feature, Layer, Options.
//
// Dependency rule: L2 may depend on L1, the shared coverage package and
// monitoring, but never on L3+.
package l2raster
