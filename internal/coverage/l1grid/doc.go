// Package l1grid owns Layer 1 (Grid) of the coverage planner.
//
// Responsibilities: the world-to-bin affine mapping for a survey region
// and the immutable float surfaces (layer grids and combined heatmaps)
// aligned to it.
// Key types: GridIndex, Surface.
//
// Dependency rule: L1 depends on nothing but the shared coverage package.
// No geometry rasterization or smoothing is allowed in this package.
package l1grid
