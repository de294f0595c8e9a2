// Package l3heatmap owns Layer 3 (Heatmap) of the coverage planner.
//
// Responsibilities: Gaussian smoothing of per-layer probability grids and
// their weighted sum into one combined heatmap. Combination is cheap and
// is repeated for every parameter change against the same layer grids.
// Key types: Combiner, LayerParams.
//
// Dependency rule: L3 may depend on L1, but never on L2 or L4+.
package l3heatmap
