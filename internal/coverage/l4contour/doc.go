// Package l4contour owns Layer 4 (Contour) of the coverage planner.
//
// Responsibilities: thresholding a combined heatmap into a foreground
// mask, tracing the mask boundaries along bin edges, and building the
// two-level region tree (outer boundary plus holes) in world coordinates.
// Key types: Mask, RegionNode.
//
// Foreground is 8-connected and background 4-connected, so diagonally
// touching bins belong to one region. Outer boundaries are
// counter-clockwise, holes clockwise.
//
// Dependency rule: L4 may depend on L1, but never on L2, L3 or L5+.
package l4contour
