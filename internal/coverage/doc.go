// Package coverage holds the types shared by every layer of the
// informative-coverage planner: the error taxonomy and a few planar
// geometry helpers.
//
// The planner is split into layers, each in its own subpackage:
//
//	l1grid    - GridIndex and Surface storage
//	l2raster  - vector layers to per-layer probability grids
//	l3heatmap - smoothing and weighted combination
//	l4contour - iso-probability region extraction
//	l5rings   - nested inward-offset rings
//	l6paths   - bounded-length sensor paths
//
// Dependency rule: a layer may import this package and lower-numbered
// layers only. Orchestration lives in the pipeline package.
package coverage
