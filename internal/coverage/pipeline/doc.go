// Package pipeline wires the six planner layers into a single plan.
//
// Responsibilities: building the grid from the survey boundary,
// rasterizing every layer once, and re-running combine, extract, ring and
// segment stages for each parameter set. Region failures during ring
// generation drop that region with a warning; global failures abort.
// LoadLayers fetches the layer geometry from a features.Provider.
// Key types: Planner, LayerInput, Thresholds, Result.
//
// Dependency rule: pipeline may depend on every layer and on features; no
// layer depends on pipeline.
package pipeline
