// Package api serves a Planner over HTTP so clients can re-run the
// combine, extract, ring and segment stages with new parameters without
// re-rasterizing the layers.
//
// Responsibilities: decoding parameter overrides, mapping pipeline errors
// to status codes, and rendering results as GeoJSON, an interactive
// echarts heatmap or a PNG.
// Key types: Server, PlanResponse, LayerInfo.
//
// Dependency rule: api depends on pipeline, render, config and httputil;
// nothing in the pipeline depends on api.
package api
