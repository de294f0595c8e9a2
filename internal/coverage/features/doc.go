// Package features supplies the vector features that feed the planner.
//
// Responsibilities: selecting features for a named layer by a layer
// property or by tag filters, reading GeoJSON from disk or over HTTP, and
// parsing the survey boundary.
// Key types: Provider, Tags, GeoJSONProvider, HTTPProvider.
//
// Dependency rule: features may depend on internal/coverage and the
// support packages, never on the L1-L6 layers or the pipeline.
package features
