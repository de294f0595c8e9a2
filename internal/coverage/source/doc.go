// Package source resolves the survey inputs for the command-line tools.
//
// Responsibilities: choosing exactly one feature source (GeoJSON file, URL
// or feature database), reading the survey boundary and fetching every
// configured layer.
// Key types: Options, Inputs.
//
// Dependency rule: source depends on features, featuredb and pipeline; only
// cmd packages depend on source.
package source
