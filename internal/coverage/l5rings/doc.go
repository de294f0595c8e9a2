// Package l5rings owns Layer 5 (Rings) of the coverage planner.
//
// Responsibilities: simplifying extracted regions and generating the
// nested rings a sensor sweeps by repeatedly offsetting each region
// inwards. The offset primitive is pluggable; the default is a Clipper
// polygon offset with round joins.
// Key types: Generator, OffsetOperator, Simplifier.
//
// Dependency rule: L5 may depend on the shared coverage package and on
// monitoring for its warnings; it takes plain polygons, not region nodes.
package l5rings
