// Package render draws a plan result as a static image: the combined
// heatmap underneath, region outlines and the coverage paths on top, one
// colour per ring depth.
package render
