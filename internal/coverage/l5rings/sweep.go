package l5rings

import (
	"math"

	"github.com/banshee-data/coverage.planner/internal/coverage"
)

// SweepOffset returns the ground swath width of a downward sensor at
// height with the given field of view in degrees, reduced by the
// fractional overlap between neighbouring passes. Twice the sensor radius
// used for ring spacing is the zero-overlap swath.
func SweepOffset(overlap, height, fovDeg float64) (float64, error) {
	if !coverage.IsFinite(overlap) || overlap < 0 || overlap > 1 {
		return 0, coverage.ConfigurationErrorf("overlap must be between 0 and 1, got %v", overlap)
	}
	return math.Abs(2 * height * math.Tan(fovDeg*math.Pi/180/2) * (1 - overlap)), nil
}
