package coverage

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by the planner layers wraps exactly
// one of these, so callers branch with errors.Is.
var (
	// ErrConfiguration reports an invalid parameter: a non-positive bin size,
	// negative sigma or alpha, a threshold outside the heatmap range, and so on.
	ErrConfiguration = errors.New("configuration error")

	// ErrInputType reports a feature layer that mixes geometry kinds or
	// contains geometry that cannot be rasterized.
	ErrInputType = errors.New("input type error")

	// ErrEmptyResult reports a stage that produced nothing to work with,
	// such as a threshold that leaves no foreground bins.
	ErrEmptyResult = errors.New("empty result")

	// ErrDegenerateGeometry reports a polygon that collapsed during
	// simplification or offsetting.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// ConfigurationErrorf returns an error wrapping ErrConfiguration.
func ConfigurationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// InputTypeErrorf returns an error wrapping ErrInputType.
func InputTypeErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInputType, fmt.Sprintf(format, args...))
}

// EmptyResultErrorf returns an error wrapping ErrEmptyResult.
func EmptyResultErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrEmptyResult, fmt.Sprintf(format, args...))
}

// DegenerateGeometryErrorf returns an error wrapping ErrDegenerateGeometry.
func DegenerateGeometryErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDegenerateGeometry, fmt.Sprintf(format, args...))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return v == v && v-v == 0
}
