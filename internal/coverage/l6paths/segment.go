package l6paths

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/coverage.planner/internal/coverage"
)

// CutPolicy selects how an over-long loop is divided.
type CutPolicy int

const (
	// ModulusCut divides a line of length L into ceil(L/max) equal pieces.
	ModulusCut CutPolicy = iota
	// BinaryCut halves a line until every piece fits.
	BinaryCut
)

// ParseCutPolicy maps a configuration name to a policy.
func ParseCutPolicy(name string) (CutPolicy, error) {
	switch name {
	case "", "modulus":
		return ModulusCut, nil
	case "binary":
		return BinaryCut, nil
	default:
		return 0, coverage.ConfigurationErrorf("unknown cut policy %q (want modulus or binary)", name)
	}
}

func (p CutPolicy) String() string {
	if p == BinaryCut {
		return "binary"
	}
	return "modulus"
}

// CoveragePath is one travel segment. Line is owned by the path and shares
// no backing array with any other path.
type CoveragePath struct {
	Line   orb.LineString
	Region int
	Ring   int
	Length float64
}

// Segmenter cuts ring polygons into coverage paths.
type Segmenter struct {
	// MaxLength bounds the length of every path before trimming.
	MaxLength float64
	// SensorRadius is trimmed from the start of every path; pieces
	// shorter than it are dropped.
	SensorRadius float64
	// Origin is the reference point for choosing where a loop starts.
	Origin orb.Point
	Policy CutPolicy
}

// Validate checks the segmenter parameters.
func (s *Segmenter) Validate() error {
	if !coverage.IsFinite(s.MaxLength) || s.MaxLength <= 0 {
		return coverage.ConfigurationErrorf("maximum path length must be positive, got %v", s.MaxLength)
	}
	if !coverage.IsFinite(s.SensorRadius) || s.SensorRadius < 0 {
		return coverage.ConfigurationErrorf("sensor radius must be a non-negative number, got %v", s.SensorRadius)
	}
	return nil
}

// Segment converts the exterior of ring into trimmed paths tagged with the
// region and ring indices, in order along the loop.
func (s *Segmenter) Segment(region, ring int, p orb.Polygon) ([]CoveragePath, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(p) == 0 || len(p[0]) < 2 {
		return nil, nil
	}
	loop := s.Loop(p[0])
	var out []CoveragePath
	for _, ls := range s.Trim(s.Cut(loop)) {
		out = append(out, CoveragePath{
			Line:   ls,
			Region: region,
			Ring:   ring,
			Length: planar.Length(ls),
		})
	}
	return out, nil
}

// Loop opens r at the vertex nearest Origin and returns it as a closed
// line starting and ending there. The first of equally near vertices
// wins.
func (s *Segmenter) Loop(r orb.Ring) orb.LineString {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	if n == 0 {
		return nil
	}
	best, bestDist := 0, math.Inf(1)
	for k := 0; k < n; k++ {
		if d := planar.DistanceSquared(r[k], s.Origin); d < bestDist {
			best, bestDist = k, d
		}
	}
	loop := make(orb.LineString, 0, n+1)
	loop = append(loop, r[best:n]...)
	loop = append(loop, r[:best]...)
	return append(loop, r[best])
}

// Cut divides line according to the policy so that no piece exceeds
// MaxLength.
func (s *Segmenter) Cut(line orb.LineString) []orb.LineString {
	if s.Policy == BinaryCut {
		return binaryCut(line, s.MaxLength, nil)
	}
	return modulusCut(line, s.MaxLength)
}

func modulusCut(line orb.LineString, max float64) []orb.LineString {
	length := planar.Length(line)
	if length <= max {
		return []orb.LineString{line.Clone()}
	}
	n := int(math.Ceil(length / max))
	step := length / float64(n)
	pieces := make([]orb.LineString, 0, n)
	rest := line
	for k := 1; k < n; k++ {
		var head orb.LineString
		head, rest = coverage.CutAt(rest, step)
		pieces = append(pieces, head)
		if rest == nil {
			return pieces
		}
	}
	return append(pieces, rest.Clone())
}

func binaryCut(line orb.LineString, max float64, out []orb.LineString) []orb.LineString {
	length := planar.Length(line)
	if length <= max {
		return append(out, line.Clone())
	}
	head, tail := coverage.CutAt(line, length/2)
	out = binaryCut(head, max, out)
	return binaryCut(tail, max, out)
}

// Trim drops pieces shorter than the sensor radius and removes the
// leading sensor radius from the rest. A piece left shorter than the
// radius after trimming is dropped as well.
func (s *Segmenter) Trim(lines []orb.LineString) []orb.LineString {
	r := s.SensorRadius
	out := make([]orb.LineString, 0, len(lines))
	for _, ls := range lines {
		if planar.Length(ls) < r {
			continue
		}
		_, tail := coverage.CutAt(ls, r)
		if len(tail) < 2 || planar.Length(tail) < r {
			continue
		}
		out = append(out, tail)
	}
	return out
}
