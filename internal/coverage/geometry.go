package coverage

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Interpolate returns the point at distance d along ls, clamped to the end
// points.
func Interpolate(ls orb.LineString, d float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	if d <= 0 {
		return ls[0]
	}
	walked := 0.0
	for i := 1; i < len(ls); i++ {
		seg := planar.Distance(ls[i-1], ls[i])
		if walked+seg >= d && seg > 0 {
			return lerp(ls[i-1], ls[i], (d-walked)/seg)
		}
		walked += seg
	}
	return ls[len(ls)-1]
}

// CutAt splits ls at distance d from its start. Both halves are new slices;
// the cut point is shared as the last vertex of head and first of tail.
// A distance at or beyond either end returns the whole line as one half
// and nil as the other.
func CutAt(ls orb.LineString, d float64) (head, tail orb.LineString) {
	if len(ls) < 2 {
		return ls.Clone(), nil
	}
	if d <= 0 {
		return nil, ls.Clone()
	}
	walked := 0.0
	for i := 1; i < len(ls); i++ {
		seg := planar.Distance(ls[i-1], ls[i])
		if walked+seg < d {
			walked += seg
			continue
		}

		if walked+seg == d {
			if i == len(ls)-1 {
				return ls.Clone(), nil
			}
			head = append(orb.LineString(nil), ls[:i+1]...)
			tail = append(orb.LineString(nil), ls[i:]...)
			return head, tail
		}

		p := lerp(ls[i-1], ls[i], (d-walked)/seg)
		head = append(append(orb.LineString(nil), ls[:i]...), p)
		tail = append(orb.LineString{p}, ls[i:]...)
		return head, tail
	}
	return ls.Clone(), nil
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}
