package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Length returns the planar length of a projected line string in metres
func Length(ls orb.LineString) float64 {
	if len(ls) < 2 {
		return 0
	}
	return planar.Length(ls)
}

// Degenerate reports whether a line string has fewer than 2 coordinates
func Degenerate(ls orb.LineString) bool {
	return len(ls) < 2
}

// Angle returns the direction from the first to the last coordinate in degrees,
// counter-clockwise from the x axis (east) and normalised to [0, 360).
// ok is false for degenerate geometries only; a closed line has a zero
// chord and an angle of 0.
func Angle(ls orb.LineString) (angle float64, ok bool) {
	if len(ls) < 2 {
		return 0, false
	}
	first, last := ls[0], ls[len(ls)-1]
	dx := last[0] - first[0]
	dy := last[1] - first[1]

	angle = math.Atan2(dy, dx) * 180 / math.Pi
	if angle < 0 {
		angle += 360
	}
	return angle, true
}

// DistanceToPoint is the minimum planar distance between a line string and a point.
// A single-coordinate line string behaves like a point; an empty one is infinitely far.
func DistanceToPoint(ls orb.LineString, p orb.Point) float64 {
	switch len(ls) {
	case 0:
		return math.Inf(1)
	case 1:
		return planar.Distance(ls[0], p)
	}

	best := math.Inf(1)
	for i := 0; i < len(ls)-1; i++ {
		if d := planar.DistanceFromSegment(ls[i], ls[i+1], p); d < best {
			best = d
		}
	}
	return best
}

// DistanceBetween is the minimum planar distance between two line strings
func DistanceBetween(a, b orb.LineString) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	if len(a) == 1 {
		return DistanceToPoint(b, a[0])
	}
	if len(b) == 1 {
		return DistanceToPoint(a, b[0])
	}

	best := math.Inf(1)
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			d := segmentDistance(a[i], a[i+1], b[j], b[j+1])
			if d == 0 {
				return 0
			}
			if d < best {
				best = d
			}
		}
	}
	return best
}

// segmentDistance is the minimum distance between segments p1p2 and q1q2
func segmentDistance(p1, p2, q1, q2 orb.Point) float64 {
	if segmentsIntersect(p1, p2, q1, q2) {
		return 0
	}
	return math.Min(
		math.Min(planar.DistanceFromSegment(q1, q2, p1), planar.DistanceFromSegment(q1, q2, p2)),
		math.Min(planar.DistanceFromSegment(p1, p2, q1), planar.DistanceFromSegment(p1, p2, q2)),
	)
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear and touching cases
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// Lines flattens any orb geometry into line strings. Polygons contribute their
// rings, points become single-coordinate line strings.
func Lines(g orb.Geometry) []orb.LineString {
	switch g := g.(type) {
	case orb.Point:
		return []orb.LineString{{g}}
	case orb.MultiPoint:
		out := make([]orb.LineString, 0, len(g))
		for _, p := range g {
			out = append(out, orb.LineString{p})
		}
		return out
	case orb.LineString:
		return []orb.LineString{g}
	case orb.MultiLineString:
		out := make([]orb.LineString, 0, len(g))
		for _, ls := range g {
			out = append(out, ls)
		}
		return out
	case orb.Ring:
		return []orb.LineString{orb.LineString(g)}
	case orb.Polygon:
		out := make([]orb.LineString, 0, len(g))
		for _, r := range g {
			out = append(out, orb.LineString(r))
		}
		return out
	case orb.MultiPolygon:
		var out []orb.LineString
		for _, poly := range g {
			for _, r := range poly {
				out = append(out, orb.LineString(r))
			}
		}
		return out
	case orb.Collection:
		var out []orb.LineString
		for _, sub := range g {
			out = append(out, Lines(sub)...)
		}
		return out
	}
	return nil
}

// Areas lists the polygons of a geometry, for containment tests
func Areas(g orb.Geometry) []orb.Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return append([]orb.Polygon(nil), g...)
	case orb.Collection:
		var out []orb.Polygon
		for _, sub := range g {
			out = append(out, Areas(sub)...)
		}
		return out
	}
	return nil
}
