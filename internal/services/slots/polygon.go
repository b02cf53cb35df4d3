package slots

import "image"

// PointInPolygon reports +1 when p is strictly inside poly, 0 when it lies on
// an edge and -1 when outside. The polygon is closed implicitly.
func PointInPolygon(p image.Point, poly []image.Point) int {
	n := len(poly)
	if n < 3 {
		return -1
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[j], poly[i]
		if onSegment(p, a, b) {
			return 0
		}
		if (b.Y > p.Y) != (a.Y > p.Y) {
			// x coordinate of the edge at p.Y, compared without division
			lhs := (p.X - b.X) * (a.Y - b.Y)
			rhs := (a.X - b.X) * (p.Y - b.Y)
			if a.Y-b.Y < 0 {
				lhs, rhs = -lhs, -rhs
			}
			if lhs < rhs {
				inside = !inside
			}
		}
	}
	if inside {
		return 1
	}
	return -1
}

func onSegment(p, a, b image.Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if cross != 0 {
		return false
	}
	return p.X >= min(a.X, b.X) && p.X <= max(a.X, b.X) &&
		p.Y >= min(a.Y, b.Y) && p.Y <= max(a.Y, b.Y)
}

// Contains reports whether p is inside or on the boundary of poly
func Contains(poly []image.Point, p image.Point) bool {
	return PointInPolygon(p, poly) >= 0
}
