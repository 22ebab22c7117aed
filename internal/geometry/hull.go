package geometry

import (
	"image"
	"sort"
)

// ConvexHull returns the convex hull of the points in counter-clockwise order
// (in a y-up frame; clockwise on screen) without repeating the first vertex.
// Collinear points on hull edges are dropped.
func ConvexHull(pts []image.Point) []image.Point {
	if len(pts) < 3 {
		out := make([]image.Point, len(pts))
		copy(out, pts)
		return dedupe(out)
	}

	sorted := make([]image.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})
	sorted = dedupe(sorted)
	if len(sorted) < 3 {
		return sorted
	}

	hull := make([]image.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// cross returns the z component of (a-o) x (b-o).
func cross(o, a, b image.Point) int64 {
	return int64(a.X-o.X)*int64(b.Y-o.Y) - int64(a.Y-o.Y)*int64(b.X-o.X)
}

// dedupe removes consecutive duplicates from a sorted slice.
func dedupe(pts []image.Point) []image.Point {
	if len(pts) < 2 {
		return pts
	}
	out := pts[:1]
	for _, p := range pts[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
