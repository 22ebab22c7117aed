package geometry

import "math"

// ApproxPolygon simplifies a closed contour with the Douglas-Peucker
// algorithm. Every removed point lies within tolerance pixels of the
// simplified outline.
//
// The curve is split at the vertex farthest from its first vertex and each
// half is simplified as an open polyline, so the result does not depend on
// an arbitrary choice of closing edge.
func ApproxPolygon(c Contour, tolerance float64) Contour {
	if len(c) < 3 || tolerance <= 0 {
		return c.Clone()
	}

	far := 0
	farDist := -1.0
	p0 := ToPointF(c[0])
	for i, p := range c {
		if d := Dist(p0, ToPointF(p)); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return Contour{c[0]}
	}

	keep := make([]bool, len(c))
	keep[0] = true
	keep[far] = true
	simplifyRange(c, 0, far, tolerance, keep)

	// Second half wraps around to the first vertex.
	tail := append(Contour{}, c[far:]...)
	tail = append(tail, c[0])
	tailKeep := make([]bool, len(tail))
	simplifyRange(tail, 0, len(tail)-1, tolerance, tailKeep)
	for i := 1; i < len(tail)-1; i++ {
		if tailKeep[i] {
			keep[far+i] = true
		}
	}

	out := make(Contour, 0, len(c))
	for i, k := range keep {
		if k {
			out = append(out, c[i])
		}
	}
	return out
}

// simplifyRange marks the points between first and last that must be kept.
func simplifyRange(c Contour, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}
	a, b := ToPointF(c[first]), ToPointF(c[last])
	idx := -1
	maxDist := tolerance
	for i := first + 1; i < last; i++ {
		if d := segmentDistance(ToPointF(c[i]), a, b); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if idx < 0 {
		return
	}
	keep[idx] = true
	simplifyRange(c, first, idx, tolerance, keep)
	simplifyRange(c, idx, last, tolerance, keep)
}

// segmentDistance returns the distance from p to segment ab.
func segmentDistance(p, a, b PointF) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Dist(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Dist(p, PointF{X: a.X + t*dx, Y: a.Y + t*dy})
}
