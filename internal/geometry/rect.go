package geometry

import (
	"image"
	"math"
)

// RotatedRect is a rectangle that may be rotated relative to the image axes.
//
// Corners are ordered so that consecutive corners share an edge: Width is the
// length of edge Corners[0]-Corners[1] and Height the length of edge
// Corners[1]-Corners[2].
type RotatedRect struct {
	Center  PointF    `json:"center"`
	Width   float64   `json:"width"`
	Height  float64   `json:"height"`
	Angle   float64   `json:"angle_degrees"`
	Corners [4]PointF `json:"corners"`
}

// Area returns the shoelace area over the four corners. This stays correct
// for any rotation, unlike multiplying the stored Width and Height after the
// corners have been rounded by a backend.
func (r RotatedRect) Area() float64 {
	return PolygonArea(r.Corners[:])
}

// SideLengths returns the lengths of the first two edges measured from the
// corner geometry.
func (r RotatedRect) SideLengths() (float64, float64) {
	return Dist(r.Corners[0], r.Corners[1]), Dist(r.Corners[1], r.Corners[2])
}

// NewRotatedRect builds a rectangle from its four corners.
func NewRotatedRect(corners [4]PointF) RotatedRect {
	var cx, cy float64
	for _, c := range corners {
		cx += c.X
		cy += c.Y
	}
	w, h := Dist(corners[0], corners[1]), Dist(corners[1], corners[2])
	angle := math.Atan2(corners[1].Y-corners[0].Y, corners[1].X-corners[0].X) * 180 / math.Pi
	return RotatedRect{
		Center:  PointF{X: cx / 4, Y: cy / 4},
		Width:   w,
		Height:  h,
		Angle:   angle,
		Corners: corners,
	}
}

// MinAreaRect returns the minimum-area rectangle enclosing the points.
//
// # Algorithm
//
// The optimal rectangle has one side collinear with an edge of the convex
// hull, so every hull edge is tried in turn (rotating calipers): all hull
// vertices are projected onto the edge direction and its normal, and the
// extent product is the candidate area. The first edge reaching the minimum
// wins, which keeps the result deterministic.
//
// Degenerate inputs are handled without error: no points gives a zero
// rectangle, a single point a zero-size rectangle at that point, and
// collinear points a zero-height rectangle along the segment.
func MinAreaRect(pts []image.Point) RotatedRect {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		p := ToPointF(hull[0])
		return NewRotatedRect([4]PointF{p, p, p, p})
	case 2:
		a, b := ToPointF(hull[0]), ToPointF(hull[1])
		return NewRotatedRect([4]PointF{a, b, b, a})
	}

	bestArea := math.Inf(1)
	var best [4]PointF
	for i := range hull {
		p0 := ToPointF(hull[i])
		p1 := ToPointF(hull[(i+1)%len(hull)])
		length := Dist(p0, p1)
		if length == 0 {
			continue
		}
		ux, uy := (p1.X-p0.X)/length, (p1.Y-p0.Y)/length
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, q := range hull {
			dx, dy := float64(q.X)-p0.X, float64(q.Y)-p0.Y
			u := dx*ux + dy*uy
			v := dx*vx + dy*vy
			minU = math.Min(minU, u)
			maxU = math.Max(maxU, u)
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
		}

		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			corner := func(u, v float64) PointF {
				return PointF{X: p0.X + u*ux + v*vx, Y: p0.Y + u*uy + v*vy}
			}
			best = [4]PointF{
				corner(minU, minV),
				corner(maxU, minV),
				corner(maxU, maxV),
				corner(minU, maxV),
			}
		}
	}
	return NewRotatedRect(best)
}
