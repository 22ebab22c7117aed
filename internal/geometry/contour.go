package geometry

import (
	"image"
	"math"
)

// Contour is a closed boundary given as an ordered sequence of pixel
// coordinates. The last point connects back to the first.
type Contour []image.Point

// PointF is a point with sub-pixel precision.
type PointF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToPointF converts an integer pixel coordinate.
func ToPointF(p image.Point) PointF {
	return PointF{X: float64(p.X), Y: float64(p.Y)}
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b PointF) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Area returns the area enclosed by the contour using the shoelace formula.
//
// Fewer than three points enclose nothing and yield 0. The result is always
// non-negative regardless of the contour's orientation.
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum int64
	for i := range c {
		j := (i + 1) % len(c)
		sum += int64(c[i].X)*int64(c[j].Y) - int64(c[j].X)*int64(c[i].Y)
	}
	return math.Abs(float64(sum)) / 2
}

// BoundingRect returns the smallest axis-aligned rectangle containing every
// point of the contour. Max is exclusive, so a single point yields a 1x1
// rectangle. An empty contour yields the zero rectangle.
func (c Contour) BoundingRect() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	minX, minY := c[0].X, c[0].Y
	maxX, maxY := c[0].X, c[0].Y
	for _, p := range c[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Clone returns an independent copy of the contour.
func (c Contour) Clone() Contour {
	if c == nil {
		return nil
	}
	out := make(Contour, len(c))
	copy(out, c)
	return out
}

// PolygonArea returns the shoelace area of a closed polygon with sub-pixel
// vertices.
func PolygonArea(pts []PointF) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}
