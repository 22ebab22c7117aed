package geometry

import (
	"image"
	"math"
	"math/rand"
)

// Circle is a circle in sub-pixel coordinates.
type Circle struct {
	Center PointF  `json:"center"`
	Radius float64 `json:"radius"`
}

// Area returns π·r².
func (c Circle) Area() float64 {
	return math.Pi * c.Radius * c.Radius
}

// circleEps absorbs rounding when testing whether a point lies on the
// boundary of a candidate circle.
const circleEps = 1e-7

func (c Circle) contains(p PointF) bool {
	return Dist(c.Center, p) <= c.Radius*(1+circleEps)+circleEps
}

// MinEnclosingCircle returns the smallest circle containing every point.
//
// Welzl's incremental algorithm is used. Its expected linear running time
// relies on a random processing order; contour points arrive in boundary
// order, which is close to the worst case, so the points are shuffled with a
// fixed seed. The fixed seed keeps the result reproducible for identical
// input.
func MinEnclosingCircle(pts []image.Point) Circle {
	if len(pts) == 0 {
		return Circle{}
	}

	shuffled := make([]PointF, len(pts))
	for i, p := range pts {
		shuffled[i] = ToPointF(p)
	}
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	c := Circle{Center: shuffled[0]}
	for i := 1; i < len(shuffled); i++ {
		if c.contains(shuffled[i]) {
			continue
		}
		c = Circle{Center: shuffled[i]}
		for j := 0; j < i; j++ {
			if c.contains(shuffled[j]) {
				continue
			}
			c = circleFrom2(shuffled[i], shuffled[j])
			for k := 0; k < j; k++ {
				if c.contains(shuffled[k]) {
					continue
				}
				c = circleFrom3(shuffled[i], shuffled[j], shuffled[k])
			}
		}
	}
	return c
}

// circleFrom2 returns the circle with segment ab as its diameter.
func circleFrom2(a, b PointF) Circle {
	center := PointF{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	return Circle{Center: center, Radius: Dist(a, b) / 2}
}

// circleFrom3 returns the circumcircle of abc. Collinear points fall back to
// the circle spanning the two farthest-apart points.
func circleFrom3(a, b, c PointF) Circle {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	if math.Abs(d) < 1e-12 {
		best := circleFrom2(a, b)
		if alt := circleFrom2(a, c); alt.Radius > best.Radius {
			best = alt
		}
		if alt := circleFrom2(b, c); alt.Radius > best.Radius {
			best = alt
		}
		return best
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	center := PointF{X: a.X + ux, Y: a.Y + uy}
	return Circle{Center: center, Radius: math.Hypot(ux, uy)}
}
