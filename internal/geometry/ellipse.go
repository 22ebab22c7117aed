package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrTooFewPoints is returned when a fit needs more points than supplied.
var ErrTooFewPoints = errors.New("too few points")

// ErrNotEllipse is returned when the best conic through the points is not an
// ellipse (for example all points lie on a line).
var ErrNotEllipse = errors.New("points do not describe an ellipse")

// Ellipse is a fitted ellipse. Major and Minor are full axis lengths
// (diameters), matching OpenCV's fitEllipse box size.
type Ellipse struct {
	Center PointF  `json:"center"`
	Major  float64 `json:"major_axis"`
	Minor  float64 `json:"minor_axis"`
	Angle  float64 `json:"angle_degrees"`
}

// FitEllipse fits an ellipse to at least five points.
//
// # Algorithm
//
// The direct least-squares method of Fitzgibbon, in the numerically stable
// formulation of Halir and Flusser:
//
//  1. Points are centred on their mean and scaled to unit RMS radius.
//  2. The design matrix is split into quadratic (x², xy, y²) and linear
//     (x, y, 1) parts; the linear coefficients are eliminated.
//  3. The reduced 3x3 system is premultiplied by the inverse of the
//     ellipse constraint matrix and decomposed with gonum's Eigen.
//  4. The eigenvector satisfying 4ac - b² > 0 gives the quadratic part; the
//     linear part follows by back substitution.
//  5. The conic is converted to centre, axes and angle, then mapped back to
//     image coordinates.
func FitEllipse(pts []image.Point) (Ellipse, error) {
	if len(pts) < 5 {
		return Ellipse{}, fmt.Errorf("ellipse fit needs 5 points, got %d: %w", len(pts), ErrTooFewPoints)
	}

	var mx, my float64
	for _, p := range pts {
		mx += float64(p.X)
		my += float64(p.Y)
	}
	n := float64(len(pts))
	mx /= n
	my /= n

	var spread float64
	for _, p := range pts {
		dx, dy := float64(p.X)-mx, float64(p.Y)-my
		spread += dx*dx + dy*dy
	}
	scale := math.Sqrt(spread / n)
	if scale == 0 {
		return Ellipse{}, ErrNotEllipse
	}

	d1 := mat.NewDense(len(pts), 3, nil)
	d2 := mat.NewDense(len(pts), 3, nil)
	for i, p := range pts {
		x := (float64(p.X) - mx) / scale
		y := (float64(p.Y) - my) / scale
		d1.SetRow(i, []float64{x * x, x * y, y * y})
		d2.SetRow(i, []float64{x, y, 1})
	}

	var s1, s2, s3 mat.Dense
	s1.Mul(d1.T(), d1)
	s2.Mul(d1.T(), d2)
	s3.Mul(d2.T(), d2)

	var s3inv mat.Dense
	if err := s3inv.Inverse(&s3); err != nil {
		return Ellipse{}, fmt.Errorf("%w: %v", ErrNotEllipse, err)
	}

	var t mat.Dense
	t.Mul(&s3inv, s2.T())
	t.Scale(-1, &t)

	var st mat.Dense
	st.Mul(&s2, &t)
	var m mat.Dense
	m.Add(&s1, &st)

	// Premultiply by the inverse of the constraint matrix
	// C1 = [[0 0 2] [0 -1 0] [2 0 0]].
	reduced := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		reduced.Set(0, j, m.At(2, j)/2)
		reduced.Set(1, j, -m.At(1, j))
		reduced.Set(2, j, m.At(0, j)/2)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(reduced, mat.EigenRight); !ok {
		return Ellipse{}, fmt.Errorf("%w: eigen decomposition failed", ErrNotEllipse)
	}
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	var a1 []float64
	bestCond := 0.0
	for j := 0; j < 3; j++ {
		v0, v1, v2 := real(vecs.At(0, j)), real(vecs.At(1, j)), real(vecs.At(2, j))
		cond := 4*v0*v2 - v1*v1
		if cond > bestCond {
			bestCond = cond
			a1 = []float64{v0, v1, v2}
		}
	}
	if a1 == nil {
		return Ellipse{}, ErrNotEllipse
	}

	a2 := mat.NewVecDense(3, nil)
	a2.MulVec(&t, mat.NewVecDense(3, a1))

	e, err := conicToEllipse(a1[0], a1[1], a1[2], a2.AtVec(0), a2.AtVec(1), a2.AtVec(2))
	if err != nil {
		return Ellipse{}, err
	}
	e.Center = PointF{X: e.Center.X*scale + mx, Y: e.Center.Y*scale + my}
	e.Major *= scale
	e.Minor *= scale
	return e, nil
}

// conicToEllipse converts Ax² + Bxy + Cy² + Dx + Ey + F = 0 to geometric
// parameters.
func conicToEllipse(a, b, c, d, e, f float64) (Ellipse, error) {
	den := b*b - 4*a*c
	if den >= 0 {
		return Ellipse{}, ErrNotEllipse
	}
	x0 := (2*c*d - b*e) / den
	y0 := (2*a*e - b*d) / den

	num := 2 * (a*e*e + c*d*d - b*d*e + den*f)
	root := math.Sqrt((a-c)*(a-c) + b*b)
	p := num * (a + c + root)
	q := num * (a + c - root)
	if p < 0 || q < 0 {
		return Ellipse{}, ErrNotEllipse
	}
	r1 := -math.Sqrt(p) / den
	r2 := -math.Sqrt(q) / den
	major, minor := math.Max(r1, r2), math.Min(r1, r2)

	angle := 0.5 * math.Atan2(-b, c-a) * 180 / math.Pi
	return Ellipse{
		Center: PointF{X: x0, Y: y0},
		Major:  2 * major,
		Minor:  2 * minor,
		Angle:  angle,
	}, nil
}

// Area returns the product of the full axes. This is the proxy used when
// comparing fits against a contour, not the true ellipse area (which is
// π/4 of this value).
func (e Ellipse) Area() float64 {
	return e.Major * e.Minor
}
