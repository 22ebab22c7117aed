package detection

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-measure/internal/geometry"
	"github.com/ironsheep/label-measure/internal/logger"
	"github.com/ironsheep/label-measure/internal/vision"
)

// ErrDegenerateContour is returned when a contour encloses no area, so no
// shape can be compared against it.
var ErrDegenerateContour = errors.New("degenerate contour: enclosed area is zero")

// degenerateArea is the area at or below which a contour is degenerate.
const degenerateArea = 1e-9

// ShapeKind names a fitted shape.
type ShapeKind int

// Shapes in evaluation order. On equal discrepancy the earlier kind wins.
const (
	Rectangle ShapeKind = iota
	Circle
	Ellipse
)

// String returns the lower-case shape name.
func (k ShapeKind) String() string {
	switch k {
	case Rectangle:
		return "rectangle"
	case Circle:
		return "circle"
	case Ellipse:
		return "ellipse"
	default:
		return fmt.Sprintf("ShapeKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler so that kinds appear by name
// in JSON.
func (k ShapeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ShapeKind) UnmarshalText(text []byte) error {
	for _, kind := range []ShapeKind{Rectangle, Circle, Ellipse} {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown shape kind %q", text)
}

// Fit is one fitted shape and how far its area is from the contour's.
type Fit struct {
	Kind ShapeKind `json:"kind"`

	// Dimensions are (width, height) for a rectangle, (radius) for a circle
	// and (major, minor) full axis lengths for an ellipse, in pixels.
	Dimensions []float64 `json:"dimensions"`

	// Area is the fitted shape's area. For an ellipse this is major×minor,
	// the area of its bounding box rather than π/4 of it.
	Area float64 `json:"area"`

	// Signed is Area minus the contour area; Discrepancy is its magnitude.
	Signed      float64 `json:"signed_discrepancy"`
	Discrepancy float64 `json:"discrepancy"`
}

// Fitter classifies contours by the simple shape whose area best matches
// theirs.
type Fitter struct {
	backend   vision.Backend
	tolerance float64
	log       logrus.FieldLogger
}

// NewFitter creates a fitter. opts.ApproxTolerance sets the polygon
// simplification applied before the enclosing circle is fitted.
func NewFitter(backend vision.Backend, opts Options, log logrus.FieldLogger) *Fitter {
	return &Fitter{backend: backend, tolerance: opts.ApproxTolerance, log: logger.OrDiscard(log)}
}

// Evaluate fits every shape to c and returns the fits in evaluation order
// (rectangle, circle, ellipse).
//
// Parameters:
//   - c: A closed contour.
//
// Returns:
//   - []Fit: The successful fits. An ellipse that cannot be fitted (fewer
//     than five points, or a conic that is not an ellipse) is left out
//     rather than failing the call.
//   - error: ErrDegenerateContour for a contour without area, or a backend
//     error from the rectangle or circle fit.
func (f *Fitter) Evaluate(c geometry.Contour) ([]Fit, error) {
	area := c.Area()
	if area <= degenerateArea {
		return nil, ErrDegenerateContour
	}

	fits := make([]Fit, 0, 3)

	rr, err := f.backend.MinAreaRect(c)
	if err != nil {
		return nil, fmt.Errorf("rectangle fit failed: %w", err)
	}
	w, h := rr.SideLengths()
	fits = append(fits, newFit(Rectangle, rr.Area(), area, w, h))

	approx, err := f.backend.ApproxPolygon(c, f.tolerance)
	if err != nil {
		return nil, fmt.Errorf("polygon approximation failed: %w", err)
	}
	circle, err := f.backend.MinEnclosingCircle(approx)
	if err != nil {
		return nil, fmt.Errorf("circle fit failed: %w", err)
	}
	fits = append(fits, newFit(Circle, circle.Area(), area, circle.Radius))

	ellipse, err := f.backend.FitEllipse(c)
	if err != nil {
		f.log.WithError(err).WithField("points", len(c)).Debug("ellipse fit skipped")
	} else {
		fits = append(fits, newFit(Ellipse, ellipse.Area(), area, ellipse.Major, ellipse.Minor))
	}

	return fits, nil
}

// BestFit returns the fit with the smallest absolute area discrepancy. Ties
// go to the shape evaluated first.
func (f *Fitter) BestFit(c geometry.Contour) (Fit, error) {
	fits, err := f.Evaluate(c)
	if err != nil {
		return Fit{}, err
	}

	best := fits[0]
	for _, fit := range fits[1:] {
		if fit.Discrepancy < best.Discrepancy {
			best = fit
		}
	}

	f.log.WithFields(logrus.Fields{
		"kind":        best.Kind.String(),
		"dimensions":  best.Dimensions,
		"discrepancy": best.Discrepancy,
	}).Debug("best fit")

	return best, nil
}

func newFit(kind ShapeKind, fitted, contour float64, dims ...float64) Fit {
	signed := fitted - contour
	return Fit{
		Kind:        kind,
		Dimensions:  dims,
		Area:        fitted,
		Signed:      signed,
		Discrepancy: math.Abs(signed),
	}
}
