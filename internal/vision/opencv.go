//go:build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ironsheep/label-measure/internal/geometry"
)

func init() {
	Register("opencv", func() (Backend, error) { return OpenCV{}, nil })
}

// OpenCV is the backend built on gocv. Every call converts its inputs to
// Mats and releases them before returning.
//
// Contours are retrieved with RetrievalTree and ChainApproxSimple, so unlike
// the native backend the borders of holes are returned too.
type OpenCV struct{}

// Name implements Backend.
func (OpenCV) Name() string { return "opencv" }

// DetectEdges implements Backend with gocv.Canny on the grayscale image.
func (OpenCV) DetectEdges(img image.Image, low, high float64) (*image.Gray, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, float32(low), float32(high))

	return matToGray(edges)
}

// Close implements Backend with gocv.MorphologyEx and a rectangular kernel.
func (OpenCV) Close(bin *image.Gray, kernelSize int) (*image.Gray, error) {
	src, err := grayToMat(bin)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if kernelSize <= 1 {
		return matToGray(src)
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(src, &closed, gocv.MorphClose, kernel)

	return matToGray(closed)
}

// FindContours implements Backend with gocv.FindContours.
func (OpenCV) FindContours(bin *image.Gray) ([]geometry.Contour, error) {
	src, err := grayToMat(bin)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	found := gocv.FindContours(src, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]geometry.Contour, 0, found.Size())
	for _, pts := range found.ToPoints() {
		contours = append(contours, geometry.Contour(pts))
	}
	return contours, nil
}

// MinAreaRect implements Backend with gocv.MinAreaRect. OpenCV reports the
// corners as integer pixels; the rectangle is rebuilt from them.
func (OpenCV) MinAreaRect(c geometry.Contour) (geometry.RotatedRect, error) {
	if len(c) == 0 {
		return geometry.RotatedRect{}, nil
	}
	pv := gocv.NewPointVectorFromPoints(c)
	defer pv.Close()

	rr := gocv.MinAreaRect(pv)
	if len(rr.Points) != 4 {
		return geometry.RotatedRect{}, fmt.Errorf("minAreaRect returned %d corners", len(rr.Points))
	}
	var corners [4]geometry.PointF
	for i, p := range rr.Points {
		corners[i] = geometry.ToPointF(p)
	}
	return geometry.NewRotatedRect(corners), nil
}

// MinEnclosingCircle implements Backend with gocv.MinEnclosingCircle.
func (OpenCV) MinEnclosingCircle(c geometry.Contour) (geometry.Circle, error) {
	if len(c) == 0 {
		return geometry.Circle{}, nil
	}
	pv := gocv.NewPointVectorFromPoints(c)
	defer pv.Close()

	x, y, r := gocv.MinEnclosingCircle(pv)
	return geometry.Circle{
		Center: geometry.PointF{X: float64(x), Y: float64(y)},
		Radius: float64(r),
	}, nil
}

// FitEllipse implements Backend with gocv.FitEllipse.
func (OpenCV) FitEllipse(c geometry.Contour) (geometry.Ellipse, error) {
	if len(c) < 5 {
		return geometry.Ellipse{}, geometry.ErrTooFewPoints
	}
	pv := gocv.NewPointVectorFromPoints(c)
	defer pv.Close()

	rr := gocv.FitEllipse(pv)
	major, minor := float64(rr.Width), float64(rr.Height)
	if minor > major {
		major, minor = minor, major
	}
	if minor <= 0 {
		return geometry.Ellipse{}, geometry.ErrNotEllipse
	}
	return geometry.Ellipse{
		Center: geometry.ToPointF(rr.Center),
		Major:  major,
		Minor:  minor,
		Angle:  rr.Angle,
	}, nil
}

// ApproxPolygon implements Backend with gocv.ApproxPolyDP on a closed curve.
func (OpenCV) ApproxPolygon(c geometry.Contour, tolerance float64) (geometry.Contour, error) {
	if len(c) < 3 {
		return c.Clone(), nil
	}
	pv := gocv.NewPointVectorFromPoints(c)
	defer pv.Close()

	approx := gocv.ApproxPolyDP(pv, tolerance, true)
	defer approx.Close()

	return geometry.Contour(approx.ToPoints()), nil
}

func grayToMat(bin *image.Gray) (gocv.Mat, error) {
	// ImageGrayToMatGray expects a map anchored at (0,0).
	m, err := gocv.ImageGrayToMatGray(bin)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert binary map: %w", err)
	}
	return m, nil
}

func matToGray(m gocv.Mat) (*image.Gray, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert mat: %w", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("unexpected mat image type %T", img)
	}
	return gray, nil
}
