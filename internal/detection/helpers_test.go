package detection

import (
	"image"
	"image/color"

	"github.com/ironsheep/label-measure/internal/geometry"
	"github.com/ironsheep/label-measure/internal/vision"
)

// outlineBackend is the native backend with edge detection replaced by a
// darkness threshold, so outlines drawn in a test image are the edge map.
type outlineBackend struct {
	vision.Native
}

func (outlineBackend) DetectEdges(img image.Image, _, _ float64) (*image.Gray, error) {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < 128 {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out, nil
}

// outlineImage returns a white image with a 1 pixel black outline for each
// rectangle. An outline from (x0,y0) to (x1,y1) encloses (x1-x0)*(y1-y0).
func outlineImage(width, height int, rects ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for _, r := range rects {
		for x := r.Min.X; x <= r.Max.X; x++ {
			img.Set(x, r.Min.Y, color.Black)
			img.Set(x, r.Max.Y, color.Black)
		}
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			img.Set(r.Min.X, y, color.Black)
			img.Set(r.Max.X, y, color.Black)
		}
	}
	return img
}

// filledImage returns a white image with each rectangle filled dark gray.
func filledImage(width, height int, rects ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{255, 255, 255, 255}
			for _, r := range rects {
				if image.Pt(x, y).In(r) {
					c = color.RGBA{30, 30, 30, 255}
				}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// rectangleContour returns the corner contour of an outline drawn by
// outlineImage.
func rectangleContour(r image.Rectangle) geometry.Contour {
	return geometry.Contour{
		{r.Min.X, r.Min.Y}, {r.Max.X, r.Min.Y}, {r.Max.X, r.Max.Y}, {r.Min.X, r.Max.Y},
	}
}

// stubBackend returns canned shape fits.
type stubBackend struct {
	vision.Native
	rect       geometry.RotatedRect
	circle     geometry.Circle
	ellipse    geometry.Ellipse
	ellipseErr error
}

func (s stubBackend) MinAreaRect(geometry.Contour) (geometry.RotatedRect, error) {
	return s.rect, nil
}

func (s stubBackend) MinEnclosingCircle(geometry.Contour) (geometry.Circle, error) {
	return s.circle, nil
}

func (s stubBackend) FitEllipse(geometry.Contour) (geometry.Ellipse, error) {
	return s.ellipse, s.ellipseErr
}

// axisRect builds an axis-aligned rotated rectangle of the given size.
func axisRect(w, h float64) geometry.RotatedRect {
	return geometry.NewRotatedRect([4]geometry.PointF{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}})
}
