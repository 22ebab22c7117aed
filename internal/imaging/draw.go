package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Stroke describes how an outline is drawn.
type Stroke struct {
	Color     color.Color
	Thickness int
}

// DefaultStroke is the annotation used to present a candidate region: an
// 8 pixel green outline.
var DefaultStroke = Stroke{Color: color.NRGBA{R: 0, G: 255, B: 0, A: 255}, Thickness: 8}

// ParseColor parses a hex color string like "#00FF00" or "#0f0".
func ParseColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Clone returns a copy of img as NRGBA anchored at (0,0). The copy never
// shares pixels with the source.
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// DrawRectangle returns a copy of img with the outline of r drawn on it.
//
// The outline grows inwards from r so that it never hides pixels outside the
// region being presented. The source image is not modified.
func DrawRectangle(img image.Image, r image.Rectangle, stroke Stroke) *image.NRGBA {
	result := Clone(img)
	t := stroke.Thickness
	if t < 1 {
		t = 1
	}
	r = r.Intersect(result.Bounds())
	if r.Empty() {
		return result
	}
	src := image.NewUniform(stroke.Color)

	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), // top
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), // left
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, e := range edges {
		draw.Draw(result, e.Intersect(r), src, image.Point{}, draw.Src)
	}
	return result
}

// FillRect returns a copy of img with r (clipped to the image) painted in c.
func FillRect(img image.Image, r image.Rectangle, c color.Color) *image.NRGBA {
	result := Clone(img)
	draw.Draw(result, r.Intersect(result.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
	return result
}

// FillPolygon returns a copy of img with the interior and boundary of the
// closed polygon painted in c.
//
// Interior pixels are found with an even-odd scanline test at pixel
// centres; the boundary itself is drawn as a 1 pixel polyline so that
// traced contours are covered completely.
func FillPolygon(img image.Image, poly []image.Point, c color.Color) *image.NRGBA {
	result := Clone(img)
	if len(poly) == 0 {
		return result
	}
	mask := PolygonMask(result.Bounds(), poly)
	ApplyMask(result, mask, c)
	return result
}

// PolygonMask returns a binary map of the given bounds with the polygon's
// interior and boundary set.
func PolygonMask(bounds image.Rectangle, poly []image.Point) *image.Gray {
	mask := image.NewGray(bounds)
	if len(poly) == 0 {
		return mask
	}

	minY, maxY := poly[0].Y, poly[0].Y
	for _, p := range poly[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	minY = max(minY, bounds.Min.Y)
	maxY = min(maxY, bounds.Max.Y-1)

	xs := make([]float64, 0, 16)
	for y := minY; y <= maxY; y++ {
		yc := float64(y)
		xs = xs[:0]
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			if (float64(a.Y) <= yc) == (float64(b.Y) <= yc) {
				continue
			}
			t := (yc - float64(a.Y)) / float64(b.Y-a.Y)
			xs = append(xs, float64(a.X)+t*float64(b.X-a.X))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(xs[i] + 0.5); float64(x) <= xs[i+1]; x++ {
				Set(mask, x, y)
			}
		}
	}

	DrawPolyline(mask, poly, true)
	return mask
}

// DrawPolyline marks the pixels of the polyline through pts on a binary map
// using Bresenham's algorithm. When closed is true the last point connects
// back to the first.
func DrawPolyline(bin *image.Gray, pts []image.Point, closed bool) {
	if len(pts) == 1 {
		Set(bin, pts[0].X, pts[0].Y)
		return
	}
	for i := 0; i+1 < len(pts); i++ {
		drawLine(bin, pts[i], pts[i+1])
	}
	if closed && len(pts) > 2 {
		drawLine(bin, pts[len(pts)-1], pts[0])
	}
}

// ApplyMask paints c into dst wherever mask is set. dst is modified in place;
// callers pass a clone they own.
func ApplyMask(dst *image.NRGBA, mask *image.Gray, c color.Color) {
	r := dst.Bounds().Intersect(mask.Bounds())
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.GrayAt(x, y).Y != 0 {
				dst.SetNRGBA(x, y, nc)
			}
		}
	}
}

func drawLine(bin *image.Gray, a, b image.Point) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	x, y := a.X, a.Y
	for {
		Set(bin, x, y)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}
