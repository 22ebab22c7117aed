package vision

import (
	"image"

	"github.com/ironsheep/label-measure/internal/geometry"
	"github.com/ironsheep/label-measure/internal/imaging"
)

func init() {
	Register("native", func() (Backend, error) { return Native{}, nil })
}

// Native is the pure-Go backend. It is stateless and safe for concurrent use.
type Native struct{}

// Name implements Backend.
func (Native) Name() string { return "native" }

// DetectEdges implements Backend using imaging.Canny.
func (Native) DetectEdges(img image.Image, low, high float64) (*image.Gray, error) {
	return imaging.Canny(img, low, high), nil
}

// Close implements Backend using imaging.MorphClose.
func (Native) Close(bin *image.Gray, kernelSize int) (*image.Gray, error) {
	return imaging.MorphClose(bin, kernelSize), nil
}

// FindContours implements Backend.
//
// Every 8-connected foreground component contributes the outer border of
// the component, traced clockwise from its topmost-leftmost pixel. Borders
// of holes inside a component are not traced. Contours are returned in the
// raster order of their starting pixels.
//
// # Algorithm
//
//  1. Raster scan for an unvisited foreground pixel; it is the
//     topmost-leftmost pixel of a new component.
//  2. Flood-fill the component to mark it visited.
//  3. Trace the component's border with Moore-neighbour tracing, stopping by
//     Jacob's criterion (the first step out of the start pixel repeats).
//  4. Drop points where the border continues straight on, leaving only the
//     turning points.
func (Native) FindContours(bin *image.Gray) ([]geometry.Contour, error) {
	b := bin.Bounds()
	width, height := b.Dx(), b.Dy()
	fg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < width && y < height && bin.Pix[bin.PixOffset(x+b.Min.X, y+b.Min.Y)] != 0
	}

	visited := make([]bool, width*height)
	contours := make([]geometry.Contour, 0)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !fg(x, y) || visited[y*width+x] {
				continue
			}
			size := floodFill(fg, visited, width, x, y)
			border := traceBorder(fg, image.Pt(x, y), size)
			contours = append(contours, compressStraightRuns(border))
		}
	}

	return contours, nil
}

// MinAreaRect implements Backend.
func (Native) MinAreaRect(c geometry.Contour) (geometry.RotatedRect, error) {
	return geometry.MinAreaRect(c), nil
}

// MinEnclosingCircle implements Backend.
func (Native) MinEnclosingCircle(c geometry.Contour) (geometry.Circle, error) {
	return geometry.MinEnclosingCircle(c), nil
}

// FitEllipse implements Backend.
func (Native) FitEllipse(c geometry.Contour) (geometry.Ellipse, error) {
	return geometry.FitEllipse(c)
}

// ApproxPolygon implements Backend.
func (Native) ApproxPolygon(c geometry.Contour, tolerance float64) (geometry.Contour, error) {
	return geometry.ApproxPolygon(c, tolerance), nil
}

// neighbours lists the 8-neighbourhood clockwise on screen, starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const west = 4

// floodFill marks the 8-connected component containing (startX, startY) as
// visited and returns its pixel count.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow on
// large components.
func floodFill(fg func(x, y int) bool, visited []bool, width, startX, startY int) int {
	stack := []image.Point{{X: startX, Y: startY}}
	count := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fg(p.X, p.Y) || visited[p.Y*width+p.X] {
			continue
		}
		visited[p.Y*width+p.X] = true
		count++

		for _, d := range neighbours {
			stack = append(stack, p.Add(d))
		}
	}
	return count
}

// traceBorder walks the outer border of the component whose topmost-leftmost
// pixel is start. size bounds the walk so that a malformed map can never
// loop forever.
func traceBorder(fg func(x, y int) bool, start image.Point, size int) geometry.Contour {
	contour := geometry.Contour{start}

	// The west neighbour of the start pixel is always background.
	p, back := start, west
	var firstStep image.Point
	limit := 4*size + 8

	for step := 0; step < limit; step++ {
		next, nextBack, ok := mooreStep(fg, p, back)
		if !ok {
			break // isolated pixel
		}
		if step == 0 {
			firstStep = next
		} else if p == start && next == firstStep {
			break
		}
		contour = append(contour, next)
		p, back = next, nextBack
	}

	if n := len(contour); n > 1 && contour[n-1] == start {
		contour = contour[:n-1]
	}
	return contour
}

// mooreStep searches the neighbours of p clockwise, starting just after the
// background neighbour in direction back, and returns the first foreground
// pixel together with the direction from it to the last background pixel
// examined.
func mooreStep(fg func(x, y int) bool, p image.Point, back int) (image.Point, int, bool) {
	prev := p.Add(neighbours[back])
	for i := 1; i <= 8; i++ {
		d := (back + i) % 8
		q := p.Add(neighbours[d])
		if fg(q.X, q.Y) {
			return q, directionOf(prev.Sub(q)), true
		}
		prev = q
	}
	return p, 0, false
}

func directionOf(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return west
}

// compressStraightRuns keeps only the points of a closed chain where the
// direction of travel changes.
func compressStraightRuns(c geometry.Contour) geometry.Contour {
	n := len(c)
	if n < 3 {
		return c
	}
	out := make(geometry.Contour, 0, n)
	for i := 0; i < n; i++ {
		prev, cur, next := c[(i+n-1)%n], c[i], c[(i+1)%n]
		if cur.Sub(prev) != next.Sub(cur) {
			out = append(out, cur)
		}
	}
	if len(out) == 0 {
		return geometry.Contour{c[0]}
	}
	return out
}
