package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
)

// Canny performs Canny edge detection and returns a binary edge map.
//
// Edge pixels are 255 and all other pixels 0. The map is anchored at (0,0)
// and has the same size as the input.
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - thresholdLow: Gradient magnitude above which a pixel may be an edge if it
//     connects to a strong edge.
//   - thresholdHigh: Gradient magnitude above which a pixel is always an edge.
//
// Thresholds use OpenCV's convention: the gradient magnitude is the L1 norm
// |Gx| + |Gy| of 3x3 Sobel responses on the 0-255 intensity scale, so values
// tuned for cv2.Canny carry over unchanged.
//
// # Algorithm
//
//  1. Grayscale conversion (bild effect.Grayscale)
//  2. Sobel gradients with replicated borders
//  3. Non-maximum suppression along the gradient direction quantised to
//     0°, 45°, 90° and 135°
//  4. Hysteresis: strong pixels seed a flood fill through 8-connected weak
//     pixels
//
// No smoothing is applied before the gradient, matching cv2.Canny. Border
// pixels are never edges.
func Canny(img image.Image, thresholdLow, thresholdHigh float64) *image.Gray {
	gray := effect.Grayscale(img)
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	result := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return result
	}

	at := func(x, y int) int {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return int(gray.Pix[gray.PixOffset(x+bounds.Min.X, y+bounds.Min.Y)])
	}

	gx := make([]int, width*height)
	gy := make([]int, width*height)
	mag := make([]int, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			dy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			i := y*width + x
			gx[i], gy[i] = dx, dy
			mag[i] = abs(dx) + abs(dy)
		}
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, width*height)
	queue := make([]int, 0, 1024)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			m := mag[i]
			if float64(m) <= thresholdLow {
				continue
			}

			// tan(22.5°) ≈ 0.4142 and tan(67.5°) ≈ 2.4142, scaled by 1000.
			ax, ay := abs(gx[i]), abs(gy[i])
			var n1, n2 int
			switch {
			case ay*1000 <= ax*414:
				n1, n2 = mag[i-1], mag[i+1]
			case ay*1000 >= ax*2414:
				n1, n2 = mag[i-width], mag[i+width]
			case (gx[i] > 0) == (gy[i] > 0):
				n1, n2 = mag[i-width-1], mag[i+width+1]
			default:
				n1, n2 = mag[i-width+1], mag[i+width-1]
			}
			if m <= n1 || m < n2 {
				continue
			}

			if float64(m) > thresholdHigh {
				state[i] = strong
				queue = append(queue, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		result.Pix[i] = 255
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if state[j] == weak {
					state[j] = strong
					queue = append(queue, j)
				}
			}
		}
	}

	return result
}

// IsSet reports whether the binary map has a foreground pixel at (x, y).
// Coordinates outside the map are background.
func IsSet(bin *image.Gray, x, y int) bool {
	if !image.Pt(x, y).In(bin.Bounds()) {
		return false
	}
	return bin.GrayAt(x, y).Y != 0
}

// Set marks (x, y) as foreground when it lies inside the map.
func Set(bin *image.Gray, x, y int) {
	if image.Pt(x, y).In(bin.Bounds()) {
		bin.SetGray(x, y, color.Gray{Y: 255})
	}
}

// ClearRect sets every pixel of r (clipped to the map) to background.
func ClearRect(bin *image.Gray, r image.Rectangle) {
	r = r.Intersect(bin.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := bin.Pix[bin.PixOffset(r.Min.X, y):bin.PixOffset(r.Max.X, y)]
		for i := range row {
			row[i] = 0
		}
	}
}

// CopyRect copies the pixels of r from src into dst, clipped to both maps.
func CopyRect(dst, src *image.Gray, r image.Rectangle) {
	r = r.Intersect(dst.Bounds()).Intersect(src.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(dst.Pix[dst.PixOffset(r.Min.X, y):dst.PixOffset(r.Max.X, y)],
			src.Pix[src.PixOffset(r.Min.X, y):src.PixOffset(r.Max.X, y)])
	}
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
