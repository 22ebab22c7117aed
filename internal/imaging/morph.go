package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// MorphClose applies a morphological closing (dilation followed by erosion)
// to a binary map using a square structuring element of kernelSize pixels.
//
// Closing bridges gaps narrower than the kernel so that a boundary broken
// into fragments by edge detection becomes a single closed loop. A kernel
// size of 1 or less returns an unmodified copy. Even sizes are rounded down
// to the next odd size.
//
// The result is re-binarised at 50% so that it stays a strict 0/255 map.
func MorphClose(bin *image.Gray, kernelSize int) *image.Gray {
	radius := float64((kernelSize - 1) / 2)
	if radius <= 0 {
		return segment.Threshold(bin, 128)
	}
	dilated := effect.Dilate(bin, radius)
	eroded := effect.Erode(dilated, radius)
	return segment.Threshold(eroded, 128)
}
