package detection

import "fmt"

// MarginStrategy selects how a confirmed region is masked out.
type MarginStrategy string

const (
	// MarginRect paints the contour's bounding rectangle, inflated by
	// MaskMarginRatio, black.
	MarginRect MarginStrategy = "rect"

	// MarginContour fills only the contour polygon and excludes its plain
	// bounding rectangle.
	MarginContour MarginStrategy = "contour"
)

// Options configures extraction, fitting and refinement.
type Options struct {
	// EdgeLow and EdgeHigh are the Canny hysteresis thresholds.
	EdgeLow  float64 `toml:"edge_low"`
	EdgeHigh float64 `toml:"edge_high"`

	// CloseKernel is the side of the square structuring element used to
	// close broken borders.
	CloseKernel int `toml:"close_kernel"`

	// MinArea is the noise floor in square pixels. Only contours with an
	// area strictly above it become candidates.
	MinArea float64 `toml:"min_area"`

	// MaskMarginRatio inflates the masked rectangle by this fraction of its
	// width and height, split evenly across both sides.
	MaskMarginRatio float64        `toml:"mask_margin_ratio"`
	MarginStrategy  MarginStrategy `toml:"margin_strategy"`

	// ApproxTolerance is the polygon simplification tolerance in pixels
	// applied before the enclosing circle is fitted.
	ApproxTolerance float64 `toml:"approx_tolerance"`
}

// DefaultOptions returns the options tuned for specimen photographs.
func DefaultOptions() Options {
	return Options{
		EdgeLow:         50,
		EdgeHigh:        220,
		CloseKernel:     3,
		MinArea:         1800,
		MaskMarginRatio: 0.10,
		MarginStrategy:  MarginRect,
		ApproxTolerance: 3,
	}
}

// Validate reports the first invalid option.
func (o Options) Validate() error {
	switch {
	case o.EdgeLow < 0 || o.EdgeHigh < 0:
		return fmt.Errorf("edge thresholds must not be negative (low=%v high=%v)", o.EdgeLow, o.EdgeHigh)
	case o.EdgeLow > o.EdgeHigh:
		return fmt.Errorf("edge low threshold %v exceeds high threshold %v", o.EdgeLow, o.EdgeHigh)
	case o.CloseKernel < 1:
		return fmt.Errorf("close kernel must be at least 1, got %d", o.CloseKernel)
	case o.MinArea < 0:
		return fmt.Errorf("min area must not be negative, got %v", o.MinArea)
	case o.MaskMarginRatio < 0:
		return fmt.Errorf("mask margin ratio must not be negative, got %v", o.MaskMarginRatio)
	case o.ApproxTolerance < 0:
		return fmt.Errorf("approx tolerance must not be negative, got %v", o.ApproxTolerance)
	}
	switch o.MarginStrategy {
	case MarginRect, MarginContour:
	default:
		return fmt.Errorf("unknown margin strategy %q: use %q or %q", o.MarginStrategy, MarginRect, MarginContour)
	}
	return nil
}
