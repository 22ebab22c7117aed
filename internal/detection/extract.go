package detection

import (
	"fmt"
	"image"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-measure/internal/geometry"
	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/logger"
	"github.com/ironsheep/label-measure/internal/vision"
)

// Candidate is a closed region that may be the label or the scale bar.
type Candidate struct {
	// Area is the contour's enclosed area in square pixels.
	Area float64 `json:"area"`

	// Contour is the closed outline of the region.
	Contour geometry.Contour `json:"-"`

	// Bounds is the axis-aligned bounding rectangle of Contour.
	Bounds image.Rectangle `json:"-"`
}

// CandidateList holds candidates sorted by area, largest first. Every area is
// strictly above the noise floor the list was extracted with.
type CandidateList []Candidate

// Frame is the working image together with the rectangles already masked
// out of it.
type Frame struct {
	Image    image.Image
	Excluded []image.Rectangle

	// source is the image before any masking.
	source image.Image
}

// NewFrame starts a frame from a private copy of img anchored at (0,0).
func NewFrame(img image.Image) Frame {
	clone := imaging.Clone(img)
	return Frame{Image: clone, source: clone}
}

// withExclusion returns a frame showing img with r added to the excluded
// rectangles. The receiver's slice is never appended to in place.
func (f Frame) withExclusion(img image.Image, r image.Rectangle) Frame {
	excluded := make([]image.Rectangle, 0, len(f.Excluded)+1)
	excluded = append(excluded, f.Excluded...)
	return Frame{Image: img, Excluded: append(excluded, r), source: f.source}
}

// Extractor turns images into candidate lists.
type Extractor struct {
	backend vision.Backend
	opts    Options
	log     logrus.FieldLogger
}

// NewExtractor creates an extractor. A nil logger discards output.
func NewExtractor(backend vision.Backend, opts Options, log logrus.FieldLogger) *Extractor {
	return &Extractor{backend: backend, opts: opts, log: logger.OrDiscard(log)}
}

// Options returns the options the extractor was created with.
func (e *Extractor) Options() Options { return e.opts }

// Backend returns the vision backend in use.
func (e *Extractor) Backend() vision.Backend { return e.backend }

// Extract returns the candidate regions of img. An image without any region
// above the noise floor gives an empty list, not an error.
func (e *Extractor) Extract(img image.Image) (CandidateList, error) {
	return e.ExtractFrame(NewFrame(img))
}

// ExtractFrame returns the candidate regions of the frame's image, ignoring
// everything near its excluded rectangles.
//
// # Algorithm
//
//  1. Edge map from the backend
//  2. Within a guard band of CloseKernel+2 pixels around each excluded
//     rectangle the edges of the unmasked image are restored, so the painted
//     mask's own border is never traced while neighbouring regions keep
//     theirs; edges inside the excluded rectangles are cleared
//  3. Contours traced on the edge map are redrawn on a blank canvas and
//     closed
//  4. Contours traced on the closed canvas are filtered by area and by
//     distance from the excluded rectangles, then sorted by area
//
// The result is deterministic for a given image and options.
func (e *Extractor) ExtractFrame(frame Frame) (CandidateList, error) {
	edges, err := e.backend.DetectEdges(frame.Image, e.opts.EdgeLow, e.opts.EdgeHigh)
	if err != nil {
		return nil, fmt.Errorf("edge detection failed: %w", err)
	}

	if err := e.suppressMasks(edges, frame); err != nil {
		return nil, err
	}

	traced, err := e.backend.FindContours(edges)
	if err != nil {
		return nil, fmt.Errorf("contour tracing failed: %w", err)
	}

	canvas := image.NewGray(edges.Bounds())
	for _, c := range traced {
		imaging.DrawPolyline(canvas, c, true)
	}

	closed, err := e.backend.Close(canvas, e.opts.CloseKernel)
	if err != nil {
		return nil, fmt.Errorf("morphological closing failed: %w", err)
	}

	contours, err := e.backend.FindContours(closed)
	if err != nil {
		return nil, fmt.Errorf("contour tracing failed: %w", err)
	}

	list := make(CandidateList, 0)
	dropped := 0
	for _, c := range contours {
		area := c.Area()
		if area <= e.opts.MinArea {
			continue
		}
		bounds := c.BoundingRect()
		if touchesAny(bounds, frame.Excluded) {
			dropped++
			continue
		}
		list = append(list, Candidate{Area: area, Contour: c, Bounds: bounds})
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Area > list[j].Area
	})

	e.log.WithFields(logrus.Fields{
		"backend":    e.backend.Name(),
		"traced":     len(traced),
		"closed":     len(contours),
		"candidates": len(list),
		"excluded":   len(frame.Excluded),
		"masked_out": dropped,
	}).Debug("extracted candidates")

	return list, nil
}

// suppressMasks removes the edges that masking introduced into edges.
func (e *Extractor) suppressMasks(edges *image.Gray, frame Frame) error {
	if len(frame.Excluded) == 0 {
		return nil
	}
	guard := e.opts.CloseKernel + 2

	if frame.source == nil {
		for _, r := range frame.Excluded {
			imaging.ClearRect(edges, r.Inset(-guard))
		}
		return nil
	}

	unmasked, err := e.backend.DetectEdges(frame.source, e.opts.EdgeLow, e.opts.EdgeHigh)
	if err != nil {
		return fmt.Errorf("edge detection failed: %w", err)
	}
	for _, r := range frame.Excluded {
		imaging.CopyRect(edges, unmasked, r.Inset(-guard))
	}
	for _, r := range frame.Excluded {
		imaging.ClearRect(edges, r)
	}
	return nil
}

func touchesAny(r image.Rectangle, excluded []image.Rectangle) bool {
	for _, x := range excluded {
		if r.Overlaps(x) {
			return true
		}
	}
	return false
}
