package detection

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-measure/internal/geometry"
	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/logger"
)

var maskColor = color.NRGBA{A: 255}

// Refiner masks confirmed regions out of a frame and re-extracts the
// remaining candidates.
type Refiner struct {
	extractor *Extractor
	opts      Options
	log       logrus.FieldLogger
}

// NewRefiner creates a refiner that re-extracts with ex.
func NewRefiner(ex *Extractor, log logrus.FieldLogger) *Refiner {
	return &Refiner{extractor: ex, opts: ex.Options(), log: logger.OrDiscard(log)}
}

// Inflate grows r by MaskMarginRatio of its width and height, half on each
// side and rounded outwards, then clips it to imageBounds.
//
// The result always contains the part of r inside imageBounds.
func (r *Refiner) Inflate(rect, imageBounds image.Rectangle) image.Rectangle {
	mx := int(math.Ceil(float64(rect.Dx()) * r.opts.MaskMarginRatio / 2))
	my := int(math.Ceil(float64(rect.Dy()) * r.opts.MaskMarginRatio / 2))
	grown := image.Rect(rect.Min.X-mx, rect.Min.Y-my, rect.Max.X+mx, rect.Max.Y+my)
	return grown.Intersect(imageBounds)
}

// Refine masks the confirmed contour out of the frame and returns the
// candidates that remain together with the new frame.
//
// With MarginRect the inflated bounding rectangle is painted black and
// excluded. With MarginContour only the contour polygon is painted and its
// plain bounding rectangle is excluded.
//
// The input frame is left untouched; callers must continue with the
// returned frame.
func (r *Refiner) Refine(confirmed geometry.Contour, frame Frame) (CandidateList, Frame, error) {
	if len(confirmed) == 0 {
		return nil, frame, fmt.Errorf("cannot refine with an empty contour")
	}
	bounds := frame.Image.Bounds()

	var next Frame
	switch r.opts.MarginStrategy {
	case MarginContour:
		masked := imaging.FillPolygon(frame.Image, confirmed, maskColor)
		next = frame.withExclusion(masked, confirmed.BoundingRect().Intersect(bounds))
	default:
		rect := r.Inflate(confirmed.BoundingRect(), bounds)
		next = frame.withExclusion(imaging.FillRect(frame.Image, rect, maskColor), rect)
	}

	return r.reextract(next)
}

// Exclude masks an explicit rectangle, inflated the same way as a confirmed
// contour's bounds, and re-extracts.
func (r *Refiner) Exclude(frame Frame, rect image.Rectangle) (CandidateList, Frame, error) {
	bounds := frame.Image.Bounds()
	inflated := r.Inflate(rect.Canon(), bounds)
	if inflated.Empty() {
		return nil, frame, fmt.Errorf("rectangle %v lies outside the image %v", rect, bounds)
	}
	next := frame.withExclusion(imaging.FillRect(frame.Image, inflated, maskColor), inflated)
	return r.reextract(next)
}

func (r *Refiner) reextract(next Frame) (CandidateList, Frame, error) {
	list, err := r.extractor.ExtractFrame(next)
	if err != nil {
		return nil, next, err
	}
	r.log.WithFields(logrus.Fields{
		"masked":     next.Excluded[len(next.Excluded)-1].String(),
		"strategy":   string(r.opts.MarginStrategy),
		"candidates": len(list),
	}).Debug("refined candidates")
	return list, next, nil
}
