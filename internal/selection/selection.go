// Package selection walks the operator through the candidate regions until
// one is confirmed.
package selection

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-measure/internal/detection"
	"github.com/ironsheep/label-measure/internal/display"
	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/logger"
	"github.com/ironsheep/label-measure/internal/operator"
)

// ErrExhausted is returned when the operator rejects every candidate.
var ErrExhausted = errors.New("no candidate was confirmed")

// DefaultPause is how long a candidate is shown before the question.
const DefaultPause = 100 * time.Millisecond

// Selection is a confirmed candidate and the state to continue with.
type Selection struct {
	Candidate detection.Candidate

	// Index is the candidate's position in the list it was chosen from.
	Index int

	// Width and Height are the candidate's bounding rectangle in pixels and
	// Area their product.
	Width  int
	Height int
	Area   int

	// Next is the candidate list re-extracted with the confirmed region
	// masked out, and Frame the working frame it was extracted from.
	Next  detection.CandidateList
	Frame detection.Frame
}

// Selector presents candidates one at a time.
type Selector struct {
	refiner  *detection.Refiner
	prompter operator.Prompter
	display  display.Display
	stroke   imaging.Stroke
	pause    time.Duration
	log      logrus.FieldLogger
}

// Option configures a Selector.
type Option func(*Selector)

// WithStroke sets the outline drawn around the presented candidate.
func WithStroke(s imaging.Stroke) Option {
	return func(sel *Selector) { sel.stroke = s }
}

// WithPause sets how long each candidate is shown before asking.
func WithPause(d time.Duration) Option {
	return func(sel *Selector) { sel.pause = d }
}

// NewSelector creates a selector. A nil display shows nothing and a nil
// logger discards output.
func NewSelector(refiner *detection.Refiner, prompter operator.Prompter, d display.Display, log logrus.FieldLogger, opts ...Option) *Selector {
	if d == nil {
		d = display.Nop{}
	}
	s := &Selector{
		refiner:  refiner,
		prompter: prompter,
		display:  d,
		stroke:   imaging.DefaultStroke,
		pause:    DefaultPause,
		log:      logger.OrDiscard(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select presents the candidates in list order until the operator confirms
// one.
//
// Each candidate's bounding rectangle is drawn on a fresh copy of original,
// so earlier annotations never accumulate. Once a candidate is confirmed its
// region is masked out of frame, the working image, and the candidates are
// re-extracted.
//
// Returns ErrExhausted when every candidate is rejected or the list is
// empty, and operator.ErrInputClosed (wrapped) when the operator's input
// ends.
func (s *Selector) Select(original image.Image, frame detection.Frame, candidates detection.CandidateList, question string) (*Selection, error) {
	for i, c := range candidates {
		annotated := imaging.DrawRectangle(original, c.Bounds, s.stroke)
		if err := s.display.Show(annotated); err != nil {
			s.log.WithError(err).Warn("failed to show candidate")
		}
		s.display.Pause(s.pause)

		entry := s.log.WithFields(logrus.Fields{
			"index":  i,
			"of":     len(candidates),
			"area":   c.Area,
			"bounds": c.Bounds.String(),
		})

		yes, err := s.prompter.AskYesNo(question)
		if err != nil {
			s.display.Close()
			return nil, fmt.Errorf("asking %q: %w", question, err)
		}
		if !yes {
			entry.Debug("candidate rejected")
			s.display.Close()
			continue
		}

		entry.Info("candidate confirmed")
		next, nextFrame, err := s.refiner.Refine(c.Contour, frame)
		s.display.Close()
		if err != nil {
			return nil, fmt.Errorf("refining after confirmation: %w", err)
		}

		w, h := c.Bounds.Dx(), c.Bounds.Dy()
		return &Selection{
			Candidate: c,
			Index:     i,
			Width:     w,
			Height:    h,
			Area:      w * h,
			Next:      next,
			Frame:     nextFrame,
		}, nil
	}

	s.log.WithField("candidates", len(candidates)).Warn("all candidates rejected")
	return nil, ErrExhausted
}
