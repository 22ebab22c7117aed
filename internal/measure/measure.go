// Package measure runs the whole label measurement: extraction, operator
// selection of the label and scale bar, shape classification and unit
// conversion.
package measure

import (
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-measure/internal/detection"
	"github.com/ironsheep/label-measure/internal/display"
	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/logger"
	"github.com/ironsheep/label-measure/internal/ocr"
	"github.com/ironsheep/label-measure/internal/operator"
	"github.com/ironsheep/label-measure/internal/selection"
	"github.com/ironsheep/label-measure/internal/vision"
)

// Questions put to the operator, in the order they are asked.
const (
	QuestionLabel       = "Is this the label?"
	QuestionHasScaleBar = "Is there a scale bar?"
	QuestionScaleBar    = "Is this the scale bar?"
	QuestionReference   = "Is this a reference (2 cm) scale bar?"
	QuestionUnit        = "What is the scale? (i.e. cm or mm)"
)

// DefaultResizeFactor is the downscale applied when resizing is enabled
// without an explicit factor.
const DefaultResizeFactor = 0.25

// Transcriber reads the text inside a region of an image.
type Transcriber interface {
	Transcribe(img image.Image, r image.Rectangle) (*ocr.Result, error)
}

// Result is a completed measurement.
type Result struct {
	// Label is the label's bounding rectangle in source pixels and
	// LabelArea its width times height.
	Label     Dimensions `json:"label"`
	LabelArea float64    `json:"label_area"`

	// ScaleBar and ScaleBarArea are set when a scale bar was confirmed.
	ScaleBar     *Dimensions `json:"scale_bar,omitempty"`
	ScaleBarArea float64     `json:"scale_bar_area,omitempty"`

	Convention Convention `json:"convention"`
	Unit       string     `json:"unit"`

	// Scaled is Label converted to Unit and rounded to three decimals.
	Scaled Dimensions `json:"scaled"`

	// LabelFit is the simple shape closest to the label's outline. It is
	// informational; scaling always uses the bounding rectangle.
	LabelFit *detection.Fit `json:"label_fit,omitempty"`

	// LabelText is set when OCR is enabled and succeeded.
	LabelText string `json:"label_text,omitempty"`
}

// Report renders the result for the operator.
func (r *Result) Report() string {
	return FormatReport(r.Scaled, r.Unit)
}

// Measurer drives a measurement through the operator.
type Measurer struct {
	extractor   *detection.Extractor
	fitter      *detection.Fitter
	selector    *selection.Selector
	prompter    operator.Prompter
	transcriber Transcriber
	resize      float64
	selectOpts  []selection.Option
	log         logrus.FieldLogger
}

// Option configures a Measurer.
type Option func(*Measurer)

// WithResize downscales the image by factor before extraction. Reported
// pixel dimensions are projected back to the source resolution. A factor
// of 0 or 1 disables resizing.
func WithResize(factor float64) Option {
	return func(m *Measurer) { m.resize = factor }
}

// WithTranscriber enables OCR of the confirmed label.
func WithTranscriber(t Transcriber) Option {
	return func(m *Measurer) { m.transcriber = t }
}

// WithSelectionOptions passes options through to the selection loop.
func WithSelectionOptions(opts ...selection.Option) Option {
	return func(m *Measurer) { m.selectOpts = append(m.selectOpts, opts...) }
}

// New creates a measurer. A nil display shows nothing and a nil logger
// discards output.
func New(backend vision.Backend, opts detection.Options, prompter operator.Prompter, d display.Display, log logrus.FieldLogger, options ...Option) *Measurer {
	log = logger.OrDiscard(log)
	m := &Measurer{
		extractor: detection.NewExtractor(backend, opts, log),
		fitter:    detection.NewFitter(backend, opts, log),
		prompter:  prompter,
		log:       log,
	}
	for _, opt := range options {
		opt(m)
	}
	refiner := detection.NewRefiner(m.extractor, log)
	m.selector = selection.NewSelector(refiner, prompter, d, log, m.selectOpts...)
	return m
}

// Report measures img and returns the report line, e.g.
// "Dimensions: 12.3, 4.56 [cm]".
func (m *Measurer) Report(img image.Image) (string, error) {
	res, err := m.Measure(img)
	if err != nil {
		return "", err
	}
	return res.Report(), nil
}

// Measure runs the measurement on img.
//
// # Sequence
//
//  1. Optional resize of the working image
//  2. Extraction of the candidate regions
//  3. Selection of the label, then its best-fit shape and optional text
//  4. "Is there a scale bar?"; if so, selection of the bar on the refined
//     candidates
//  5. The bar's convention, and the unit for a non-reference bar
//  6. Label dimensions divided by the bar's pixels per unit
//
// Every error is a *Failure.
func (m *Measurer) Measure(img image.Image) (*Result, error) {
	working := image.Image(img)
	factor := 1.0
	if m.resize != 0 && m.resize != 1 {
		resized, err := imaging.Resize(img, m.resize)
		if err != nil {
			return nil, newFailure(FailureBackend, "resizing failed", err)
		}
		working, factor = resized, m.resize
		m.log.WithFields(logrus.Fields{
			"factor": factor,
			"width":  resized.Bounds().Dx(),
			"height": resized.Bounds().Dy(),
		}).Debug("image resized")
	}

	frame := detection.NewFrame(working)
	candidates, err := m.extractor.ExtractFrame(frame)
	if err != nil {
		return nil, classify("extraction", err)
	}
	if len(candidates) == 0 {
		return nil, newFailure(FailureExhausted, "no candidate regions found", nil)
	}

	label, err := m.selector.Select(working, frame, candidates, QuestionLabel)
	if err != nil {
		return nil, classify("label selection", err)
	}

	res := &Result{
		Label:     project(label, factor),
		LabelArea: float64(label.Area) / (factor * factor),
	}
	m.describeLabel(res, working, label)

	hasBar, err := m.prompter.AskYesNo(QuestionHasScaleBar)
	if err != nil {
		return nil, classify("scale bar question", err)
	}
	if !hasBar {
		res.Convention = ConventionNone
		res.Unit = UnitPixels
		if res.Scaled, err = Scale(res.Label, 0, ConventionNone); err != nil {
			return nil, newFailure(FailureBackend, "unit conversion failed", err)
		}
		m.logResult(res)
		return res, nil
	}

	if len(label.Next) == 0 {
		return nil, newFailure(FailureExhausted, "no candidate regions left for the scale bar", nil)
	}
	bar, err := m.selector.Select(working, label.Frame, label.Next, QuestionScaleBar)
	if err != nil {
		return nil, classify("scale bar selection", err)
	}
	barDims := project(bar, factor)
	res.ScaleBar = &barDims
	res.ScaleBarArea = float64(bar.Area) / (factor * factor)

	res.Convention, res.Unit, err = m.askConvention()
	if err != nil {
		return nil, classify("scale question", err)
	}

	// Both sides are at working resolution, so the ratio needs no
	// projection.
	res.Scaled, err = Scale(
		Dimensions{Width: float64(label.Width), Height: float64(label.Height)},
		float64(bar.Width), res.Convention)
	if err != nil {
		return nil, newFailure(FailureBackend, "unit conversion failed", err)
	}

	m.logResult(res)
	return res, nil
}

// describeLabel adds the best-fit shape and text. Neither can fail the
// measurement.
func (m *Measurer) describeLabel(res *Result, working image.Image, label *selection.Selection) {
	fit, err := m.fitter.BestFit(label.Candidate.Contour)
	if err != nil {
		m.log.WithError(err).Warn("label shape could not be classified")
	} else {
		res.LabelFit = &fit
	}

	if m.transcriber == nil {
		return
	}
	text, err := m.transcriber.Transcribe(working, label.Candidate.Bounds)
	if err != nil {
		m.log.WithError(err).Warn("label transcription failed")
		return
	}
	res.LabelText = text.Text
}

func (m *Measurer) askConvention() (Convention, string, error) {
	reference, err := m.prompter.AskYesNo(QuestionReference)
	if err != nil {
		return "", "", err
	}
	if reference {
		return ConventionReference, ReferenceUnit, nil
	}
	for {
		unit, err := m.prompter.AskText(QuestionUnit)
		if err != nil {
			return "", "", err
		}
		if unit = strings.ToLower(strings.TrimSpace(unit)); unit != "" {
			return ConventionOperatorUnit, unit, nil
		}
	}
}

func (m *Measurer) logResult(res *Result) {
	fields := logrus.Fields{
		"label_width":  res.Label.Width,
		"label_height": res.Label.Height,
		"convention":   string(res.Convention),
		"unit":         res.Unit,
		"width":        res.Scaled.Width,
		"height":       res.Scaled.Height,
	}
	if res.LabelFit != nil {
		fields["shape"] = res.LabelFit.Kind.String()
	}
	m.log.WithFields(fields).Info("measurement complete")
}

func project(s *selection.Selection, factor float64) Dimensions {
	return Dimensions{Width: float64(s.Width) / factor, Height: float64(s.Height) / factor}
}
