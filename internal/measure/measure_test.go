package measure

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ironsheep/label-measure/internal/detection"
	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/ocr"
	"github.com/ironsheep/label-measure/internal/operator"
	"github.com/ironsheep/label-measure/internal/selection"
	"github.com/ironsheep/label-measure/internal/vision"
)

// darkEdges treats every dark pixel as an edge.
type darkEdges struct {
	vision.Native
}

func (darkEdges) DetectEdges(img image.Image, _, _ float64) (*image.Gray, error) {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y < 128 {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out, nil
}

// failingEdges fails every edge detection.
type failingEdges struct {
	vision.Native
}

func (failingEdges) DetectEdges(image.Image, float64, float64) (*image.Gray, error) {
	return nil, errors.New("corrupt image")
}

func whiteImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// drawOutline draws a 1 pixel black outline through the corners of r,
// Max included. It encloses r.Dx()*r.Dy() square pixels.
func drawOutline(img *image.NRGBA, r image.Rectangle) {
	drawPolygon(img, []image.Point{r.Min, {r.Max.X, r.Min.Y}, r.Max, {r.Min.X, r.Max.Y}})
}

// drawCircle draws a 1 pixel black circle outline.
func drawCircle(img *image.NRGBA, center image.Point, radius float64) {
	pts := make([]image.Point, 72)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(len(pts))
		pts[i] = image.Pt(center.X+int(math.Round(radius*math.Cos(a))), center.Y+int(math.Round(radius*math.Sin(a))))
	}
	drawPolygon(img, pts)
}

func drawPolygon(img *image.NRGBA, pts []image.Point) {
	bin := image.NewGray(img.Bounds())
	imaging.DrawPolyline(bin, pts, true)
	imaging.ApplyMask(img, bin, color.Black)
}

// fillRect fills r dark gray.
func fillRect(img *image.NRGBA, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, color.Gray{Y: 30})
		}
	}
}

func newMeasurer(script *operator.Script, options ...Option) *Measurer {
	options = append(options, WithSelectionOptions(selection.WithPause(0)))
	return New(darkEdges{}, detection.DefaultOptions(), script, nil, nil, options...)
}

// labelAndBar is a 400x300 image with a label outline from (20,20) to
// (220,120) and a scale bar outline from (300,200) to (339,250).
func labelAndBar() *image.NRGBA {
	img := whiteImage(400, 300)
	drawOutline(img, image.Rect(20, 20, 220, 120))
	drawOutline(img, image.Rect(300, 200, 339, 250))
	return img
}

type stubTranscriber struct {
	text   string
	err    error
	region image.Rectangle
}

func (s *stubTranscriber) Transcribe(_ image.Image, r image.Rectangle) (*ocr.Result, error) {
	s.region = r
	if s.err != nil {
		return nil, s.err
	}
	return &ocr.Result{Text: s.text}, nil
}

func TestMeasure_NoScaleBar(t *testing.T) {
	// A rectangular label enclosing 5000 px² and a circle of about 2000 px².
	img := whiteImage(300, 150)
	drawOutline(img, image.Rect(30, 30, 130, 80))
	drawCircle(img, image.Pt(200, 75), 27)

	script := operator.NewScript("y", "n")
	res, err := newMeasurer(script).Measure(img)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	if res.Unit != UnitPixels || res.Convention != ConventionNone {
		t.Errorf("unit: got %q (%s), want pixels", res.Unit, res.Convention)
	}
	want := Dimensions{Width: 101, Height: 51}
	if res.Label != want || res.Scaled != want {
		t.Errorf("dimensions: label %+v scaled %+v, want %+v", res.Label, res.Scaled, want)
	}
	if res.LabelArea != 101*51 {
		t.Errorf("LabelArea: got %v, want %v", res.LabelArea, 101*51)
	}
	if res.ScaleBar != nil {
		t.Errorf("ScaleBar: got %+v, want nil", res.ScaleBar)
	}
	if res.LabelFit == nil || res.LabelFit.Kind != detection.Rectangle {
		t.Errorf("LabelFit: got %+v, want a rectangle", res.LabelFit)
	}
	if got := res.Report(); got != "Dimensions: 101.0, 51.0 [pixels]" {
		t.Errorf("Report: got %q", got)
	}
	wantAsked := []string{QuestionLabel, QuestionHasScaleBar}
	if len(script.Asked) != len(wantAsked) || script.Asked[0] != wantAsked[0] || script.Asked[1] != wantAsked[1] {
		t.Errorf("questions: got %v, want %v", script.Asked, wantAsked)
	}
}

func TestMeasure_ReferenceScaleBar(t *testing.T) {
	script := operator.NewScript("y", "y", "y", "y")
	res, err := newMeasurer(script).Measure(labelAndBar())
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	if res.Convention != ConventionReference || res.Unit != "cm" {
		t.Errorf("convention: got %s [%s], want reference [cm]", res.Convention, res.Unit)
	}
	if res.ScaleBar == nil || *res.ScaleBar != (Dimensions{Width: 40, Height: 51}) {
		t.Errorf("ScaleBar: got %+v, want 40x51", res.ScaleBar)
	}
	// 201x101 px over a 40 px bar that is 2 cm long.
	if want := (Dimensions{Width: 10.05, Height: 5.05}); res.Scaled != want {
		t.Errorf("Scaled: got %+v, want %+v", res.Scaled, want)
	}
	if got := res.Report(); got != "Dimensions: 10.05, 5.05 [cm]" {
		t.Errorf("Report: got %q", got)
	}
	if script.Remaining() != 0 {
		t.Errorf("%d answers left unused", script.Remaining())
	}
}

func TestMeasure_OperatorUnit(t *testing.T) {
	// The blank unit is asked again.
	script := operator.NewScript("y", "y", "y", "n", "  ", "MM")
	got, err := newMeasurer(script).Report(labelAndBar())
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if want := "Dimensions: 5.025, 2.525 [mm]"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if n := len(script.Asked); n != 6 || script.Asked[4] != QuestionUnit || script.Asked[5] != QuestionUnit {
		t.Errorf("questions: got %v", script.Asked)
	}
}

func TestMeasure_RejectedLabelThenBar(t *testing.T) {
	// Rejecting the larger region makes the bar the label. The label is
	// then offered as the scale bar and rejected too.
	script := operator.NewScript("n", "y", "y", "n")
	_, err := newMeasurer(script).Measure(labelAndBar())
	if !IsType(err, FailureExhausted) {
		t.Fatalf("got %v, want an exhausted failure", err)
	}
	if !errors.Is(err, selection.ErrExhausted) {
		t.Errorf("cause: %v does not wrap ErrExhausted", err)
	}
}

func TestMeasure_Resize(t *testing.T) {
	img := whiteImage(400, 300)
	fillRect(img, image.Rect(40, 40, 240, 140))

	res, err := newMeasurer(operator.NewScript("y", "n"), WithResize(0.5)).Measure(img)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	want := Dimensions{Width: 200, Height: 100}
	if res.Label != want || res.Scaled != want {
		t.Errorf("dimensions: label %+v scaled %+v, want source resolution %+v", res.Label, res.Scaled, want)
	}
	if res.LabelArea != 20000 {
		t.Errorf("LabelArea: got %v, want 20000", res.LabelArea)
	}
}

func TestMeasure_NoScaleBarRoundsProjectedPixels(t *testing.T) {
	img := whiteImage(600, 400)
	fillRect(img, image.Rect(60, 60, 460, 260))

	res, err := newMeasurer(operator.NewScript("y", "n"), WithResize(0.3)).Measure(img)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	want := Dimensions{Width: round3(res.Label.Width), Height: round3(res.Label.Height)}
	if res.Scaled != want {
		t.Errorf("Scaled: got %+v, want %+v", res.Scaled, want)
	}
	if res.Unit != UnitPixels || res.Convention != ConventionNone {
		t.Errorf("got unit %q convention %q", res.Unit, res.Convention)
	}
	if math.Abs(res.Scaled.Width-400) > 10 || math.Abs(res.Scaled.Height-200) > 10 {
		t.Errorf("Scaled: got %+v, want about 400x200", res.Scaled)
	}
}

func TestMeasure_ResizeKeepsRatio(t *testing.T) {
	img := whiteImage(400, 300)
	fillRect(img, image.Rect(40, 40, 240, 140))
	fillRect(img, image.Rect(300, 180, 380, 280))

	res, err := newMeasurer(operator.NewScript("y", "y", "y", "n", "mm"), WithResize(0.5)).Measure(img)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	// 100x50 label over a 40 px bar at half size.
	if want := (Dimensions{Width: 2.5, Height: 1.25}); res.Scaled != want {
		t.Errorf("Scaled: got %+v, want %+v", res.Scaled, want)
	}
	if res.ScaleBar == nil || *res.ScaleBar != (Dimensions{Width: 80, Height: 100}) {
		t.Errorf("ScaleBar: got %+v, want 80x100 source pixels", res.ScaleBar)
	}
}

func TestMeasure_Failures(t *testing.T) {
	onlyLabel := whiteImage(300, 200)
	drawOutline(onlyLabel, image.Rect(20, 20, 220, 120))

	tests := []struct {
		name    string
		img     image.Image
		answers []string
		want    FailureType
		cause   error
	}{
		{"every candidate rejected", onlyLabel, []string{"n"}, FailureExhausted, selection.ErrExhausted},
		{"nothing extracted", whiteImage(200, 200), nil, FailureExhausted, nil},
		{"no region left for the bar", onlyLabel, []string{"y", "y"}, FailureExhausted, nil},
		{"input ends before the scale question", onlyLabel, []string{"y"}, FailureOperator, operator.ErrInputClosed},
		{"input ends before the unit", labelAndBar(), []string{"y", "y", "y", "n"}, FailureOperator, operator.ErrInputClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newMeasurer(operator.NewScript(tt.answers...)).Measure(tt.img)
			if !IsType(err, tt.want) {
				t.Fatalf("got %v, want a %s failure", err, tt.want)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("cause: %v does not wrap %v", err, tt.cause)
			}
			var f *Failure
			if !errors.As(err, &f) || f.Message == "" {
				t.Errorf("failure without a message: %v", err)
			}
		})
	}
}

func TestMeasure_BackendFailure(t *testing.T) {
	m := New(failingEdges{}, detection.DefaultOptions(), operator.NewScript(), nil, nil)
	_, err := m.Measure(labelAndBar())
	if !IsType(err, FailureBackend) {
		t.Fatalf("got %v, want a backend failure", err)
	}

	_, err = newMeasurer(operator.NewScript(), WithResize(-1)).Measure(labelAndBar())
	if !IsType(err, FailureBackend) {
		t.Errorf("invalid resize: got %v, want a backend failure", err)
	}
}

func TestMeasure_Transcription(t *testing.T) {
	stub := &stubTranscriber{text: "HOLOTYPE"}
	res, err := newMeasurer(operator.NewScript("y", "n"), WithTranscriber(stub)).Measure(labelAndBar())
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if res.LabelText != "HOLOTYPE" {
		t.Errorf("LabelText: got %q", res.LabelText)
	}
	if want := image.Rect(20, 20, 221, 121); stub.region != want {
		t.Errorf("transcribed %v, want the label bounds %v", stub.region, want)
	}

	failing := &stubTranscriber{err: errors.New("no tessdata")}
	res, err = newMeasurer(operator.NewScript("y", "n"), WithTranscriber(failing)).Measure(labelAndBar())
	if err != nil {
		t.Fatalf("a failed transcription must not fail the measurement: %v", err)
	}
	if res.LabelText != "" {
		t.Errorf("LabelText: got %q, want empty", res.LabelText)
	}
}

func TestMeasure_LogsResult(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	m := New(darkEdges{}, detection.DefaultOptions(), operator.NewScript("y", "n"), nil, log,
		WithSelectionOptions(selection.WithPause(0)))
	if _, err := m.Measure(labelAndBar()); err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "measurement complete" {
		t.Fatalf("last entry: got %+v", entry)
	}
	if entry.Level != logrus.InfoLevel {
		t.Errorf("level: got %v, want info", entry.Level)
	}
	if entry.Data["unit"] != UnitPixels || entry.Data["shape"] != "rectangle" {
		t.Errorf("fields: got %v", entry.Data)
	}
}

func TestFailure_Error(t *testing.T) {
	cause := errors.New("boom")
	f := newFailure(FailureBackend, "extraction failed", cause)
	if got := f.Error(); got != "backend: extraction failed (caused by: boom)" {
		t.Errorf("Error: got %q", got)
	}
	if !errors.Is(f, cause) {
		t.Error("Unwrap does not expose the cause")
	}
	if got := newFailure(FailureExhausted, "no candidate regions found", nil).Error(); got != "exhausted: no candidate regions found" {
		t.Errorf("Error: got %q", got)
	}
	if IsType(cause, FailureBackend) {
		t.Error("plain error reported as a Failure")
	}
}
