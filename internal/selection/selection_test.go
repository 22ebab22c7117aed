package selection

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/ironsheep/label-measure/internal/detection"
	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/operator"
	"github.com/ironsheep/label-measure/internal/vision"
)

// darkEdges treats every dark pixel as an edge, so the outlines drawn by
// outlineImage are the edge map.
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

func outlineImage(width, height int, rects ...image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, r := range rects {
		bin := image.NewGray(img.Bounds())
		imaging.DrawPolyline(bin, []image.Point{r.Min, {r.Max.X, r.Min.Y}, r.Max, {r.Min.X, r.Max.Y}}, true)
		imaging.ApplyMask(img, bin, color.Black)
	}
	return img
}

// recorder is a display that keeps every shown image.
type recorder struct {
	shown  []image.Image
	closed int
	paused []time.Duration
}

func (r *recorder) Show(img image.Image) error { r.shown = append(r.shown, img); return nil }
func (r *recorder) Pause(d time.Duration)      { r.paused = append(r.paused, d) }
func (r *recorder) Close()                     { r.closed++ }

type fixture struct {
	original   image.Image
	frame      detection.Frame
	candidates detection.CandidateList
	refiner    *detection.Refiner
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	img := outlineImage(500, 300,
		image.Rect(20, 20, 220, 170),
		image.Rect(300, 40, 400, 140),
		image.Rect(60, 220, 180, 280),
	)
	ex := detection.NewExtractor(darkEdges{}, detection.DefaultOptions(), nil)
	frame := detection.NewFrame(img)
	list, err := ex.ExtractFrame(frame)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("fixture: got %d candidates, want 3", len(list))
	}
	return fixture{original: img, frame: frame, candidates: list, refiner: detection.NewRefiner(ex, nil)}
}

func TestSelect_FirstConfirmed(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	script := operator.NewScript("y")

	sel, err := NewSelector(f.refiner, script, rec, nil).Select(f.original, f.frame, f.candidates, "Is this the label?")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if sel.Index != 0 {
		t.Errorf("Index: got %d, want 0", sel.Index)
	}
	if sel.Width != 201 || sel.Height != 151 || sel.Area != 201*151 {
		t.Errorf("dimensions: got %dx%d area %d, want 201x151", sel.Width, sel.Height, sel.Area)
	}
	if len(sel.Next) != 2 {
		t.Errorf("Next: got %d candidates, want 2", len(sel.Next))
	}
	if len(sel.Frame.Excluded) != 1 {
		t.Errorf("Frame: got %d exclusions, want 1", len(sel.Frame.Excluded))
	}
	if len(rec.shown) != 1 || rec.closed != 1 {
		t.Errorf("display: shown %d closed %d, want 1/1", len(rec.shown), rec.closed)
	}
	if len(rec.paused) != 1 || rec.paused[0] != DefaultPause {
		t.Errorf("pauses: got %v", rec.paused)
	}
	if len(script.Asked) != 1 || script.Asked[0] != "Is this the label?" {
		t.Errorf("questions: got %v", script.Asked)
	}
}

func TestSelect_RejectThenAcceptMatchesSingleCandidate(t *testing.T) {
	f := newFixture(t)

	viaReject, err := NewSelector(f.refiner, operator.NewScript("n", "y"), nil, nil).
		Select(f.original, f.frame, f.candidates, "Is this the label?")
	if err != nil {
		t.Fatalf("Select after rejection failed: %v", err)
	}

	direct, err := NewSelector(f.refiner, operator.NewScript("y"), nil, nil).
		Select(f.original, f.frame, f.candidates[1:2], "Is this the label?")
	if err != nil {
		t.Fatalf("Select on single candidate failed: %v", err)
	}

	if viaReject.Index != 1 || direct.Index != 0 {
		t.Errorf("indices: got %d and %d, want 1 and 0", viaReject.Index, direct.Index)
	}
	if viaReject.Width != direct.Width || viaReject.Height != direct.Height || viaReject.Area != direct.Area {
		t.Errorf("dimensions differ: %dx%d vs %dx%d", viaReject.Width, viaReject.Height, direct.Width, direct.Height)
	}
	if viaReject.Candidate.Bounds != direct.Candidate.Bounds {
		t.Errorf("candidates differ: %v vs %v", viaReject.Candidate.Bounds, direct.Candidate.Bounds)
	}
	if len(viaReject.Next) != len(direct.Next) {
		t.Errorf("refined lists differ: %d vs %d", len(viaReject.Next), len(direct.Next))
	}
	if viaReject.Frame.Excluded[0] != direct.Frame.Excluded[0] {
		t.Errorf("masked rectangles differ: %v vs %v", viaReject.Frame.Excluded[0], direct.Frame.Excluded[0])
	}
}

func TestSelect_FreshAnnotationPerCandidate(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	stroke := imaging.Stroke{Color: color.NRGBA{0, 255, 0, 255}, Thickness: 4}

	_, err := NewSelector(f.refiner, operator.NewScript("n", "y"), rec, nil, WithStroke(stroke), WithPause(0)).
		Select(f.original, f.frame, f.candidates, "Is this the label?")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(rec.shown) != 2 {
		t.Fatalf("shown %d images, want 2", len(rec.shown))
	}

	green := func(img image.Image, p image.Point) bool {
		r, g, b, _ := img.At(p.X, p.Y).RGBA()
		return r == 0 && g>>8 == 255 && b == 0
	}
	first, second := f.candidates[0].Bounds.Min, f.candidates[1].Bounds.Min
	if !green(rec.shown[0], first) {
		t.Error("first candidate not outlined in the first image")
	}
	if green(rec.shown[1], first) {
		t.Error("first candidate's outline carried over into the second image")
	}
	if !green(rec.shown[1], second) {
		t.Error("second candidate not outlined in the second image")
	}
	if green(f.original, first) {
		t.Error("annotation drawn on the original image")
	}
	if rec.closed != 2 {
		t.Errorf("display closed %d times, want 2", rec.closed)
	}
}

func TestSelect_Exhausted(t *testing.T) {
	f := newFixture(t)
	script := operator.NewScript("n", "n", "n", "y")

	_, err := NewSelector(f.refiner, script, nil, nil).Select(f.original, f.frame, f.candidates, "Is this the label?")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("got %v, want ErrExhausted", err)
	}
	if len(script.Asked) != 3 {
		t.Errorf("asked %d times, want once per candidate", len(script.Asked))
	}
	if script.Remaining() != 1 {
		t.Error("selection read past the end of the list")
	}
}

func TestSelect_EmptyList(t *testing.T) {
	f := newFixture(t)
	script := operator.NewScript("y")

	_, err := NewSelector(f.refiner, script, nil, nil).Select(f.original, f.frame, nil, "Is this the label?")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("got %v, want ErrExhausted", err)
	}
	if len(script.Asked) != 0 {
		t.Error("operator asked about an empty list")
	}
}

func TestSelect_InputClosed(t *testing.T) {
	f := newFixture(t)

	_, err := NewSelector(f.refiner, operator.NewScript("n"), nil, nil).Select(f.original, f.frame, f.candidates, "Is this the label?")
	if !errors.Is(err, operator.ErrInputClosed) {
		t.Fatalf("got %v, want ErrInputClosed", err)
	}
	if errors.Is(err, ErrExhausted) {
		t.Error("closed input must not look like exhaustion")
	}
}

func TestSelect_RefinesWorkingFrame(t *testing.T) {
	f := newFixture(t)

	first, err := NewSelector(f.refiner, operator.NewScript("y"), nil, nil).Select(f.original, f.frame, f.candidates, "Is this the label?")
	if err != nil {
		t.Fatalf("first Select failed: %v", err)
	}
	second, err := NewSelector(f.refiner, operator.NewScript("y"), nil, nil).Select(f.original, first.Frame, first.Next, "Is this the scale bar?")
	if err != nil {
		t.Fatalf("second Select failed: %v", err)
	}

	if len(second.Frame.Excluded) != 2 {
		t.Errorf("exclusions: got %d, want both regions", len(second.Frame.Excluded))
	}
	if len(second.Next) != 1 {
		t.Errorf("remaining candidates: got %d, want 1", len(second.Next))
	}
	if second.Candidate.Bounds.Overlaps(first.Frame.Excluded[0]) {
		t.Error("second selection overlaps the first")
	}
}
