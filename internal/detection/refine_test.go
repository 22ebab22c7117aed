package detection

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/label-measure/internal/vision"
)

func newOutlineRefiner(opts Options) (*Extractor, *Refiner) {
	ex := newOutlineExtractor(opts)
	return ex, NewRefiner(ex, nil)
}

func TestInflate(t *testing.T) {
	_, r := newOutlineRefiner(DefaultOptions())
	imgBounds := image.Rect(0, 0, 400, 300)

	tests := []struct {
		name string
		rect image.Rectangle
		want image.Rectangle
	}{
		{"interior", image.Rect(100, 100, 200, 150), image.Rect(95, 97, 205, 153)},
		{"clipped at origin", image.Rect(0, 0, 100, 100), image.Rect(0, 0, 105, 105)},
		{"clipped at far edge", image.Rect(350, 250, 400, 300), image.Rect(347, 247, 400, 300)},
		{"tiny", image.Rect(10, 10, 11, 11), image.Rect(9, 9, 12, 12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Inflate(tt.rect, imgBounds)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if !tt.rect.Intersect(imgBounds).In(got) {
				t.Errorf("inflated %v does not contain %v", got, tt.rect)
			}
		})
	}
}

func TestRefine_MasksConfirmedRegion(t *testing.T) {
	img := outlineImage(500, 300,
		image.Rect(20, 20, 220, 170),
		image.Rect(300, 40, 400, 140),
		image.Rect(60, 220, 180, 280),
	)
	ex, r := newOutlineRefiner(DefaultOptions())

	frame := NewFrame(img)
	list, err := ex.ExtractFrame(frame)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d candidates, want 3", len(list))
	}

	confirmed := list[0]
	next, nextFrame, err := r.Refine(confirmed.Contour, frame)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}

	if len(next) != 2 {
		t.Fatalf("got %d candidates after refine, want 2", len(next))
	}
	if len(nextFrame.Excluded) != 1 {
		t.Fatalf("excluded rectangles: got %d, want 1", len(nextFrame.Excluded))
	}
	inflated := nextFrame.Excluded[0]
	if !confirmed.Bounds.In(inflated) {
		t.Errorf("inflated %v does not contain the confirmed bounds %v", inflated, confirmed.Bounds)
	}
	for _, c := range next {
		if c.Bounds.Overlaps(inflated) {
			t.Errorf("candidate %v re-surfaced inside the masked rectangle %v", c.Bounds, inflated)
		}
		if c.Area == confirmed.Area && c.Bounds == confirmed.Bounds {
			t.Error("confirmed region offered again")
		}
	}

	// The masked rectangle is painted black in the new frame only.
	mid := image.Pt((inflated.Min.X+inflated.Max.X)/2, (inflated.Min.Y+inflated.Max.Y)/2)
	if r, g, b, _ := nextFrame.Image.At(mid.X, mid.Y).RGBA(); r|g|b != 0 {
		t.Error("masked region not painted black")
	}
	if r, _, _, _ := frame.Image.At(mid.X, mid.Y).RGBA(); r == 0 {
		t.Error("Refine modified the input frame's image")
	}
	if len(frame.Excluded) != 0 {
		t.Error("Refine modified the input frame's exclusions")
	}
}

func TestRefine_Sequence(t *testing.T) {
	img := outlineImage(500, 200, image.Rect(20, 20, 200, 180), image.Rect(280, 40, 420, 160))
	ex, r := newOutlineRefiner(DefaultOptions())

	frame := NewFrame(img)
	list, _ := ex.ExtractFrame(frame)
	if len(list) != 2 {
		t.Fatalf("got %d candidates, want 2", len(list))
	}

	list, frame, err := r.Refine(list[0].Contour, frame)
	if err != nil || len(list) != 1 {
		t.Fatalf("first refine: got %d candidates (err %v), want 1", len(list), err)
	}
	list, frame, err = r.Refine(list[0].Contour, frame)
	if err != nil {
		t.Fatalf("second refine failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("got %d candidates after masking both regions, want 0", len(list))
	}
	if len(frame.Excluded) != 2 {
		t.Errorf("excluded rectangles: got %d, want 2", len(frame.Excluded))
	}
}

func TestRefine_ContourStrategy(t *testing.T) {
	opts := DefaultOptions()
	opts.MarginStrategy = MarginContour
	img := outlineImage(400, 200, image.Rect(20, 20, 150, 150), image.Rect(220, 30, 350, 130))
	ex, r := newOutlineRefiner(opts)

	frame := NewFrame(img)
	list, _ := ex.ExtractFrame(frame)
	if len(list) != 2 {
		t.Fatalf("got %d candidates, want 2", len(list))
	}

	next, nextFrame, err := r.Refine(list[0].Contour, frame)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if nextFrame.Excluded[0] != list[0].Bounds {
		t.Errorf("excluded: got %v, want plain bounds %v", nextFrame.Excluded[0], list[0].Bounds)
	}
	if len(next) != 1 || next[0].Bounds.Overlaps(list[0].Bounds) {
		t.Errorf("unexpected candidates after contour mask: %+v", next)
	}

	// Only the polygon is painted; pixels just outside the bounds are not.
	outside := list[0].Bounds.Max
	if r, _, _, _ := nextFrame.Image.At(outside.X+2, outside.Y+2).RGBA(); r == 0 {
		t.Error("contour strategy painted outside the contour")
	}
}

func TestRefine_KeepsRegionBesideMask(t *testing.T) {
	// The bar starts 2 pixels right of the inflated label rectangle (9,14)-(232,127).
	bar := image.Rect(234, 30, 280, 90)
	img := outlineImage(400, 200, image.Rect(20, 20, 220, 120), bar)
	ex, r := newOutlineRefiner(DefaultOptions())

	frame := NewFrame(img)
	list, err := ex.ExtractFrame(frame)
	if err != nil || len(list) != 2 {
		t.Fatalf("extract: got %d candidates (err %v), want 2", len(list), err)
	}

	next, nextFrame, err := r.Refine(list[0].Contour, frame)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if want := image.Rect(9, 14, 232, 127); nextFrame.Excluded[0] != want {
		t.Fatalf("excluded: got %v, want %v", nextFrame.Excluded[0], want)
	}
	if len(next) != 1 {
		t.Fatalf("got %d candidates after refine, want 1", len(next))
	}
	if want := image.Rect(234, 30, 281, 91); next[0].Bounds != want {
		t.Errorf("bounds: got %v, want %v", next[0].Bounds, want)
	}
	if next[0].Area != 46*60 {
		t.Errorf("area: got %v, want %v", next[0].Area, 46*60)
	}
}

func TestRefine_NativeCannyKeepsRegionBesideMask(t *testing.T) {
	// The inflated label rectangle ends near x=231, a few pixels left of the bar.
	img := filledImage(400, 200, image.Rect(40, 40, 220, 160), image.Rect(236, 50, 304, 150))
	ex := NewExtractor(vision.Native{}, DefaultOptions(), nil)
	r := NewRefiner(ex, nil)

	frame := NewFrame(img)
	list, err := ex.ExtractFrame(frame)
	if err != nil || len(list) < 2 {
		t.Fatalf("extract: got %d candidates (err %v), want at least 2", len(list), err)
	}

	next, nextFrame, err := r.Refine(list[0].Contour, frame)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if len(next) == 0 {
		t.Fatalf("the region beside %v was lost", nextFrame.Excluded[0])
	}
	bar := next[0]
	if bar.Bounds.Overlaps(nextFrame.Excluded[0]) {
		t.Errorf("candidate %v overlaps %v", bar.Bounds, nextFrame.Excluded[0])
	}
	if bar.Bounds.Min.X < 233 || bar.Bounds.Min.X > 238 {
		t.Errorf("largest remaining candidate should be the bar, got %v", bar.Bounds)
	}
	if diff := math.Abs(bar.Area-68*100) / (68 * 100); diff > 0.1 {
		t.Errorf("bar area: got %v, want ~%v", bar.Area, 68*100)
	}
}

func TestRefine_EmptyContour(t *testing.T) {
	_, r := newOutlineRefiner(DefaultOptions())
	if _, _, err := r.Refine(nil, NewFrame(outlineImage(50, 50))); err == nil {
		t.Error("expected error for an empty contour")
	}
}

func TestExclude(t *testing.T) {
	img := outlineImage(400, 200, image.Rect(20, 20, 150, 150), image.Rect(220, 30, 350, 130))
	_, r := newOutlineRefiner(DefaultOptions())

	list, frame, err := r.Exclude(NewFrame(img), image.Rect(220, 30, 351, 131))
	if err != nil {
		t.Fatalf("Exclude failed: %v", err)
	}
	if len(list) != 1 || list[0].Bounds != image.Rect(20, 20, 151, 151) {
		t.Errorf("unexpected candidates: %+v", list)
	}
	if len(frame.Excluded) != 1 {
		t.Errorf("excluded rectangles: got %d, want 1", len(frame.Excluded))
	}

	if _, _, err := r.Exclude(NewFrame(img), image.Rect(500, 500, 600, 600)); err == nil {
		t.Error("expected error for a rectangle outside the image")
	}
}

func TestRefine_NativeCanny(t *testing.T) {
	img := filledImage(500, 300, image.Rect(40, 40, 220, 160), image.Rect(300, 60, 400, 200))
	ex := NewExtractor(vision.Native{}, DefaultOptions(), nil)
	r := NewRefiner(ex, nil)

	frame := NewFrame(img)
	list, err := ex.ExtractFrame(frame)
	if err != nil || len(list) < 2 {
		t.Fatalf("extract: got %d candidates (err %v), want at least 2", len(list), err)
	}

	next, nextFrame, err := r.Refine(list[0].Contour, frame)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if len(next) == 0 {
		t.Fatal("the second region was lost")
	}
	for _, c := range next {
		if c.Bounds.Overlaps(nextFrame.Excluded[0]) {
			t.Errorf("candidate %v re-surfaced inside %v", c.Bounds, nextFrame.Excluded[0])
		}
	}
	if next[0].Bounds.Min.X < 290 {
		t.Errorf("largest remaining candidate should be the right-hand region, got %v", next[0].Bounds)
	}
}

func TestNewFrame_CopiesImage(t *testing.T) {
	src := outlineImage(20, 20)
	frame := NewFrame(src)
	src.Set(5, 5, color.Black)
	if r, _, _, _ := frame.Image.At(5, 5).RGBA(); r == 0 {
		t.Error("frame shares pixels with the source image")
	}
}
