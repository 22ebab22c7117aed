package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/label-measure/internal/imaging"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Word is one recognised word and where it was found.
type Word struct {
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is in the coordinates of the transcribed image, not the crop.
	Bounds image.Rectangle `json:"bounds"`
}

// Result is the text found in a region.
type Result struct {
	// Text is all recognised text with surrounding whitespace trimmed.
	Text string `json:"text"`

	// Words may be empty if bounding box extraction fails; Text is still set.
	Words []Word `json:"words"`
}

// Tesseract transcribes image regions with a fresh gosseract client per
// call.
type Tesseract struct {
	Language       string
	TessdataPrefix string
}

// New returns a transcriber for language. An empty language selects
// DefaultLanguage and an empty tessdata uses Tesseract's own search path.
func New(language, tessdata string) *Tesseract {
	if language == "" {
		language = DefaultLanguage
	}
	return &Tesseract{Language: language, TessdataPrefix: tessdata}
}

// Transcribe runs OCR on region r of img.
//
// Parameters:
//   - img: The image holding the label.
//   - r: The label's bounding rectangle. It is clipped to the image.
//
// Returns:
//   - *Result: The recognised text and its words.
//   - error: Non-nil if the region is empty or Tesseract fails.
func (t *Tesseract) Transcribe(img image.Image, r image.Rectangle) (*Result, error) {
	region := r.Intersect(img.Bounds())
	cropped, err := imaging.Crop(img, region)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(t.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	result := &Result{Text: strings.TrimSpace(text), Words: make([]Word, 0)}

	// Word boxes are best effort; the text alone is still useful.
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return result, nil
	}
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		result.Words = append(result.Words, Word{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Bounds:     box.Box.Add(region.Min),
		})
	}
	return result, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
