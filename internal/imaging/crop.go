package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// EncodedImage is a PNG rendering of an image suitable for a JSON response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Encode renders img as a base64 PNG. When maxSide is positive and the image
// is larger than maxSide on either side, it is downscaled to fit first.
func Encode(img image.Image, maxSide int) (*EncodedImage, error) {
	out := img
	b := img.Bounds()
	if maxSide > 0 && (b.Dx() > maxSide || b.Dy() > maxSide) {
		out = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Crop extracts r from img. The region must lie within the image and be
// non-empty.
func Crop(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: x1 must be < x2, y1 must be < y2", r)
	}
	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}
	return imaging.Crop(img, r), nil
}

// Resize scales img uniformly by factor using Lanczos resampling. Each side
// is rounded to the nearest pixel and never drops below one pixel.
//
// A factor of exactly 1 returns a plain copy.
func Resize(img image.Image, factor float64) (*image.NRGBA, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("invalid resize factor %v: must be a positive number", factor)
	}
	if factor == 1 {
		return Clone(img), nil
	}
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}
