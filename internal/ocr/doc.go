// Package ocr transcribes the text printed on a confirmed label using
// Tesseract through gosseract.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// A custom tessdata directory can be configured with Tesseract.TessdataPrefix.
//
// Transcription is optional. The measurement pipeline only calls it when
// OCR is enabled in the configuration, and a failed transcription never
// fails a measurement.
package ocr
