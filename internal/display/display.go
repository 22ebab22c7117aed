// Package display shows annotated candidates to the operator.
package display

import (
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/label-measure/internal/imaging"
	"github.com/ironsheep/label-measure/internal/logger"
)

// Display presents an image while the operator is asked about it.
type Display interface {
	Show(img image.Image) error
	Pause(d time.Duration)
	Close()
}

// Nop shows nothing.
type Nop struct{}

// Show implements Display and discards img.
func (Nop) Show(image.Image) error { return nil }

// Pause implements Display and returns at once.
func (Nop) Pause(time.Duration) {}

// Close implements Display.
func (Nop) Close() {}

// Preview writes every shown image to a PNG file that the operator keeps
// open in an image viewer. The file is overwritten on each Show.
type Preview struct {
	path  string
	log   logrus.FieldLogger
	shown int
	sleep func(time.Duration)
}

// NewPreview creates a preview display writing to path.
func NewPreview(path string, log logrus.FieldLogger) *Preview {
	return &Preview{path: path, log: logger.OrDiscard(log), sleep: time.Sleep}
}

// Path returns the preview file path.
func (p *Preview) Path() string { return p.path }

// Show implements Display.
func (p *Preview) Show(img image.Image) error {
	if err := imaging.Save(img, p.path); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	p.shown++
	p.log.WithFields(logrus.Fields{
		"path":  p.path,
		"shown": p.shown,
	}).Info("preview updated")
	return nil
}

// Pause implements Display. It gives a viewer time to reload the file.
func (p *Preview) Pause(d time.Duration) {
	if d > 0 {
		p.sleep(d)
	}
}

// Close implements Display. The file is left in place so the last
// candidate stays visible.
func (p *Preview) Close() {}
