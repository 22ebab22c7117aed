package vision

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/ironsheep/label-measure/internal/geometry"
)

// DefaultBackend is the backend used when none is configured.
const DefaultBackend = "native"

// Backend performs edge detection, contour tracing and shape fitting.
//
// Binary maps are *image.Gray values anchored at (0,0) with 255 marking
// foreground. Implementations never modify their inputs.
type Backend interface {
	// Name returns the name the backend is registered under.
	Name() string

	// DetectEdges returns the Canny edge map of img. Thresholds follow
	// OpenCV's convention.
	DetectEdges(img image.Image, low, high float64) (*image.Gray, error)

	// FindContours traces the borders of the foreground regions of bin.
	// Contours are closed and keep only the points where the border turns.
	FindContours(bin *image.Gray) ([]geometry.Contour, error)

	// Close applies a morphological closing with a square element of
	// kernelSize pixels.
	Close(bin *image.Gray, kernelSize int) (*image.Gray, error)

	MinAreaRect(c geometry.Contour) (geometry.RotatedRect, error)
	MinEnclosingCircle(c geometry.Contour) (geometry.Circle, error)
	FitEllipse(c geometry.Contour) (geometry.Ellipse, error)
	ApproxPolygon(c geometry.Contour, tolerance float64) (geometry.Contour, error)
}

// Factory creates a backend.
type Factory func() (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under name. Registering the same name
// twice panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("vision: backend %q registered twice", name))
	}
	registry[name] = f
}

// New creates the backend registered under name. An empty name selects
// DefaultBackend.
func New(name string) (Backend, error) {
	if name == "" {
		name = DefaultBackend
	}
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown vision backend %q (available: %v)", name, Available())
	}
	return f()
}

// Available returns the names of the registered backends in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
