// Package vision defines the backend that performs the low-level vision work
// behind label measurement: edge detection, contour tracing, morphological
// closing and the shape-fit primitives.
//
// Two backends exist. The native backend is pure Go and always available.
// The opencv backend wraps gocv and is compiled only with the "gocv" build
// tag, since it needs OpenCV installed on the build machine:
//
//	go build -tags gocv ./cmd/label-measure
//
// Backends register themselves by name; New returns one by name.
package vision
