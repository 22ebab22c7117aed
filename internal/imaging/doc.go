// Package imaging provides the raster operations behind label measurement.
//
// This package implements loading and caching of specimen photographs, edge
// detection, morphological closing of binary maps, drawing of annotations
// and masks, cropping, resizing and PNG encoding. All operations work with
// standard Go image.Image types and use a coordinate system where (0,0) is
// at the top-left corner, X increases rightward, and Y increases downward.
//
// # Binary Maps
//
// Edge maps and masks are *image.Gray values anchored at (0,0) in which 255
// marks a foreground pixel and 0 marks background. IsSet, Set and ClearRect
// are the only accessors the rest of the module needs.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based. Regions are
// image.Rectangle values: Min is inclusive and Max is exclusive.
//
// # Immutability
//
// Functions that draw return a new *image.NRGBA and never modify their
// input. ApplyMask is the exception and paints into the image it is given.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
package imaging
