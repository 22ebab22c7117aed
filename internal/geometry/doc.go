// Package geometry provides the planar primitives used to describe and fit
// contours traced from label photographs.
//
// Contours are closed sequences of integer pixel coordinates (image.Point).
// Fitted shapes use float64 coordinates (PointF) because their centres and
// corners rarely fall on pixel centres.
//
// # Coordinate System
//
// The image convention is used throughout:
//   - Origin (0, 0) at the top-left corner
//   - X increases rightward, Y increases downward
//   - Bounding rectangles follow image.Rectangle: Min inclusive, Max exclusive,
//     so a contour spanning columns 10..19 has a bounding width of 10
//
// # Primitives
//
//   - Area: shoelace area of a closed contour
//   - BoundingRect: axis-aligned bounding rectangle
//   - ConvexHull: Andrew's monotone chain
//   - MinAreaRect: rotating calipers over the convex hull
//   - MinEnclosingCircle: Welzl's algorithm with a fixed-seed shuffle
//   - FitEllipse: direct least-squares conic fit (Halir and Flusser)
//   - ApproxPolygon: Douglas-Peucker simplification of a closed curve
//
// All functions are pure and never modify their arguments.
package geometry
