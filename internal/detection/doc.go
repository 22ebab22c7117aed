// Package detection finds the candidate regions of a specimen photograph and
// classifies their shape.
//
// It provides the three steps that the interactive measurement loop builds
// on:
//
//   - Extractor turns an image into a CandidateList of closed contours
//   - Fitter decides whether a contour is best described by a rectangle, a
//     circle or an ellipse
//   - Refiner masks a confirmed region out of the working image and
//     re-extracts, so the same region is never offered twice
//
// # Pipeline
//
// Extraction follows a fixed chain of lossy steps:
//
//  1. Canny edge detection
//  2. Contour tracing on the edge map
//  3. The traced contours are redrawn as 1 pixel outlines on a blank canvas
//     and morphologically closed, which joins broken borders
//  4. Contours are traced again on the closed canvas
//  5. Contours at or below the noise floor (Options.MinArea) are dropped
//  6. The survivors are sorted by area, largest first
//
// The vision work itself is delegated to a vision.Backend, so the same
// pipeline runs on the pure-Go backend or on OpenCV.
//
// # Frames
//
// A Frame couples the working image with the rectangles already masked out
// of it. Extraction never returns a contour whose bounding rectangle touches
// a masked rectangle. Frames are values: refinement returns a new Frame and
// the caller must continue with it.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
package detection
