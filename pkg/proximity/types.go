// Package proximity estimates how far detected people are from a single camera
// and decides whether anyone is close enough to act on.
//
// Everything in this package is pure: no I/O, no shared state. The loop in
// pkg/monitor feeds it detector output one frame at a time.
package proximity

import (
	"fmt"
	"image"
)

// Defaults used when nothing else is configured.
const (
	DefaultReferenceHeightCm = 170.0 // Average human height
	DefaultFocalLength       = 600.0
	DefaultTriggerDistanceCm = 200.0
	DefaultConfidence        = 0.3
)

// Calibration holds the static constants of the pinhole model.
// It is set once at startup and shared read-only by every estimate.
type Calibration struct {
	ReferenceHeightCm float64 `json:"reference_height_cm"`
	FocalLength       float64 `json:"focal_length"`
}

// DefaultCalibration returns a 170cm reference height at focal length 600.
func DefaultCalibration() Calibration {
	return Calibration{
		ReferenceHeightCm: DefaultReferenceHeightCm,
		FocalLength:       DefaultFocalLength,
	}
}

// Validate reports whether both constants are positive.
func (c Calibration) Validate() error {
	if !(c.ReferenceHeightCm > 0) {
		return fmt.Errorf("%w: reference height must be > 0, got %v", ErrInvalidCalibration, c.ReferenceHeightCm)
	}
	if !(c.FocalLength > 0) {
		return fmt.Errorf("%w: focal length must be > 0, got %v", ErrInvalidCalibration, c.FocalLength)
	}
	return nil
}

// BoundingBox is an axis-aligned pixel rectangle (X1,Y1) top-left, (X2,Y2) bottom-right.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Box builds a BoundingBox, swapping corners so that X2>=X1 and Y2>=Y1.
func Box(x1, y1, x2, y2 int) BoundingBox {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// FromRect converts an image.Rectangle.
func FromRect(r image.Rectangle) BoundingBox {
	return Box(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// Width returns the box width in pixels.
func (b BoundingBox) Width() int { return b.X2 - b.X1 }

// Height returns the box height in pixels.
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

// Valid reports whether the corners are ordered.
func (b BoundingBox) Valid() bool { return b.X2 >= b.X1 && b.Y2 >= b.Y1 }

// Rect converts the box to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// RawDetection is one box reported by a detection engine.
type RawDetection struct {
	ClassID    int         `json:"class_id"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// PersonObservation is a filtered detection with its estimated distance.
type PersonObservation struct {
	Box        BoundingBox `json:"box"`
	DistanceCm float64     `json:"distance_cm"`
	Confidence float64     `json:"confidence"`
}

// FrameAssessment is the per-frame verdict. It carries no history.
type FrameAssessment struct {
	Observations []PersonObservation `json:"observations"`

	// Closest is nil when no person was observed.
	Closest *float64 `json:"closest_cm"`

	// ClosestIndex points into Observations, or -1 when Closest is nil.
	ClosestIndex int `json:"closest_index"`

	Alert bool `json:"alert"`
}

// HasClosest reports whether any person was observed.
func (a FrameAssessment) HasClosest() bool {
	return a.Closest != nil
}

// ClosestCm returns the closest distance and whether there was one.
func (a FrameAssessment) ClosestCm() (float64, bool) {
	if a.Closest == nil {
		return 0, false
	}
	return *a.Closest, true
}
