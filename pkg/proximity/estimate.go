package proximity

import "fmt"

// Estimate returns the distance in cm of an object whose bounding box is
// pixelHeight pixels tall, using distance = H * F / P.
//
// A zero (or negative) pixel height has no defined distance; Estimate returns
// the sentinel 0. See ZeroHeightMode for how the pipeline treats it.
func Estimate(pixelHeight float64, calib Calibration) float64 {
	if pixelHeight <= 0 {
		return 0
	}
	return calib.ReferenceHeightCm * calib.FocalLength / pixelHeight
}

// FocalLengthFor inverts Estimate for the manual calibration step: a person
// of referenceHeightCm standing knownDistanceCm from the camera appears
// pixelHeight pixels tall, so F = P * D / H.
func FocalLengthFor(pixelHeight, knownDistanceCm, referenceHeightCm float64) (float64, error) {
	switch {
	case !(pixelHeight > 0):
		return 0, fmt.Errorf("%w: pixel height must be > 0, got %v", ErrInvalidMeasurement, pixelHeight)
	case !(knownDistanceCm > 0):
		return 0, fmt.Errorf("%w: distance must be > 0, got %v", ErrInvalidMeasurement, knownDistanceCm)
	case !(referenceHeightCm > 0):
		return 0, fmt.Errorf("%w: reference height must be > 0, got %v", ErrInvalidMeasurement, referenceHeightCm)
	}
	return pixelHeight * knownDistanceCm / referenceHeightCm, nil
}

// DistanceCategory returns a human-readable bucket for a distance in cm.
func DistanceCategory(cm float64) string {
	if cm <= 0 {
		return "unknown"
	}
	if cm < 50 {
		return "very close"
	}
	if cm < 100 {
		return "close"
	}
	if cm < 200 {
		return "nearby"
	}
	if cm < 300 {
		return "moderate"
	}
	return "far"
}
