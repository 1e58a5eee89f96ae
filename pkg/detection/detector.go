// Package detection provides object detection backends that report pixel
// bounding boxes with COCO class ids.
package detection

import (
	"context"
	"image"

	"github.com/teslashibe/go-proximity/pkg/proximity"
)

// Detector is the interface for detection backends.
// Implementations are interchangeable as far as the proximity loop is concerned.
type Detector interface {
	// Detect finds objects in the frame. Boxes are in frame pixel coordinates.
	Detect(ctx context.Context, frame image.Image) ([]proximity.RawDetection, error)

	// Close releases resources
	Close() error
}

// Config holds the settings shared by every backend.
type Config struct {
	ConfidenceThresh float64 // Minimum confidence reported by the backend
	ClassIDs         []int   // Only report these classes; empty means all
}

// DefaultConfig returns a person-only config at 0.5 confidence.
func DefaultConfig() Config {
	return Config{
		ConfidenceThresh: 0.5,
		ClassIDs:         []int{PersonClassID},
	}
}

// wants reports whether classID passes the class filter.
func (c Config) wants(classID int) bool {
	if len(c.ClassIDs) == 0 {
		return true
	}
	for _, id := range c.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// apply drops detections outside the class filter or below the threshold.
func (c Config) apply(dets []proximity.RawDetection) []proximity.RawDetection {
	out := dets[:0]
	for _, d := range dets {
		if c.wants(d.ClassID) && d.Confidence >= c.ConfidenceThresh {
			out = append(out, d)
		}
	}
	return out
}
