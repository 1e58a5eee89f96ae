package proximity

import (
	"fmt"
	"strings"
)

// Filter keeps detections of targetClassID whose confidence is at least
// confidenceThreshold. Input order is preserved and raw is not modified.
// The result is never nil.
func Filter(raw []RawDetection, confidenceThreshold float64, targetClassID int) []RawDetection {
	out := make([]RawDetection, 0, len(raw))
	for _, d := range raw {
		if d.ClassID == targetClassID && d.Confidence >= confidenceThreshold {
			out = append(out, d)
		}
	}
	return out
}

// ZeroHeightMode decides what happens to a detection whose box has no height.
type ZeroHeightMode int

const (
	// ZeroHeightSentinel keeps the observation at the sentinel distance 0.
	// Such a person counts as closer than any trigger distance.
	ZeroHeightSentinel ZeroHeightMode = iota

	// ZeroHeightIgnore treats the distance as infinite and drops the observation.
	ZeroHeightIgnore
)

// String returns the flag spelling of the mode.
func (m ZeroHeightMode) String() string {
	switch m {
	case ZeroHeightSentinel:
		return "sentinel"
	case ZeroHeightIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("ZeroHeightMode(%d)", int(m))
	}
}

// ParseZeroHeightMode parses "sentinel" or "ignore".
func ParseZeroHeightMode(s string) (ZeroHeightMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sentinel":
		return ZeroHeightSentinel, nil
	case "ignore", "far", "infinite":
		return ZeroHeightIgnore, nil
	}
	return 0, fmt.Errorf("unknown zero-height mode %q (want sentinel or ignore)", s)
}

// Observe estimates a distance for every detection, in order.
func Observe(kept []RawDetection, calib Calibration, mode ZeroHeightMode) []PersonObservation {
	obs := make([]PersonObservation, 0, len(kept))
	for _, d := range kept {
		h := d.Box.Height()
		if h <= 0 && mode == ZeroHeightIgnore {
			continue
		}
		obs = append(obs, PersonObservation{
			Box:        d.Box,
			DistanceCm: Estimate(float64(h), calib),
			Confidence: d.Confidence,
		})
	}
	return obs
}
