package proximity

// Assess computes the closest distance and the alert flag for one frame.
//
// Alert is true iff some observation is strictly closer than
// triggerDistanceCm. When several observations share the minimum distance the
// first one in input order is reported.
func Assess(observations []PersonObservation, triggerDistanceCm float64) FrameAssessment {
	a := FrameAssessment{
		Observations: observations,
		ClosestIndex: -1,
	}
	if a.Observations == nil {
		a.Observations = []PersonObservation{}
	}

	for i, o := range observations {
		if a.ClosestIndex < 0 || o.DistanceCm < observations[a.ClosestIndex].DistanceCm {
			a.ClosestIndex = i
		}
		if o.DistanceCm < triggerDistanceCm {
			a.Alert = true
		}
	}

	if a.ClosestIndex >= 0 {
		d := observations[a.ClosestIndex].DistanceCm
		a.Closest = &d
	}
	return a
}

// Thresholds groups the per-frame policy knobs.
type Thresholds struct {
	Confidence        float64 `json:"confidence"`
	TargetClassID     int     `json:"target_class_id"`
	TriggerDistanceCm float64 `json:"trigger_distance_cm"`
}

// Evaluate runs filter, estimate and assess in sequence.
func Evaluate(raw []RawDetection, calib Calibration, th Thresholds, mode ZeroHeightMode) FrameAssessment {
	kept := Filter(raw, th.Confidence, th.TargetClassID)
	return Assess(Observe(kept, calib, mode), th.TriggerDistanceCm)
}
