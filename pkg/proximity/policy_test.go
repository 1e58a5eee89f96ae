package proximity

import "testing"

func obsAt(distances ...float64) []PersonObservation {
	out := make([]PersonObservation, len(distances))
	for i, d := range distances {
		out[i] = PersonObservation{Box: Box(i*10, 0, i*10+5, 100), DistanceCm: d}
	}
	return out
}

func TestAssess(t *testing.T) {
	tests := []struct {
		name        string
		obs         []PersonObservation
		trigger     float64
		wantAlert   bool
		wantClosest float64
		wantNone    bool
		wantIndex   int
	}{
		{name: "empty", obs: nil, trigger: 200, wantNone: true, wantIndex: -1},
		{name: "single far person", obs: obsAt(250), trigger: 200, wantClosest: 250, wantIndex: 0},
		{name: "one inside trigger", obs: obsAt(150, 250), trigger: 200, wantAlert: true, wantClosest: 150, wantIndex: 0},
		{name: "closest last", obs: obsAt(400, 320, 210), trigger: 200, wantClosest: 210, wantIndex: 2},
		{name: "exactly at trigger does not alert", obs: obsAt(200), trigger: 200, wantClosest: 200, wantIndex: 0},
		{name: "sentinel zero alerts", obs: obsAt(500, 0), trigger: 200, wantAlert: true, wantClosest: 0, wantIndex: 1},
		{name: "tie reports first", obs: obsAt(300, 120, 120), trigger: 200, wantAlert: true, wantClosest: 120, wantIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(tt.obs, tt.trigger)

			if a.Alert != tt.wantAlert {
				t.Errorf("Alert = %v, want %v", a.Alert, tt.wantAlert)
			}
			if a.ClosestIndex != tt.wantIndex {
				t.Errorf("ClosestIndex = %d, want %d", a.ClosestIndex, tt.wantIndex)
			}

			got, ok := a.ClosestCm()
			if tt.wantNone {
				if ok || a.HasClosest() {
					t.Errorf("Closest = %v, want none", got)
				}
				return
			}
			if !ok || got != tt.wantClosest {
				t.Errorf("Closest = %v (ok=%v), want %v", got, ok, tt.wantClosest)
			}
		})
	}
}

func TestAssess_EmptyObservationsNotNil(t *testing.T) {
	a := Assess(nil, 200)
	if a.Observations == nil {
		t.Error("Observations should be an empty slice, not nil")
	}
}

func TestEvaluate_EndToEnd(t *testing.T) {
	raw := []RawDetection{
		{ClassID: 0, Confidence: 0.8, Box: Box(100, 50, 160, 150)},
		{ClassID: 56, Confidence: 0.9, Box: Box(300, 200, 380, 400)},
	}
	th := Thresholds{Confidence: 0.5, TargetClassID: 0, TriggerDistanceCm: 200}

	a := Evaluate(raw, Calibration{ReferenceHeightCm: 170, FocalLength: 600}, th, ZeroHeightSentinel)

	if len(a.Observations) != 1 {
		t.Fatalf("observations = %d, want 1", len(a.Observations))
	}
	if a.Observations[0].DistanceCm != 1020 {
		t.Errorf("distance = %v, want 1020", a.Observations[0].DistanceCm)
	}
	if d, _ := a.ClosestCm(); d != 1020 {
		t.Errorf("closest = %v, want 1020", d)
	}
	if a.Alert {
		t.Error("alert = true, want false for 1020cm at trigger 200cm")
	}
}
