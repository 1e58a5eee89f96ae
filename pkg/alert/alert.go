// Package alert turns per-frame proximity decisions into side effects:
// console messages, relay webhooks and dashboard updates.
package alert

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-proximity/pkg/proximity"
)

// Actions shown to the operator.
const (
	ActionOn  = "TURN ON"
	ActionOff = "TURN OFF"
)

// Event describes one processed frame.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Frame     int       `json:"frame"`
	Action    string    `json:"action"`
	Alert     bool      `json:"alert"`
	ClosestCm *float64  `json:"closest_cm,omitempty"`
	People    int       `json:"people"`
	Changed   bool      `json:"changed"` // first frame after a state change
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds the event for frame n of run runID.
func NewEvent(runID string, n int, fa proximity.FrameAssessment, changed bool) Event {
	action := ActionOff
	if fa.Alert {
		action = ActionOn
	}
	ev := Event{
		ID:        uuid.NewString(),
		RunID:     runID,
		Frame:     n,
		Action:    action,
		Alert:     fa.Alert,
		People:    len(fa.Observations),
		Changed:   changed,
		Timestamp: time.Now().UTC(),
	}
	if d, ok := fa.ClosestCm(); ok {
		ev.ClosestCm = &d
	}
	return ev
}

// Actuator reacts to a frame's event. Errors are reported to the caller,
// which logs them and carries on; there are no retries.
type Actuator interface {
	Act(ctx context.Context, ev Event) error
}

// Func adapts a function to Actuator.
type Func func(ctx context.Context, ev Event) error

// Act calls f.
func (f Func) Act(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
