package monitor

import (
	"github.com/teslashibe/go-proximity/pkg/alert"
	"github.com/teslashibe/go-proximity/pkg/proximity"
)

// State is the controller's output for a frame. It is recomputed from
// scratch every frame.
type State int

const (
	Idle     State = iota // nobody inside the trigger distance
	Alerting              // at least one person inside it
)

// String returns the operator action for the state.
func (s State) String() string {
	if s == Alerting {
		return alert.ActionOn
	}
	return alert.ActionOff
}

// StateFor maps an assessment to a state.
func StateFor(fa proximity.FrameAssessment) State {
	if fa.Alert {
		return Alerting
	}
	return Idle
}
