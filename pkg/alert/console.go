package alert

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Console prints operator messages for every frame.
type Console struct {
	w io.Writer
}

// NewConsole writes to w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Act prints one alert line per alerting frame, however many people are
// inside the trigger distance.
func (c *Console) Act(_ context.Context, ev Event) error {
	if ev.Alert {
		if _, err := fmt.Fprintln(c.w, "ALERT: Person is too close!"); err != nil {
			return err
		}
	}
	if ev.ClosestCm != nil {
		if _, err := fmt.Fprintf(c.w, "Closest target is %.1fcm away\n", *ev.ClosestCm); err != nil {
			return err
		}
	}
	return nil
}
