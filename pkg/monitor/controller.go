package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-proximity/internal/log"
	"github.com/teslashibe/go-proximity/pkg/alert"
	"github.com/teslashibe/go-proximity/pkg/camera"
	"github.com/teslashibe/go-proximity/pkg/detection"
	"github.com/teslashibe/go-proximity/pkg/display"
)

// Controller owns the frame source, detector and outputs of one run and
// drives them one frame at a time on the calling goroutine.
type Controller struct {
	cfg       Config
	source    camera.Source
	detector  detection.Detector
	display   display.Display
	actuators []alert.Actuator
	pipeline  *Pipeline

	runID  string
	state  State
	frames int

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Controller.
type Option func(*Controller)

// WithDisplay sets where annotated frames go. The default discards them.
func WithDisplay(d display.Display) Option {
	return func(c *Controller) { c.display = d }
}

// WithActuators adds actuators invoked after every frame.
func WithActuators(a ...alert.Actuator) Option {
	return func(c *Controller) { c.actuators = append(c.actuators, a...) }
}

// New validates cfg and builds a Controller. The controller takes ownership
// of src, det and the display; Close releases them.
func New(cfg Config, src camera.Source, det detection.Detector, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:      cfg,
		source:   src,
		detector: det,
		display:  display.Discard{},
		pipeline: NewPipeline(det, cfg),
		runID:    uuid.NewString(),
		state:    Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run processes frames until the source ends, a quit is requested, ctx is
// cancelled or MaxFrames is reached, all of which return nil. A detector or
// display failure stops the loop and is returned. Cancellation is checked
// once per frame, after the actuators have run.
func (c *Controller) Run(ctx context.Context) error {
	logger := log.With("run", c.runID)
	logger.Info("monitor started",
		"trigger_cm", c.cfg.Thresholds.TriggerDistanceCm,
		"focal_length", c.cfg.Calibration.FocalLength,
		"reference_height_cm", c.cfg.Calibration.ReferenceHeightCm,
		"zero_height", c.cfg.ZeroHeight.String(),
	)

	for {
		frame, err := c.source.Next()
		if err != nil {
			if errors.Is(err, camera.ErrEndOfStream) {
				logger.Info("frame source ended", "frames", c.frames)
			} else {
				logger.Warn("frame read failed, stopping", "frames", c.frames, "error", err)
			}
			return nil
		}
		c.frames++
		n := c.frames

		res, err := c.pipeline.Process(ctx, frame)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				logger.Info("monitor cancelled", "frames", n)
				return nil
			}
			return fmt.Errorf("detect frame %d: %w", n, err)
		}

		changed := res.State != c.state
		if changed {
			args := []any{"frame", n, "from", c.state.String(), "to", res.State.String()}
			if d, ok := res.Assessment.ClosestCm(); ok {
				args = append(args, "closest_cm", d)
			}
			logger.Info("state changed", args...)
		}
		c.state = res.State
		logger.Debug("frame processed",
			"frame", n,
			"raw", res.Raw,
			"people", len(res.Assessment.Observations),
			"state", res.State.String(),
		)

		if err := c.display.Show(res.Frame); err != nil {
			return fmt.Errorf("show frame %d: %w", n, err)
		}

		ev := alert.NewEvent(c.runID, n, res.Assessment, changed)
		for _, a := range c.actuators {
			if err := a.Act(ctx, ev); err != nil {
				logger.Warn("actuator failed", "frame", n, "error", err)
			}
		}

		if c.quitRequested(ctx) {
			logger.Info("monitor stopped", "frames", n)
			return nil
		}
		if c.cfg.MaxFrames > 0 && n >= c.cfg.MaxFrames {
			logger.Info("frame limit reached", "frames", n)
			return nil
		}
	}
}

func (c *Controller) quitRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	q, ok := c.display.(display.Quitter)
	return ok && q.QuitRequested()
}

// State returns the state of the last processed frame.
func (c *Controller) State() State {
	return c.state
}

// Frames returns the number of frames read so far.
func (c *Controller) Frames() int {
	return c.frames
}

// RunID identifies this run in logs and alert events.
func (c *Controller) RunID() string {
	return c.runID
}

// Close releases the source, display and detector. It is safe to call more
// than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(
			c.source.Close(),
			c.display.Close(),
			c.detector.Close(),
		)
	})
	return c.closeErr
}
