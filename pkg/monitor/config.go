// Package monitor runs the proximity loop: read a frame, detect people,
// estimate distances, decide, then display and act on the result.
package monitor

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-proximity/internal/config"
	"github.com/teslashibe/go-proximity/internal/log"
	"github.com/teslashibe/go-proximity/pkg/annotate"
	"github.com/teslashibe/go-proximity/pkg/detection"
	"github.com/teslashibe/go-proximity/pkg/proximity"
)

// Default configuration values.
const (
	DefaultSource    = "0"
	DefaultDashboard = ":8080"
)

// Config holds all configuration for a proximity run.
// Flag parsing is done in cmd/proximity/main.go; this struct is data only.
type Config struct {
	Calibration proximity.Calibration
	Thresholds  proximity.Thresholds
	ZeroHeight  proximity.ZeroHeightMode

	// Source is a device index, a video file, an image directory, or
	// webrtc://host for a remote camera.
	Source string

	// Detection engine. InferenceURL takes precedence over ModelPath.
	ModelPath    string
	InferenceURL string

	// Outputs.
	Annotate      bool
	Style         annotate.Style
	Headless      bool   // no OpenCV window
	DashboardAddr string // empty disables the web dashboard
	WebhookURL    string // empty disables the relay webhook
	Quiet         bool   // no console messages

	// MaxFrames stops the loop after this many frames. 0 runs until the
	// source ends.
	MaxFrames int
}

// DefaultConfig returns a 200cm trigger at 0.3 confidence on the person class.
func DefaultConfig() Config {
	return Config{
		Calibration: proximity.DefaultCalibration(),
		Thresholds: proximity.Thresholds{
			Confidence:        proximity.DefaultConfidence,
			TargetClassID:     detection.PersonClassID,
			TriggerDistanceCm: proximity.DefaultTriggerDistanceCm,
		},
		ZeroHeight: proximity.ZeroHeightSentinel,
		Source:     DefaultSource,
		ModelPath:  detection.DefaultYOLOConfig().ModelPath,
		Annotate:   true,
		Style:      annotate.DefaultStyle(),
	}
}

// LoadEnvConfig applies environment overrides. Call it before flag parsing
// so that flags win.
func (c *Config) LoadEnvConfig() {
	c.Calibration.FocalLength = config.Float(config.Key("focal_length"), c.Calibration.FocalLength)
	c.Calibration.ReferenceHeightCm = config.Float(config.Key("reference_height"), c.Calibration.ReferenceHeightCm)
	c.Thresholds.TriggerDistanceCm = config.Float(config.Key("trigger_cm"), c.Thresholds.TriggerDistanceCm)
	c.Thresholds.Confidence = config.Float(config.Key("confidence"), c.Thresholds.Confidence)
	if v := config.String(config.Key("zero_height"), ""); v != "" {
		mode, err := proximity.ParseZeroHeightMode(v)
		if err != nil {
			log.Warn("ignoring invalid environment value", "key", config.Key("zero_height"), "value", v, "error", err)
		} else {
			c.ZeroHeight = mode
		}
	}

	c.Source = config.String(config.Key("source"), c.Source)
	c.ModelPath = config.String(config.Key("model"), c.ModelPath)
	c.InferenceURL = config.String("INFERENCE_URL", c.InferenceURL)
	c.WebhookURL = config.String(config.Key("webhook_url"), c.WebhookURL)
	c.DashboardAddr = config.String(config.Key("dashboard"), c.DashboardAddr)
	c.Headless = config.Bool(config.Key("headless"), c.Headless)
}

// Validate checks that the configuration can run.
func (c *Config) Validate() error {
	if err := c.Calibration.Validate(); err != nil {
		return &ConfigError{Field: "Calibration", Message: err.Error(), Err: err}
	}
	if !(c.Thresholds.Confidence >= 0 && c.Thresholds.Confidence <= 1) {
		return &ConfigError{Field: "Thresholds.Confidence", Message: fmt.Sprintf("confidence must be between 0 and 1, got %v", c.Thresholds.Confidence)}
	}
	if !(c.Thresholds.TriggerDistanceCm > 0) {
		return &ConfigError{Field: "Thresholds.TriggerDistanceCm", Message: fmt.Sprintf("trigger distance must be > 0, got %v", c.Thresholds.TriggerDistanceCm)}
	}
	if c.Thresholds.TargetClassID < 0 {
		return &ConfigError{Field: "Thresholds.TargetClassID", Message: "target class id must be >= 0"}
	}
	if c.Source == "" {
		return &ConfigError{Field: "Source", Message: "a frame source is required"}
	}
	if c.ModelPath == "" && c.InferenceURL == "" {
		return &ConfigError{Field: "ModelPath", Message: "a model path or INFERENCE_URL is required"}
	}
	if c.MaxFrames < 0 {
		return &ConfigError{Field: "MaxFrames", Message: "max frames must be >= 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
