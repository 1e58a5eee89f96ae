// proximity watches a camera for people and raises an alert while anyone is
// closer than the trigger distance.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-proximity/internal/config"
	"github.com/teslashibe/go-proximity/internal/log"
	"github.com/teslashibe/go-proximity/pkg/alert"
	"github.com/teslashibe/go-proximity/pkg/camera"
	"github.com/teslashibe/go-proximity/pkg/detection"
	"github.com/teslashibe/go-proximity/pkg/display"
	"github.com/teslashibe/go-proximity/pkg/monitor"
	"github.com/teslashibe/go-proximity/pkg/proximity"
	"github.com/teslashibe/go-proximity/pkg/web"
)

// options are the command-line settings that are not part of monitor.Config.
type options struct {
	logLevel    string
	preset      string
	jpegQuality int
}

func main() {
	cfg, opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "proximity: %v\n", err)
		os.Exit(2)
	}
	log.Init(opts.logLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts); err != nil {
		log.Error("proximity failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags layers defaults, environment and flags, in that order.
func parseFlags(args []string) (monitor.Config, options, error) {
	cfg := monitor.DefaultConfig()
	cfg.LoadEnvConfig()
	opts := options{}

	fs := flag.NewFlagSet("proximity", flag.ContinueOnError)
	fs.StringVar(&cfg.Source, "source", cfg.Source, "Camera index, video file, image directory or webrtc://host")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "YOLOv8 ONNX model")
	fs.StringVar(&cfg.InferenceURL, "inference-url", cfg.InferenceURL, "Remote inference service (overrides -model)")
	fs.Float64Var(&cfg.Calibration.ReferenceHeightCm, "reference-height", cfg.Calibration.ReferenceHeightCm, "Assumed person height in cm")
	fs.Float64Var(&cfg.Calibration.FocalLength, "focal-length", cfg.Calibration.FocalLength, "Calibrated focal length in pixels (see cmd/calibrate)")
	fs.Float64Var(&cfg.Thresholds.TriggerDistanceCm, "trigger", cfg.Thresholds.TriggerDistanceCm, "Alert when someone is closer than this many cm")
	fs.Float64Var(&cfg.Thresholds.Confidence, "confidence", cfg.Thresholds.Confidence, "Minimum detection confidence")
	class := fs.String("class", detection.ClassName(cfg.Thresholds.TargetClassID), "COCO class to watch")
	zero := fs.String("zero-height", cfg.ZeroHeight.String(), "Zero-height boxes: sentinel (distance 0, alerts) or ignore")
	fs.StringVar(&opts.preset, "preset", camera.Preset720p, "Capture resolution preset for devices")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Do not open a window")
	fs.StringVar(&cfg.DashboardAddr, "dashboard", cfg.DashboardAddr, "Serve the web dashboard on this address, e.g. :8080")
	fs.IntVar(&opts.jpegQuality, "jpeg-quality", 75, "Dashboard JPEG quality")
	fs.StringVar(&cfg.WebhookURL, "webhook", cfg.WebhookURL, "POST alert transitions to this URL")
	fs.BoolVar(&cfg.Quiet, "quiet", cfg.Quiet, "Do not print per-frame console messages")
	noAnnotate := fs.Bool("no-annotate", false, "Show raw frames without boxes and banner")
	fs.IntVar(&cfg.MaxFrames, "max-frames", cfg.MaxFrames, "Stop after this many frames (0 = until the source ends)")
	fs.StringVar(&opts.logLevel, "log-level", config.String("LOG_LEVEL", "info"), "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}

	id, ok := detection.ClassID(*class)
	if !ok {
		return cfg, opts, fmt.Errorf("unknown class %q", *class)
	}
	cfg.Thresholds.TargetClassID = id

	mode, err := proximity.ParseZeroHeightMode(*zero)
	if err != nil {
		return cfg, opts, err
	}
	cfg.ZeroHeight = mode
	cfg.Annotate = !*noAnnotate

	if camera.GetPreset(opts.preset) == nil {
		return cfg, opts, fmt.Errorf("unknown preset %q (have %v)", opts.preset, camera.PresetNames())
	}
	return cfg, opts, nil
}

func run(ctx context.Context, cfg monitor.Config, opts options) error {
	det, name, err := newDetector(ctx, cfg)
	if err != nil {
		return err
	}

	src, err := camera.Open(cfg.Source, *camera.GetPreset(opts.preset))
	if err != nil {
		det.Close()
		return fmt.Errorf("open source: %w", err)
	}

	var (
		displays  display.Multi
		actuators []alert.Actuator
	)
	if !cfg.Headless {
		displays = append(displays, display.NewWindow("Proximity"))
	}
	if !cfg.Quiet {
		actuators = append(actuators, alert.NewConsole(os.Stdout))
	}
	if cfg.WebhookURL != "" {
		actuators = append(actuators, alert.NewWebhook(cfg.WebhookURL))
	}
	if cfg.DashboardAddr != "" {
		srv := web.NewServer(cfg.DashboardAddr, web.Settings{
			ReferenceHeightCm: cfg.Calibration.ReferenceHeightCm,
			FocalLength:       cfg.Calibration.FocalLength,
			TriggerDistanceCm: cfg.Thresholds.TriggerDistanceCm,
			Confidence:        cfg.Thresholds.Confidence,
			TargetClassID:     cfg.Thresholds.TargetClassID,
			ZeroHeight:        cfg.ZeroHeight.String(),
			Source:            cfg.Source,
			Detector:          name,
		})
		srv.StartAsync(ctx)
		defer srv.Shutdown()

		displays = append(displays, display.NewDashboard(srv, opts.jpegQuality))
		actuators = append(actuators, srv)
	}

	var disp display.Display = display.Discard{}
	if len(displays) > 0 {
		disp = displays
	}

	c, err := monitor.New(cfg, src, det,
		monitor.WithDisplay(disp),
		monitor.WithActuators(actuators...),
	)
	if err != nil {
		src.Close()
		disp.Close()
		det.Close()
		return err
	}
	defer c.Close()

	log.Info("watching", "source", cfg.Source, "detector", name, "run", c.RunID())
	return c.Run(ctx)
}

// newDetector prefers the remote service when INFERENCE_URL is set.
func newDetector(ctx context.Context, cfg monitor.Config) (detection.Detector, string, error) {
	dcfg := detection.Config{
		ConfidenceThresh: cfg.Thresholds.Confidence,
		ClassIDs:         []int{cfg.Thresholds.TargetClassID},
	}

	if cfg.InferenceURL != "" {
		r := detection.NewRemote(cfg.InferenceURL, dcfg)
		if err := r.CheckHealth(ctx); err != nil {
			log.Warn("inference service health check failed", "url", cfg.InferenceURL, "error", err)
		}
		return r, "remote", nil
	}

	ycfg := detection.DefaultYOLOConfig()
	ycfg.Config = dcfg
	ycfg.ModelPath = cfg.ModelPath
	y, err := detection.NewYOLO(ycfg)
	if err != nil {
		return nil, "", fmt.Errorf("load detector: %w", err)
	}
	return y, "yolo", nil
}
