// calibrate measures the focal length for the proximity pinhole model.
//
// Stand one person at a measured distance from the camera and run:
//
//	calibrate -distance 300 -source 0
//
// The tallest person in the frame is used: F = P * D / H.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-proximity/internal/config"
	"github.com/teslashibe/go-proximity/internal/log"
	"github.com/teslashibe/go-proximity/pkg/camera"
	"github.com/teslashibe/go-proximity/pkg/detection"
	"github.com/teslashibe/go-proximity/pkg/proximity"
)

// warmupFrames are skipped on live devices while auto exposure settles.
const warmupFrames = 10

// errNoPerson is returned when no qualifying person box is found.
var errNoPerson = errors.New("no person found; check lighting and framing")

type options struct {
	source     string
	distance   float64
	height     float64
	confidence float64
}

func main() {
	var opts options
	flag.StringVar(&opts.source, "source", "0", "Camera index, video file or still image")
	flag.Float64Var(&opts.distance, "distance", 0, "Measured camera-to-person distance in cm (required)")
	flag.Float64Var(&opts.height, "reference-height", proximity.DefaultReferenceHeightCm, "Height of the person in cm")
	model := flag.String("model", config.String(config.Key("model"), detection.DefaultYOLOConfig().ModelPath), "YOLOv8 ONNX model")
	inferenceURL := flag.String("inference-url", config.String("INFERENCE_URL", ""), "Remote inference service (overrides -model)")
	flag.Float64Var(&opts.confidence, "confidence", 0.5, "Minimum detection confidence")
	logLevel := flag.String("log-level", config.String("LOG_LEVEL", "warn"), "debug, info, warn or error")
	flag.Parse()

	log.Init(*logLevel)

	if !(opts.distance > 0) {
		fmt.Fprintln(os.Stderr, "calibrate: -distance is required")
		flag.Usage()
		os.Exit(2)
	}

	det, err := newDetector(*model, *inferenceURL, opts.confidence)
	if err != nil {
		fmt.Fprintf(os.Stderr, "calibrate: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), opts, det, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "calibrate: %v\n", err)
		os.Exit(1)
	}
}

// run grabs one frame, measures the tallest person and prints the focal
// length to w. det is closed before run returns.
func run(ctx context.Context, opts options, det detection.Detector, w io.Writer) error {
	defer det.Close()

	frame, err := loadFrame(opts.source)
	if err != nil {
		return err
	}

	raw, err := det.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	box, ok := tallestPerson(raw, opts.confidence)
	if !ok {
		return errNoPerson
	}

	f, err := proximity.FocalLengthFor(float64(box.Height()), opts.distance, opts.height)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Person box: %dx%d px at (%d,%d)\n", box.Width(), box.Height(), box.X1, box.Y1)
	fmt.Fprintf(w, "Focal length: %.1f\n", f)
	fmt.Fprintf(w, "Run with: proximity -focal-length %.0f -reference-height %.0f\n", f, opts.height)
	return nil
}

// tallestPerson returns the person box with the greatest pixel height.
func tallestPerson(raw []proximity.RawDetection, confidence float64) (proximity.BoundingBox, bool) {
	var (
		best  proximity.BoundingBox
		found bool
	)
	for _, d := range proximity.Filter(raw, confidence, detection.PersonClassID) {
		if d.Box.Height() > 0 && (!found || d.Box.Height() > best.Height()) {
			best, found = d.Box, true
		}
	}
	return best, found
}

// loadFrame decodes a still image, or grabs a frame from a device or video.
func loadFrame(source string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".jpg", ".jpeg", ".png":
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	}

	src, err := camera.Open(source, camera.DefaultConfig())
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var frame image.Image
	for i := 0; i < warmupFrames; i++ {
		next, err := src.Next()
		if err != nil {
			if frame != nil && errors.Is(err, camera.ErrEndOfStream) {
				break
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}
		frame = next
	}
	return frame, nil
}

func newDetector(model, inferenceURL string, confidence float64) (detection.Detector, error) {
	cfg := detection.Config{ConfidenceThresh: confidence, ClassIDs: []int{detection.PersonClassID}}
	if inferenceURL != "" {
		return detection.NewRemote(inferenceURL, cfg), nil
	}
	ycfg := detection.DefaultYOLOConfig()
	ycfg.Config = cfg
	ycfg.ModelPath = model
	y, err := detection.NewYOLO(ycfg)
	if err != nil {
		return nil, err
	}
	return y, nil
}
