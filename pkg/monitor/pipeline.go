package monitor

import (
	"context"
	"image"

	"github.com/teslashibe/go-proximity/pkg/annotate"
	"github.com/teslashibe/go-proximity/pkg/detection"
	"github.com/teslashibe/go-proximity/pkg/proximity"
)

// Result is the outcome of one frame.
type Result struct {
	Frame      image.Image // annotated copy, or the input when annotation is off
	Raw        int         // detections before filtering
	Assessment proximity.FrameAssessment
	State      State
}

// Pipeline runs detect, filter, estimate, assess and annotate on a frame.
type Pipeline struct {
	detector  detection.Detector
	calib     proximity.Calibration
	th        proximity.Thresholds
	zero      proximity.ZeroHeightMode
	annotator *annotate.Annotator
}

// NewPipeline builds a pipeline from cfg. It does not own det.
func NewPipeline(det detection.Detector, cfg Config) *Pipeline {
	p := &Pipeline{
		detector: det,
		calib:    cfg.Calibration,
		th:       cfg.Thresholds,
		zero:     cfg.ZeroHeight,
	}
	if cfg.Annotate {
		p.annotator = annotate.New(cfg.Thresholds.TriggerDistanceCm, cfg.Style)
	}
	return p
}

// Process handles one frame. Detector errors are returned unchanged.
func (p *Pipeline) Process(ctx context.Context, frame image.Image) (Result, error) {
	raw, err := p.detector.Detect(ctx, frame)
	if err != nil {
		return Result{}, err
	}

	fa := proximity.Evaluate(raw, p.calib, p.th, p.zero)
	res := Result{
		Frame:      frame,
		Raw:        len(raw),
		Assessment: fa,
		State:      StateFor(fa),
	}
	if p.annotator != nil {
		res.Frame = p.annotator.Draw(frame, fa)
	}
	return res, nil
}
