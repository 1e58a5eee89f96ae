package detection

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-proximity/internal/log"
	"github.com/teslashibe/go-proximity/pkg/proximity"
)

// YOLODetector uses a YOLOv8 ONNX export through OpenCV's DNN module.
type YOLODetector struct {
	net       gocv.Net
	config    YOLOConfig
	mu        sync.Mutex
	inputSize image.Point
	closed    bool
}

// YOLOConfig holds YOLO detector configuration
type YOLOConfig struct {
	Config
	ModelPath   string
	NMSThresh   float32
	InputWidth  int
	InputHeight int
}

// DefaultYOLOConfig returns production defaults for YOLOv8n, person only.
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		Config:      DefaultConfig(),
		ModelPath:   "models/yolov8n.onnx",
		NMSThresh:   0.45,
		InputWidth:  640,
		InputHeight: 640,
	}
}

// NewYOLO loads the model once. The returned detector is passed to the
// loop controller and closed by it.
func NewYOLO(cfg YOLOConfig) (*YOLODetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLODetector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Detect runs one inference on frame. There is no mid-inference cancellation;
// ctx is only checked before the forward pass.
func (d *YOLODetector) Detect(ctx context.Context, frame image.Image) ([]proximity.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	return d.DetectMat(img)
}

// DetectMat runs inference on an already decoded BGR Mat.
func (d *YOLODetector) DetectMat(img gocv.Mat) ([]proximity.RawDetection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if img.Empty() {
		return nil, ErrEmptyFrame
	}

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	dets, err := d.parseOutput(output, imgW, imgH)
	if err != nil {
		return nil, err
	}

	log.Debug("yolo inference", "detections", len(dets))
	return dets, nil
}

// parseOutput decodes the [1, 4+classes, anchors] YOLOv8 tensor and applies NMS.
func (d *YOLODetector) parseOutput(output gocv.Mat, imgW, imgH float32) ([]proximity.RawDetection, error) {
	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected YOLO output shape %v", dims)
	}
	attrs := dims[1]   // 4 bbox + class scores
	anchors := dims[2] // 8400 for 640x640

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read YOLO output: %w", err)
	}

	boxes, confidences, classIDs := decodeCandidates(data, attrs, anchors, d.config, imgW, imgH)
	if len(boxes) == 0 {
		return []proximity.RawDetection{}, nil
	}

	thresh := float32(d.config.ConfidenceThresh)
	indices := gocv.NMSBoxes(boxes, confidences, thresh, d.config.NMSThresh)

	dets := make([]proximity.RawDetection, 0, len(indices))
	for _, idx := range indices {
		dets = append(dets, proximity.RawDetection{
			ClassID:    classIDs[idx],
			Confidence: float64(confidences[idx]),
			Box:        proximity.FromRect(boxes[idx]),
		})
	}
	return dets, nil
}

// Close releases the detector resources
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}

// decodeCandidates picks the best class per anchor, drops anchors below the
// threshold or outside the wanted classes, and maps the survivors from
// model input space to frame pixels clipped to the frame.
func decodeCandidates(data []float32, attrs, anchors int, cfg YOLOConfig, imgW, imgH float32) ([]image.Rectangle, []float32, []int) {
	scaleX := imgW / float32(cfg.InputWidth)
	scaleY := imgH / float32(cfg.InputHeight)
	thresh := float32(cfg.ConfidenceThresh)
	frame := image.Rect(0, 0, int(imgW), int(imgH))

	var boxes []image.Rectangle
	var confidences []float32
	var classIDs []int

	for i := 0; i < anchors; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < attrs; c++ {
			if score := data[c*anchors+i]; score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < thresh || !cfg.wants(maxClassID) {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		r := image.Rect(
			int((cx-w/2)*scaleX),
			int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX),
			int((cy+h/2)*scaleY),
		).Intersect(frame)
		if r.Empty() {
			continue
		}

		boxes = append(boxes, r)
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
	}
	return boxes, confidences, classIDs
}
