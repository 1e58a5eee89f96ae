package detection

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/teslashibe/go-proximity/pkg/proximity"
)

func TestNewYOLO_MissingModel(t *testing.T) {
	cfg := DefaultYOLOConfig()
	cfg.ModelPath = "/nonexistent/path/yolov8n.onnx"

	_, err := NewYOLO(cfg)
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("NewYOLO err = %v, want ErrModelNotFound", err)
	}
}

func TestDefaultYOLOConfig(t *testing.T) {
	cfg := DefaultYOLOConfig()
	if cfg.ModelPath == "" {
		t.Error("ModelPath should not be empty")
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		t.Errorf("input size %dx%d should be positive", cfg.InputWidth, cfg.InputHeight)
	}
	if cfg.NMSThresh <= 0 || cfg.NMSThresh >= 1 {
		t.Errorf("NMSThresh = %v, want (0,1)", cfg.NMSThresh)
	}
}

// TestYOLODetect_SolidImage runs the real model when it is available.
func TestYOLODetect_SolidImage(t *testing.T) {
	modelPath := findModelPath("yolov8n.onnx")
	if modelPath == "" {
		t.Skip("YOLO model not found, skipping test")
	}

	cfg := DefaultYOLOConfig()
	cfg.ModelPath = modelPath

	d, err := NewYOLO(cfg)
	if err != nil {
		t.Fatalf("NewYOLO failed: %v", err)
	}
	defer d.Close()

	dets, err := d.Detect(context.Background(), newTestFrame())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	for _, det := range dets {
		if !IsPerson(det.ClassID) {
			t.Errorf("non-person class %d reported with person-only config", det.ClassID)
		}
	}

	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := d.Detect(context.Background(), newTestFrame()); !errors.Is(err, ErrClosed) {
		t.Errorf("Detect after Close = %v, want ErrClosed", err)
	}
}

func findModelPath(name string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	// Walk up to find models directory
	for dir := cwd; dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		p := filepath.Join(dir, "models", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// yoloTensor lays out anchors in the [4+classes, anchors] order YOLOv8 emits.
func yoloTensor(classes int, anchors [][]float32) []float32 {
	attrs := 4 + classes
	data := make([]float32, attrs*len(anchors))
	for i, a := range anchors {
		for j := 0; j < attrs; j++ {
			data[j*len(anchors)+i] = a[j]
		}
	}
	return data
}

func TestDecodeCandidates(t *testing.T) {
	// cx, cy, w, h, person score, other score (640x640 model space)
	data := yoloTensor(2, [][]float32{
		{320, 320, 200, 720, 0.9, 0.1}, // spills past top and bottom
		{320, 320, 100, 100, 0.1, 0.9}, // not a person
		{320, 320, 100, 100, 0.2, 0.0}, // below threshold
		{700, 320, 20, 100, 0.8, 0.0},  // entirely right of the frame
		{100, 100, 40, 80, 0.6, 0.0},   // inside
	})

	cfg := DefaultYOLOConfig()
	boxes, confidences, classIDs := decodeCandidates(data, 6, 5, cfg, 1280, 720)

	wantBoxes := []image.Rectangle{
		image.Rect(440, 0, 840, 720),
		image.Rect(160, 67, 240, 157),
	}
	if diff := cmp.Diff(wantBoxes, boxes); diff != "" {
		t.Errorf("boxes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{0.9, 0.6}, confidences); diff != "" {
		t.Errorf("confidences mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{PersonClassID, PersonClassID}, classIDs); diff != "" {
		t.Errorf("class ids mismatch (-want +got):\n%s", diff)
	}

	frame := image.Rect(0, 0, 1280, 720)
	for _, b := range boxes {
		if !b.In(frame) {
			t.Errorf("box %v not clipped to %v", b, frame)
		}
	}

	// A box filling the frame height must estimate no closer than the
	// frame allows.
	est := proximity.Estimate(float64(proximity.FromRect(boxes[0]).Height()), proximity.DefaultCalibration())
	if got, want := est, 170.0*600/720; math.Abs(got-want) > 1e-9 {
		t.Errorf("distance = %v, want %v", got, want)
	}
}
