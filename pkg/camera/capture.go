package camera

import (
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// CaptureSource reads frames from an OpenCV VideoCapture: a local camera
// device or a video file.
type CaptureSource struct {
	cap  *gocv.VideoCapture
	mat  gocv.Mat
	name string

	mu     sync.Mutex
	closed bool
}

// OpenDevice opens a local camera and requests the configured size.
func OpenDevice(cfg Config) (*CaptureSource, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %s", strings.Join(errs, "; "))
	}

	vc, err := gocv.VideoCaptureDevice(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %w", cfg.Device, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	return &CaptureSource{cap: vc, mat: gocv.NewMat(), name: "device " + strconv.Itoa(cfg.Device)}, nil
}

// OpenFile opens a recorded video file.
func OpenFile(path string) (*CaptureSource, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	return &CaptureSource{cap: vc, mat: gocv.NewMat(), name: path}, nil
}

// Next reads the next frame. A failed or empty read is the end of the stream.
func (s *CaptureSource) Next() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrEndOfStream
	}
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, fmt.Errorf("%w: read failed on %s", ErrEndOfStream, s.name)
	}

	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// Close releases the capture handle. Safe to call more than once.
func (s *CaptureSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.mat.Close()
	return s.cap.Close()
}
