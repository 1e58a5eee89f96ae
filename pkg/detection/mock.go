package detection

import (
	"context"
	"image"
	"sync"

	"github.com/teslashibe/go-proximity/pkg/proximity"
)

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	DetectFunc func(ctx context.Context, frame image.Image) ([]proximity.RawDetection, error)

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock returns a Mock that reports the given detections for every frame.
func NewMock(dets ...proximity.RawDetection) *Mock {
	return &Mock{
		DetectFunc: func(ctx context.Context, frame image.Image) ([]proximity.RawDetection, error) {
			out := make([]proximity.RawDetection, len(dets))
			copy(out, dets)
			return out, nil
		},
	}
}

// NewScriptedMock returns a Mock that reports frames[i] on the i-th call and
// nothing once the script is exhausted.
func NewScriptedMock(frames ...[]proximity.RawDetection) *Mock {
	m := &Mock{}
	m.DetectFunc = func(ctx context.Context, frame image.Image) ([]proximity.RawDetection, error) {
		m.mu.Lock()
		i := m.calls - 1
		m.mu.Unlock()
		if i < len(frames) {
			return frames[i], nil
		}
		return []proximity.RawDetection{}, nil
	}
	return m
}

// Detect calls DetectFunc and records the call.
func (m *Mock) Detect(ctx context.Context, frame image.Image) ([]proximity.RawDetection, error) {
	m.mu.Lock()
	m.calls++
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if m.DetectFunc == nil {
		return []proximity.RawDetection{}, nil
	}
	return m.DetectFunc(ctx, frame)
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the number of Detect calls.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
