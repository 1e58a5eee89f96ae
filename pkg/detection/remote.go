package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/teslashibe/go-proximity/internal/httpc"
	"github.com/teslashibe/go-proximity/pkg/proximity"
)

// RemoteDetector sends frames to an HTTP inference service.
//
// The service receives a multipart upload with a "file" field holding a JPEG
// and answers with {"detections":[{"class_id":0,"confidence":0.9,"x1":..}]}.
type RemoteDetector struct {
	url     string
	config  Config
	client  *http.Client
	quality int
}

// RemoteOption customises a RemoteDetector.
type RemoteOption func(*RemoteDetector)

// WithHTTPClient overrides the shared client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteDetector) { r.client = c }
}

// WithJPEGQuality sets the upload quality (1-100).
func WithJPEGQuality(q int) RemoteOption {
	return func(r *RemoteDetector) { r.quality = q }
}

// NewRemote creates a detector backed by the service at inferenceURL.
func NewRemote(inferenceURL string, cfg Config, opts ...RemoteOption) *RemoteDetector {
	r := &RemoteDetector{
		url:     inferenceURL,
		config:  cfg,
		client:  httpc.Client,
		quality: 85,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type remoteDetection struct {
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}

// Detect uploads frame and returns the service's detections.
func (r *RemoteDetector) Detect(ctx context.Context, frame image.Image) ([]proximity.RawDetection, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, frame, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var result struct {
		Detections []remoteDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dets := make([]proximity.RawDetection, 0, len(result.Detections))
	for _, d := range result.Detections {
		dets = append(dets, proximity.RawDetection{
			ClassID:    d.ClassID,
			Confidence: d.Confidence,
			Box:        proximity.Box(int(d.X1), int(d.Y1), int(d.X2), int(d.Y2)),
		})
	}
	return r.config.apply(dets), nil
}

// CheckHealth calls GET <url>/health.
func (r *RemoteDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(r.url, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "unhealthy"}
	}
	return nil
}

// Close is a no-op; the HTTP client is shared.
func (r *RemoteDetector) Close() error {
	return nil
}
