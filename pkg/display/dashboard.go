package display

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// FrameSink receives encoded JPEG frames. *web.Server implements it.
type FrameSink interface {
	SendFrame(jpegData []byte)
}

// Dashboard JPEG-encodes frames for the web dashboard.
type Dashboard struct {
	sink    FrameSink
	quality int
	buf     bytes.Buffer
}

// NewDashboard encodes at quality (1-100, 0 selects 75).
func NewDashboard(sink FrameSink, quality int) *Dashboard {
	if quality <= 0 || quality > 100 {
		quality = 75
	}
	return &Dashboard{sink: sink, quality: quality}
}

func (d *Dashboard) Show(frame image.Image) error {
	d.buf.Reset()
	if err := jpeg.Encode(&d.buf, frame, &jpeg.Options{Quality: d.quality}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	// The hub keeps the slice, so hand it a copy.
	d.sink.SendFrame(bytes.Clone(d.buf.Bytes()))
	return nil
}

// Close is a no-op; the server outlives the display.
func (d *Dashboard) Close() error { return nil }
