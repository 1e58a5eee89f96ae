// Package display presents annotated frames: an OpenCV window, the web
// dashboard, or nothing at all for headless runs.
package display

import (
	"errors"
	"image"
)

// Display shows one frame at a time.
type Display interface {
	Show(frame image.Image) error
	Close() error
}

// Quitter is implemented by displays the operator can close, such as a
// window with a quit key.
type Quitter interface {
	QuitRequested() bool
}

// Discard drops every frame.
type Discard struct{}

func (Discard) Show(image.Image) error { return nil }
func (Discard) Close() error           { return nil }

// Multi shows each frame on every display in order.
type Multi []Display

// Show stops at the first failing display.
func (m Multi) Show(frame image.Image) error {
	for _, d := range m {
		if err := d.Show(frame); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every display and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, d := range m {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QuitRequested reports whether any member asked to quit.
func (m Multi) QuitRequested() bool {
	for _, d := range m {
		if q, ok := d.(Quitter); ok && q.QuitRequested() {
			return true
		}
	}
	return false
}
