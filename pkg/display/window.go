package display

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const keyEsc = 27

// Window shows frames in a native OpenCV window. Pressing q or Esc requests
// a quit. OpenCV expects the window to be driven from the main goroutine.
type Window struct {
	win  *gocv.Window
	quit bool
}

// NewWindow opens a window titled title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

func (w *Window) Show(frame image.Image) error {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	w.win.IMShow(mat)
	if isQuitKey(w.win.WaitKey(1)) {
		w.quit = true
	}
	return nil
}

func (w *Window) QuitRequested() bool {
	return w.quit
}

func (w *Window) Close() error {
	return w.win.Close()
}

func isQuitKey(key int) bool {
	switch key & 0xFF {
	case 'q', 'Q', keyEsc:
		return key >= 0
	}
	return false
}
