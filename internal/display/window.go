// Package display shows frames in a HighGUI window.
package display

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/logging"
)

// ErrClosed is returned by Show after the window was closed.
var ErrClosed = errors.New("display window closed")

// Window is a HighGUI window. All methods must be called from the goroutine
// that created it.
type Window struct {
	win    *gocv.Window
	title  string
	frame  gocv.Mat
	logger *slog.Logger
	closed bool
}

// Open creates a window with the given title.
func Open(title string) *Window {
	return &Window{
		win:    gocv.NewWindow(title),
		title:  title,
		frame:  gocv.NewMat(),
		logger: logging.GetLogger("display"),
	}
}

func matType(channels, bytesPerSample int) (gocv.MatType, error) {
	switch {
	case channels == 1 && bytesPerSample == 2:
		return gocv.MatTypeCV16UC1, nil
	case channels == 1:
		return gocv.MatTypeCV8UC1, nil
	case channels == 3 && bytesPerSample <= 1:
		return gocv.MatTypeCV8UC3, nil
	default:
		return 0, fmt.Errorf("cannot display %d channels of %d bytes", channels, bytesPerSample)
	}
}

// scaleTo8 maps samples of the given bit depth onto 0-255.
func scaleTo8(bitDepth int) float32 {
	if bitDepth <= 8 {
		return 1
	}
	return 1 / float32(int(1)<<(bitDepth-8))
}

// Show draws a view. Color views hold RGB and are swapped to BGR for
// HighGUI.
func (w *Window) Show(view camera.FrameView) error {
	if w.closed {
		return ErrClosed
	}
	if err := view.Err(); err != nil {
		return err
	}

	typ, err := matType(view.Channels, view.BytesPerSample)
	if err != nil {
		return err
	}
	data := view.Bytes()
	need := view.Stride() * view.Height
	if len(data) < need {
		return fmt.Errorf("view holds %d bytes, need %d", len(data), need)
	}

	mat, err := gocv.NewMatFromBytes(view.Height, view.Width, typ, data[:need])
	if err != nil {
		return fmt.Errorf("wrap frame: %w", err)
	}
	defer mat.Close()

	switch {
	case view.Channels == 3:
		gocv.CvtColor(mat, &w.frame, gocv.ColorRGBToBGR)
	case view.BytesPerSample == 2:
		mat.ConvertToWithParams(&w.frame, gocv.MatTypeCV8U, scaleTo8(view.PixelFormat.BitDepth()), 0)
	default:
		mat.CopyTo(&w.frame)
	}
	w.win.IMShow(w.frame)
	return nil
}

// WaitKey pumps window events for up to d and reports the key pressed, if
// any. It also reports a press when the user closed the window.
func (w *Window) WaitKey(d time.Duration) (int, bool) {
	if w.closed {
		return 0, true
	}
	ms := int(d / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	key := w.win.WaitKey(ms)
	if key >= 0 {
		w.logger.Debug("Key pressed", "window", w.title, "key", key)
		return key, true
	}
	if !w.win.IsOpen() {
		return 0, true
	}
	return 0, false
}

// Close destroys the window. It is safe to call more than once.
func (w *Window) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.frame.Close()
	return w.win.Close()
}
