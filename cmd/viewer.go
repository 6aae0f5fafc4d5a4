package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/camera"
)

// Exit codes of the viewer.
const (
	ExitOK           = 0
	ExitOpenFailed   = 1
	ExitStartFailed  = 2
	ExitInvalidFrame = 3
	ExitFrameTimeout = 4

	// exitFailure shares the open-failed code for errors outside the
	// capture sequence.
	exitFailure = 1
)

// Display shows frames. *display.Window satisfies it.
type Display interface {
	Show(view camera.FrameView) error
	// WaitKey pumps events for up to d and reports whether the user asked
	// to quit.
	WaitKey(d time.Duration) (int, bool)
	Close() error
}

// ViewerSession is the part of *camera.Session the viewer drives.
type ViewerSession interface {
	Open(index camera.DeviceIndex) error
	StartCapture() error
	StopCapture() error
	Close() error
	Release() error
	UpdateFrame(ctx context.Context) error
	SupportsColor() bool
	GrayFrame() camera.FrameView
	ColorFrameErr() (camera.FrameView, error)
}

// ViewerOptions configures RunViewer.
type ViewerOptions struct {
	Device camera.DeviceIndex
	// FrameTimeout bounds each frame wait. Zero waits until ctx is done.
	FrameTimeout time.Duration
	// KeyWait is how long each iteration pumps display events.
	KeyWait time.Duration
	// OnCapturing runs once the first valid frame is in.
	OnCapturing func()
}

// RunViewer opens the device, shows frames until a key press or ctx is
// done and returns the process exit code. The session is always stopped,
// closed and released before returning; the display is left to the caller.
func RunViewer(ctx context.Context, sess ViewerSession, disp Display, opts ViewerOptions, logger *slog.Logger) int {
	if opts.KeyWait <= 0 {
		opts.KeyWait = 10 * time.Millisecond
	}

	defer func() {
		if err := sess.StopCapture(); err != nil {
			logger.Warn("Stop capture failed", "error", err)
		}
		if err := sess.Close(); err != nil {
			logger.Warn("Close failed", "error", err)
		}
		if err := sess.Release(); err != nil {
			logger.Warn("Release failed", "error", err)
		}
	}()

	if err := sess.Open(opts.Device); err != nil {
		logger.Error("Failed to open camera", "device", int(opts.Device), "error", err)
		return ExitOpenFailed
	}
	if err := sess.StartCapture(); err != nil {
		logger.Error("Failed to start capture", "device", int(opts.Device), "error", err)
		return ExitStartFailed
	}

	if err := nextFrame(ctx, sess, opts.FrameTimeout); err != nil {
		if errors.Is(err, context.Canceled) {
			return ExitOK
		}
		logger.Error("No frame received", "timeout", opts.FrameTimeout, "error", err)
		return ExitFrameTimeout
	}

	view := currentView(sess, logger)
	if view.Width <= 0 || view.Height <= 0 {
		logger.Error("Invalid frame dimensions", "width", view.Width, "height", view.Height)
		return ExitInvalidFrame
	}
	logger.Info("Capturing",
		"width", view.Width,
		"height", view.Height,
		"channels", view.Channels,
		"pixel_format", view.PixelFormat.String())
	if opts.OnCapturing != nil {
		opts.OnCapturing()
	}

	for {
		if err := disp.Show(view); err != nil {
			logger.Warn("Failed to show frame", "frame_id", view.FrameID, "error", err)
		}
		if _, quit := disp.WaitKey(opts.KeyWait); quit {
			logger.Info("Viewer closed by user")
			return ExitOK
		}
		if ctx.Err() != nil {
			return ExitOK
		}

		if err := nextFrame(ctx, sess, opts.FrameTimeout); err != nil {
			if ctx.Err() != nil {
				return ExitOK
			}
			logger.Warn("Frame wait failed", "error", err)
			continue
		}
		view = currentView(sess, logger)
	}
}

func nextFrame(ctx context.Context, sess ViewerSession, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return sess.UpdateFrame(ctx)
}

// currentView converts color frames and falls back to the raw buffer when
// conversion fails, so the viewer keeps showing something.
func currentView(sess ViewerSession, logger *slog.Logger) camera.FrameView {
	if !sess.SupportsColor() {
		return sess.GrayFrame()
	}
	view, err := sess.ColorFrameErr()
	if err != nil {
		logger.Debug("Showing raw frame", "error", err)
		return sess.GrayFrame()
	}
	return view
}

type headless struct{}

// Headless returns a Display that draws nothing and never reports a key.
func Headless() Display { return headless{} }

func (headless) Show(camera.FrameView) error { return nil }

func (headless) WaitKey(d time.Duration) (int, bool) {
	time.Sleep(d)
	return 0, false
}

func (headless) Close() error { return nil }
