// Package snapshot saves frames from a capturing session to image files.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/logging"
)

// Options controls a capture.
type Options struct {
	// Path is the output file; the extension selects the encoder.
	Path string
	// Frames to read before saving; the last one is kept. Defaults to 1.
	Frames int
	// Timeout bounds each frame wait. Zero waits until ctx is done.
	Timeout time.Duration
	// Width resizes to this width keeping the aspect ratio; zero keeps
	// the sensor size.
	Width int
	// Quality is the JPEG quality, 1-100.
	Quality int
	// Gray saves the raw gray buffer even on color sensors.
	Gray bool
}

// Result describes a saved snapshot.
type Result struct {
	Path     string
	Width    int
	Height   int
	Channels int
	FrameID  uint64
}

// Source is what Capture needs from a session.
type Source interface {
	IsCapturing() bool
	SupportsColor() bool
	UpdateFrame(ctx context.Context) error
	GrayFrame() camera.FrameView
	ColorFrameErr() (camera.FrameView, error)
}

var supportedExt = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tif": true, ".tiff": true, ".gif": true}

// Capture reads frames from src and writes the last one to opts.Path.
// Color sensors are saved demosaiced unless opts.Gray is set.
func Capture(ctx context.Context, src Source, opts Options) (Result, error) {
	logger := logging.GetLogger("snapshot")

	ext := strings.ToLower(filepath.Ext(opts.Path))
	if !supportedExt[ext] {
		return Result{}, fmt.Errorf("unsupported snapshot format %q", ext)
	}
	if !src.IsCapturing() {
		return Result{}, camera.ErrNotCapturing
	}

	frames := opts.Frames
	if frames < 1 {
		frames = 1
	}
	for i := 0; i < frames; i++ {
		if err := readFrame(ctx, src, opts.Timeout); err != nil {
			return Result{}, fmt.Errorf("frame %d: %w", i+1, err)
		}
	}

	view, err := pickView(src, opts.Gray)
	if err != nil {
		return Result{}, err
	}

	img, err := view.Image()
	if err != nil {
		return Result{}, fmt.Errorf("copy frame: %w", err)
	}
	img = resize(img, opts.Width)

	var encode []imaging.EncodeOption
	if opts.Quality > 0 {
		encode = append(encode, imaging.JPEGQuality(opts.Quality))
	}
	if err := imaging.Save(img, opts.Path, encode...); err != nil {
		return Result{}, fmt.Errorf("save %s: %w", opts.Path, err)
	}

	bounds := img.Bounds()
	res := Result{
		Path:     opts.Path,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: view.Channels,
		FrameID:  view.FrameID,
	}
	logger.Info("Snapshot saved",
		"path", res.Path,
		"width", res.Width,
		"height", res.Height,
		"channels", res.Channels,
		"frame_id", res.FrameID)
	return res, nil
}

func readFrame(ctx context.Context, src Source, timeout time.Duration) error {
	if timeout <= 0 {
		return src.UpdateFrame(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return src.UpdateFrame(ctx)
}

func pickView(src Source, gray bool) (camera.FrameView, error) {
	if gray || !src.SupportsColor() {
		return src.GrayFrame(), nil
	}
	view, err := src.ColorFrameErr()
	if err != nil {
		if errors.Is(err, camera.ErrUnsupportedPixelFormat) || errors.Is(err, camera.ErrInvalidPixelFormat) {
			// Not demosaicable; save the raw plane, 16-bit for 10/12-bit sensors.
			return src.GrayFrame(), nil
		}
		return camera.FrameView{}, fmt.Errorf("convert to color: %w", err)
	}
	return view, nil
}

func resize(img image.Image, width int) image.Image {
	if width <= 0 || width == img.Bounds().Dx() {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}
