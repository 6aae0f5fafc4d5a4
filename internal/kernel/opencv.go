package kernel

import (
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/logging"
)

// OpenCV implements camera.Kernel with cv::cvtColor. It is stateless and
// safe for concurrent use.
type OpenCV struct {
	logger *slog.Logger
}

// NewOpenCV creates the OpenCV demosaic kernel.
func NewOpenCV() *OpenCV {
	return &OpenCV{logger: logging.GetLogger("kernel")}
}

// Raw8ToRGB24 implements camera.Kernel. A flip mirrors the image vertically.
func (k *OpenCV) Raw8ToRGB24(src, dst []byte, width, height int, mode camera.Interpolation, pattern camera.ColorFilter, flip bool) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid size %dx%d", width, height)
	}
	pixels := width * height
	if len(src) < pixels {
		return fmt.Errorf("source holds %d bytes, need %d", len(src), pixels)
	}
	if len(dst) < pixels*3 {
		return fmt.Errorf("destination holds %d bytes, need %d", len(dst), pixels*3)
	}

	code, err := conversionCode(mode, pattern)
	if err != nil {
		return err
	}

	raw, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, src[:pixels])
	if err != nil {
		return fmt.Errorf("wrap raw frame: %w", err)
	}
	defer raw.Close()

	rgb := gocv.NewMat()
	defer rgb.Close()

	gocv.CvtColor(raw, &rgb, code)
	if rgb.Empty() {
		return fmt.Errorf("cvtColor %dx%d %s produced no output", width, height, pattern)
	}
	if flip {
		gocv.Flip(rgb, &rgb, 0)
	}

	out := rgb.ToBytes()
	if len(out) != pixels*3 {
		return fmt.Errorf("converted frame has %d bytes, want %d", len(out), pixels*3)
	}
	copy(dst, out)

	k.logger.Debug("Demosaiced frame",
		"width", width,
		"height", height,
		"pattern", pattern.String(),
		"interpolation", mode.String(),
		"flip", flip)
	return nil
}
