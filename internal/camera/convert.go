package camera

import (
	"fmt"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/events"
)

// ConvertToColor demosaics the current frame into the color buffer. Only
// the 8-bit Bayer formats are converted; 10/12-bit Bayer fails with
// ErrUnsupportedPixelFormat and anything else with ErrInvalidPixelFormat.
// The session's filter pattern, interpolation and flip settings are used.
// On failure the color buffer keeps its previous content.
func (s *Session) ConvertToColor() error {
	if !s.capturing {
		return ErrNotCapturing
	}

	format := s.frame.PixelFormat
	var err error
	switch {
	case format.IsBayer8():
		err = s.convertRaw8()
	case format.IsBayerHighBit():
		err = fmt.Errorf("%w: %s", ErrUnsupportedPixelFormat, format)
	default:
		err = fmt.Errorf("%w: %s", ErrInvalidPixelFormat, format)
	}

	if err != nil {
		s.conversionFailed(format, err)
		return err
	}
	return nil
}

func (s *Session) convertRaw8() error {
	if s.kernel == nil {
		return ErrNoKernel
	}

	w, h := s.frame.Width, s.frame.Height
	pixels := w * h
	if w <= 0 || h <= 0 || pixels > len(s.grayBuffer) || pixels*3 > len(s.colorBuffer) {
		return fmt.Errorf("%w: %dx%d with %d byte payload", ErrFrameGeometry, w, h, len(s.grayBuffer))
	}

	err := s.kernel.Raw8ToRGB24(s.grayBuffer[:pixels], s.colorBuffer[:pixels*3], w, h,
		s.interpolation, s.config.FilterPattern, s.flip)
	if err != nil {
		return fmt.Errorf("raw8 to rgb24: %w", err)
	}
	return nil
}

// conversionFailed publishes every failure but logs through the session
// limiter so a stream of bad frames cannot flood the log.
func (s *Session) conversionFailed(format PixelFormat, err error) {
	s.publish(events.ConversionFailedEvent{
		SessionID:   s.id,
		DeviceIndex: int(s.index),
		PixelFormat: format.String(),
		Reason:      err.Error(),
		Timestamp:   time.Now(),
	})

	if !s.convLimiter.Allow() {
		s.convSkipped++
		return
	}
	s.logger.Warn("Color conversion failed",
		"pixel_format", format.String(),
		"error", err,
		"suppressed", s.convSkipped)
	s.convSkipped = 0
}

// ColorFrame converts the current frame and returns a view of the color
// buffer. The conversion result is ignored: after a failure the view shows
// whatever the buffer held before. Use ColorFrameErr to see the error.
func (s *Session) ColorFrame() FrameView {
	view, _ := s.ColorFrameErr()
	return view
}

// ColorFrameErr is ColorFrame that also reports the conversion error.
func (s *Session) ColorFrameErr() (FrameView, error) {
	if !s.capturing {
		return FrameView{}, ErrNotCapturing
	}
	err := s.ConvertToColor()
	return s.newView(s.colorBuffer, 3), err
}
