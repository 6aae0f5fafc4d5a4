package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/events"
)

// UpdateFrame polls the transport until a frame is written into the gray
// buffer or ctx ends. With context.Background it waits indefinitely. Each
// attempt waits at most the configured poll timeout inside the transport.
//
// A deadline yields an error matching ErrFrameTimeout; cancellation yields
// one matching context.Canceled. Views taken before a successful call go
// stale.
func (s *Session) UpdateFrame(ctx context.Context) error {
	if !s.capturing {
		return ErrNotCapturing
	}

	start := time.Now()
	attempts := 0
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return s.waitError(err, attempts, lastErr)
		}

		attempts++
		s.frame.Buffer = s.grayBuffer
		err := s.transport.GetImage(s.handle, &s.frame, s.pollTimeout)
		if err == nil {
			break
		}
		if lastErr == nil && !errors.Is(err, ErrFrameTimeout) {
			s.logger.Debug("Frame poll failed, retrying", "error", err, "status", int32(StatusOf(err)))
		}
		lastErr = err
	}

	s.generation++
	wait := time.Since(start)

	s.publish(events.FrameAcquiredEvent{
		SessionID:   s.id,
		DeviceIndex: int(s.index),
		FrameID:     s.frame.FrameID,
		Width:       s.frame.Width,
		Height:      s.frame.Height,
		PixelFormat: s.frame.PixelFormat.String(),
		Attempts:    attempts,
		Wait:        wait,
		Timestamp:   time.Now(),
	})
	return nil
}

// UpdateFrameTimeout is UpdateFrame bounded by timeout.
func (s *Session) UpdateFrameTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.UpdateFrame(ctx)
}

func (s *Session) waitError(ctxErr error, attempts int, lastErr error) error {
	if lastErr == nil {
		lastErr = errors.New("no frame delivered")
	}
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %d attempts (last: %v): %w", ErrFrameTimeout, attempts, lastErr, ctxErr)
	}
	return fmt.Errorf("frame wait aborted after %d attempts (last: %v): %w", attempts, lastErr, ctxErr)
}

// Width of the most recent frame.
func (s *Session) Width() int { return s.frame.Width }

// Height of the most recent frame.
func (s *Session) Height() int { return s.frame.Height }

// PixelFormat of the most recent frame.
func (s *Session) PixelFormat() PixelFormat { return s.frame.PixelFormat }

// FrameID of the most recent frame as reported by the transport.
func (s *Session) FrameID() uint64 { return s.frame.FrameID }

// GrayFrame returns a view of the raw frame buffer, or the zero view when
// not capturing.
func (s *Session) GrayFrame() FrameView {
	if !s.capturing {
		return FrameView{}
	}
	return s.newView(s.grayBuffer, 1)
}
