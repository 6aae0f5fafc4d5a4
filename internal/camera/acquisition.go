package camera

import "fmt"

// StartCapture allocates the frame buffers and starts acquisition. Calling
// it while already capturing is a no-op. On failure no buffers are kept.
func (s *Session) StartCapture() error {
	if !s.opened {
		return ErrNotOpened
	}
	if s.capturing {
		return nil
	}

	s.grayBuffer = make([]byte, s.config.ImageSize)
	s.colorBuffer = make([]byte, s.config.ImageSize*3)
	s.frame = FrameDescriptor{Buffer: s.grayBuffer}

	if err := s.transport.SendCommand(s.handle, CommandAcquisitionStart); err != nil {
		s.releaseBuffers()
		s.logger.Error("Failed to start acquisition", "error", err, "status", int32(StatusOf(err)))
		return fmt.Errorf("start acquisition: %w", err)
	}

	s.capturing = true
	s.setState(StateCapturing)
	s.logger.Info("Capture started", "gray_bytes", len(s.grayBuffer), "color_bytes", len(s.colorBuffer))
	return nil
}

// StopCapture stops acquisition and releases the buffers. The buffers are
// released even when the stop command fails; its error is still returned.
// Stopping a session that is not capturing is a no-op.
func (s *Session) StopCapture() error {
	if !s.capturing {
		return nil
	}

	err := s.transport.SendCommand(s.handle, CommandAcquisitionStop)
	if err != nil {
		s.logger.Warn("Acquisition stop command failed", "error", err, "status", int32(StatusOf(err)))
	}

	s.releaseBuffers()
	s.capturing = false
	s.setState(StateOpened)
	s.logger.Info("Capture stopped")

	if err != nil {
		return fmt.Errorf("stop acquisition: %w", err)
	}
	return nil
}

// releaseBuffers drops both buffers and invalidates outstanding views.
func (s *Session) releaseBuffers() {
	s.grayBuffer = nil
	s.colorBuffer = nil
	s.frame = FrameDescriptor{}
	s.generation++
}
