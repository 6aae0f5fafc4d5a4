package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/quicoa/daheng-camera-class/internal/events"
	"github.com/quicoa/daheng-camera-class/internal/logging"
)

const (
	defaultPollTimeout      = 100 * time.Millisecond
	defaultConversionLogGap = 5 * time.Second
)

// Session controls one camera device. It is not safe for concurrent use
// except for State and ID.
type Session struct {
	id        string
	lib       *Library
	transport Transport
	kernel    Kernel
	logger    *slog.Logger
	publisher Publisher

	pollTimeout   time.Duration
	interpolation Interpolation
	flip          bool
	convLimiter   *rate.Limiter
	convSkipped   int

	state    atomic.Value
	released bool

	index     DeviceIndex
	handle    Handle
	opened    bool
	capturing bool
	config    DeviceConfig

	// orphan is a handle whose rollback close failed; Close retries it.
	orphan Handle

	frame       FrameDescriptor
	grayBuffer  []byte
	colorBuffer []byte
	generation  uint64
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Defaults to the "camera" module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher sets where lifecycle events are published.
func WithPublisher(p Publisher) Option {
	return func(s *Session) {
		s.publisher = p
	}
}

// WithPollTimeout sets the per-attempt wait passed to Transport.GetImage.
// Zero polls without waiting.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.pollTimeout = d
		}
	}
}

// WithInterpolation selects the demosaic algorithm. Default is neighbour.
func WithInterpolation(mode Interpolation) Option {
	return func(s *Session) {
		s.interpolation = mode
	}
}

// WithFlip requests vertically flipped color output.
func WithFlip(flip bool) Option {
	return func(s *Session) {
		s.flip = flip
	}
}

// WithConversionLogLimit allows burst conversion-failure log records and
// then one per interval.
func WithConversionLogLimit(interval time.Duration, burst int) Option {
	return func(s *Session) {
		if burst < 1 {
			burst = 1
		}
		limit := rate.Inf
		if interval > 0 {
			limit = rate.Every(interval)
		}
		s.convLimiter = rate.NewLimiter(limit, burst)
	}
}

// NewSession creates a session on top of an acquired library. kernel may be
// nil for monochrome cameras; color conversion then fails with ErrNoKernel.
func NewSession(lib *Library, kernel Kernel, opts ...Option) (*Session, error) {
	if lib == nil {
		return nil, errors.New("new session: nil library")
	}
	if lib.Released() {
		return nil, ErrLibraryReleased
	}

	s := &Session{
		id:          uuid.NewString(),
		lib:         lib,
		transport:   lib.Transport(),
		kernel:      kernel,
		logger:      logging.GetLogger("camera"),
		pollTimeout: defaultPollTimeout,
		convLimiter: rate.NewLimiter(rate.Every(defaultConversionLogGap), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id)
	s.state.Store(StateTransportReady)

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state. Safe for concurrent use.
func (s *Session) State() State {
	if st, ok := s.state.Load().(State); ok {
		return st
	}
	return StateUninitialized
}

// IsOpened reports whether a device handle is held.
func (s *Session) IsOpened() bool { return s.opened }

// IsCapturing reports whether acquisition is running.
func (s *Session) IsCapturing() bool { return s.capturing }

// DeviceIndex returns the index of the open (or last opened) device.
func (s *Session) DeviceIndex() DeviceIndex { return s.index }

// Open opens the device at index exclusively and configures it. A device
// that fails configuration is closed again before Open returns.
func (s *Session) Open(index DeviceIndex) error {
	if s.released {
		return ErrSessionReleased
	}
	if !index.Valid() {
		return fmt.Errorf("%w: %d (allowed 0-%d)", ErrInvalidDeviceIndex, index, MaxDeviceIndex)
	}
	if s.opened {
		if index == s.index {
			return nil
		}
		return fmt.Errorf("%w: device %d", ErrAlreadyOpened, s.index)
	}

	logger := s.logger.With("index", int(index))

	if err := s.closeOrphan(); err != nil {
		return fmt.Errorf("open device %d: %w", index, err)
	}

	handle, err := s.transport.OpenDevice(OpenParams{
		Content: index.openContent(),
		Mode:    OpenByIndex,
		Access:  AccessExclusive,
	})
	if err != nil {
		logger.Error("Failed to open device", "error", err, "status", int32(StatusOf(err)))
		return fmt.Errorf("open device %d: %w", index, err)
	}

	cfg, err := configure(s.transport, handle)
	if err != nil {
		logger.Error("Device configuration failed", "error", err, "status", int32(StatusOf(err)))
		if closeErr := s.transport.CloseDevice(handle); closeErr != nil {
			logger.Warn("Failed to close device after configuration error", "error", closeErr)
			s.orphan = handle
			return fmt.Errorf("configure device %d: %w", index, errors.Join(err, closeErr))
		}
		return fmt.Errorf("configure device %d: %w", index, err)
	}

	s.index = index
	s.handle = handle
	s.config = cfg
	s.opened = true
	s.setState(StateOpened)

	logger.Info("Device opened",
		"color", cfg.SupportsColor,
		"filter", cfg.FilterPattern.String(),
		"channels", cfg.Channels,
		"payload_size", cfg.ImageSize)
	return nil
}

// Close stops any running capture and closes the device handle. Closing a
// session without an open device only retries a handle left behind by a
// failed Open. If the transport refuses to close, the session stays opened.
func (s *Session) Close() error {
	if !s.opened {
		return s.closeOrphan()
	}

	if s.capturing {
		if err := s.StopCapture(); err != nil {
			s.logger.Warn("Stop capture before close failed", "error", err)
		}
	}

	if err := s.transport.CloseDevice(s.handle); err != nil {
		s.logger.Error("Failed to close device", "index", int(s.index), "error", err, "status", int32(StatusOf(err)))
		return fmt.Errorf("close device %d: %w", s.index, err)
	}

	s.opened = false
	s.handle = 0
	s.setState(StateTransportReady)
	s.logger.Info("Device closed", "index", int(s.index))
	return nil
}

func (s *Session) closeOrphan() error {
	if s.orphan == 0 {
		return nil
	}
	if err := s.transport.CloseDevice(s.orphan); err != nil {
		s.logger.Error("Failed to close device left by a failed open", "error", err, "status", int32(StatusOf(err)))
		return fmt.Errorf("close stale device handle: %w", err)
	}
	s.orphan = 0
	return nil
}

// Release closes the device if needed and drops the library reference. The
// session cannot be reopened afterwards.
func (s *Session) Release() error {
	if s.released {
		return nil
	}

	var errs []error
	if err := s.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.lib.Release(); err != nil {
		errs = append(errs, err)
	}

	s.released = true
	s.setState(StateTerminated)
	return errors.Join(errs...)
}

func (s *Session) setState(to State) {
	from := s.State()
	s.state.Store(to)
	if from == to {
		return
	}

	s.logger.Debug("Session state changed", "from", string(from), "to", string(to))

	s.publish(events.SessionStateChangedEvent{
		SessionID:   s.id,
		DeviceIndex: int(s.index),
		From:        string(from),
		To:          string(to),
		Timestamp:   time.Now(),
	})
}

func (s *Session) publish(ev events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}
