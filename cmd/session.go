// Package cmd holds the gxcam subcommands and the viewer they share with
// the root command.
package cmd

import (
	"fmt"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/config"
	"github.com/quicoa/daheng-camera-class/internal/kernel"
	"github.com/quicoa/daheng-camera-class/internal/logging"
	"github.com/quicoa/daheng-camera-class/internal/transport/sim"
	"github.com/quicoa/daheng-camera-class/internal/transport/v4l2"
)

// NewTransport builds the transport named by opts.TransportKind.
func NewTransport(opts *config.Options) (camera.Transport, error) {
	logger := logging.GetLogger("transport")
	switch opts.TransportKind {
	case "sim":
		devices, err := simDevices(opts)
		if err != nil {
			return nil, err
		}
		return sim.New(devices, logger), nil
	case "v4l2":
		return v4l2.New(v4l2.Options{
			DevicePattern: opts.TransportDevicePattern,
			Width:         opts.TransportWidth,
			Height:        opts.TransportHeight,
			FourCC:        opts.TransportFourcc,
			FPS:           opts.TransportFPS,
			Buffers:       opts.TransportBuffers,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.TransportKind)
	}
}

func simDevices(opts *config.Options) ([]sim.DeviceConfig, error) {
	format, err := camera.ParsePixelFormat(opts.SimPixelFormat)
	if err != nil {
		return nil, fmt.Errorf("sim.pixel_format: %w", err)
	}
	if opts.SimWidth <= 0 || opts.SimHeight <= 0 {
		return nil, fmt.Errorf("sim: invalid size %dx%d", opts.SimWidth, opts.SimHeight)
	}
	interval := time.Duration(0)
	if opts.SimFPS > 0 {
		interval = time.Second / time.Duration(opts.SimFPS)
	}

	devices := make([]sim.DeviceConfig, 0, opts.SimDevices)
	for i := 1; i <= opts.SimDevices; i++ {
		devices = append(devices, sim.DeviceConfig{
			Name:          fmt.Sprintf("Simulated %s %dx%d", format, opts.SimWidth, opts.SimHeight),
			Serial:        fmt.Sprintf("SIM%04d", i),
			Width:         opts.SimWidth,
			Height:        opts.SimHeight,
			PixelFormat:   format,
			FrameInterval: interval,
		})
	}
	return devices, nil
}

// NewSession acquires the transport library and creates a session
// configured from opts. pub may be nil. Release on the session drops the
// library reference.
func NewSession(opts *config.Options, transport camera.Transport, pub camera.Publisher) (*camera.Session, *camera.Library, error) {
	durations, err := opts.Durations()
	if err != nil {
		return nil, nil, err
	}
	mode, err := camera.ParseInterpolation(opts.Interpolation)
	if err != nil {
		return nil, nil, fmt.Errorf("camera.interpolation: %w", err)
	}

	lib, err := camera.AcquireLibrary(transport)
	if err != nil {
		return nil, nil, err
	}

	sessionOpts := []camera.Option{
		camera.WithInterpolation(mode),
		camera.WithFlip(opts.Flip),
		camera.WithPollTimeout(durations.PollTimeout),
		camera.WithConversionLogLimit(durations.FailureLogEvery, opts.CaptureFailureLogBurst),
	}
	if pub != nil {
		sessionOpts = append(sessionOpts, camera.WithPublisher(pub))
	}

	sess, err := camera.NewSession(lib, kernel.NewOpenCV(), sessionOpts...)
	if err != nil {
		_ = lib.Release()
		return nil, nil, err
	}
	return sess, lib, nil
}
