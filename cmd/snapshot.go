package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/config"
	"github.com/quicoa/daheng-camera-class/internal/logging"
	"github.com/quicoa/daheng-camera-class/internal/snapshot"
)

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd() *cobra.Command {
	var snap snapshot.Options

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a frame and save it to an image file",
		Long: `Opens the configured device, reads a number of frames and saves the last one. ` +
			`Color sensors are demosaiced unless --gray is set; the output format follows the file extension.`,
		Args: cobra.NoArgs,
		Run: humacli.WithOptions(func(_ *cobra.Command, _ []string, opts *config.Options) {
			logger := logging.GetLogger("main")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := runSnapshot(ctx, opts, snap)
			if err != nil {
				logger.Error("Snapshot failed", "error", err)
			}
			if code != ExitOK {
				stop()
				os.Exit(code)
			}
		}),
	}

	cmd.Flags().StringVarP(&snap.Path, "output", "o", "snapshot.png", "Output file (.png, .jpg, .bmp, .tif, .gif)")
	cmd.Flags().IntVar(&snap.Frames, "frames", 1, "Frames to read before saving")
	cmd.Flags().IntVar(&snap.Width, "width", 0, "Resize to this width (0 keeps the sensor size)")
	cmd.Flags().IntVar(&snap.Quality, "quality", 90, "JPEG quality (1-100)")
	cmd.Flags().BoolVar(&snap.Gray, "gray", false, "Save the raw gray buffer")
	return cmd
}

func runSnapshot(ctx context.Context, opts *config.Options, snap snapshot.Options) (int, error) {
	durations, err := opts.Durations()
	if err != nil {
		return exitFailure, err
	}
	snap.Timeout = durations.FrameTimeout

	index, err := camera.ParseDeviceIndex(opts.Device)
	if err != nil {
		return ExitOpenFailed, err
	}
	transport, err := NewTransport(opts)
	if err != nil {
		return exitFailure, err
	}
	sess, _, err := NewSession(opts, transport, nil)
	if err != nil {
		return exitFailure, err
	}
	defer func() { _ = sess.Release() }()

	if err := sess.Open(index); err != nil {
		return ExitOpenFailed, fmt.Errorf("open device %d: %w", opts.Device, err)
	}
	if err := sess.StartCapture(); err != nil {
		return ExitStartFailed, fmt.Errorf("start capture: %w", err)
	}

	res, err := snapshot.Capture(ctx, sess, snap)
	switch {
	case errors.Is(err, camera.ErrFrameTimeout):
		return ExitFrameTimeout, err
	case err != nil:
		return exitFailure, err
	}
	fmt.Printf("%s %dx%d frame %d\n", res.Path, res.Width, res.Height, res.FrameID)
	return ExitOK, nil
}
