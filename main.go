package main

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/quicoa/daheng-camera-class/cmd"
	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/config"
	"github.com/quicoa/daheng-camera-class/internal/display"
	"github.com/quicoa/daheng-camera-class/internal/events"
	"github.com/quicoa/daheng-camera-class/internal/led"
	"github.com/quicoa/daheng-camera-class/internal/logging"
	"github.com/quicoa/daheng-camera-class/internal/metrics"
	"github.com/quicoa/daheng-camera-class/internal/server"
	"github.com/quicoa/daheng-camera-class/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	exitCode := cmd.ExitOK

	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *config.Options) {
		// Runs for every subcommand too; keep it to config and logging.
		if err := config.LoadConfig(opts, cli.Root()); err != nil {
			slog.Error("Failed to load config", "path", opts.Config, "error", err)
			os.Exit(1)
		}
		if err := opts.Validate(); err != nil {
			slog.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}
		logging.Initialize(opts.LoggingConfig())

		logger := logging.GetLogger("main")
		done := make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			defer close(done)
			exitCode = runViewer(ctx, opts, logger)
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			select {
			case <-done:
			case <-time.After(shutdownTimeout):
				logger.Warn("Viewer did not stop in time")
			}
		})
	})

	cli.Root().Use = "gxcam"
	cli.Root().Short = "Machine-vision camera viewer"
	cli.Root().AddCommand(cmd.CreateListCmd())
	cli.Root().AddCommand(cmd.CreateSnapshotCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
	os.Exit(exitCode)
}

// runViewer wires the optional services around a session and runs the
// viewer until it exits or ctx is canceled.
func runViewer(ctx context.Context, opts *config.Options, logger *slog.Logger) int {
	durations, err := opts.Durations()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return cmd.ExitOpenFailed
	}
	index, err := camera.ParseDeviceIndex(opts.Device)
	if err != nil {
		logger.Error("Invalid device", "error", err)
		return cmd.ExitOpenFailed
	}

	bus := events.New()

	if opts.MetricsEnabled {
		recorder := metrics.NewRecorder(bus)
		recorder.Start()
		defer recorder.Stop()
	}

	if opts.LedEnabled {
		controller := led.New(led.Options{
			Backend:     opts.LedBackend,
			Name:        opts.LedName,
			Pin:         opts.LedGpioPin,
			BlinkPeriod: durations.LedBlinkPeriod,
		}, logging.GetLogger("led"))
		ledManager := led.NewManager(controller, bus, logging.GetLogger("led"))
		ledManager.Start()
		defer ledManager.Stop()
	}

	if stopTelemetry := startTelemetry(opts, bus); stopTelemetry != nil {
		defer stopTelemetry()
	}

	if opts.Config != "" {
		if _, statErr := os.Stat(opts.Config); statErr == nil {
			watcher, watchErr := config.WatchLogging(opts.Config, logging.GetLogger("config"))
			if watchErr != nil {
				logger.Warn("Config hot reload disabled", "error", watchErr)
			} else {
				defer func() { _ = watcher.Stop() }()
			}
		}
	}

	transport, err := cmd.NewTransport(opts)
	if err != nil {
		logger.Error("Invalid transport configuration", "error", err)
		return cmd.ExitOpenFailed
	}
	sess, lib, err := cmd.NewSession(opts, transport, bus)
	if err != nil {
		logger.Error("Failed to initialize camera library", "transport", opts.TransportKind, "error", err)
		return cmd.ExitOpenFailed
	}

	if opts.ServerListen != "" {
		srvOpts := server.Options{Session: sess, Devices: lib}
		if opts.MetricsEnabled {
			srvOpts.MetricsHandler = metrics.Handler()
		}
		srv := server.New(srvOpts)
		if startErr := srv.Start(opts.ServerListen); startErr != nil {
			logger.Warn("Status server disabled", "listen", opts.ServerListen, "error", startErr)
		} else {
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if stopErr := srv.Stop(stopCtx); stopErr != nil {
					logger.Warn("Status server shutdown failed", "error", stopErr)
				}
			}()
		}
	}

	// HighGUI calls must stay on one OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	disp := cmd.Headless()
	if opts.DisplayEnabled {
		disp = display.Open(opts.DisplayTitle)
	}
	defer func() { _ = disp.Close() }()

	code := cmd.RunViewer(ctx, sess, disp, cmd.ViewerOptions{
		Device:       index,
		FrameTimeout: durations.FrameTimeout,
		OnCapturing: func() {
			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("sd_notify failed", "error", notifyErr)
			}
		},
	}, logger)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	return code
}

// startTelemetry connects the configured sinks and starts the bridge. It
// returns nil when telemetry is disabled.
func startTelemetry(opts *config.Options, bus *events.Bus) func() {
	logger := logging.GetLogger("telemetry")

	var embedded *telemetry.EmbeddedServer
	natsURL := opts.TelemetryNatsURL
	if opts.TelemetryNatsEmbedded {
		embedded = telemetry.NewEmbeddedServer(telemetry.ServerOptions{
			Port:   opts.TelemetryNatsPort,
			Logger: logger,
		})
		if err := embedded.Start(); err != nil {
			logger.Warn("Embedded NATS server disabled", "error", err)
			embedded = nil
		} else if natsURL == "" {
			natsURL = embedded.ClientURL()
		}
	}

	var sinks []telemetry.Sink
	if natsURL != "" {
		status := func() any { return metrics.GetAllDeviceMetrics() }
		natsSink := telemetry.NewNATSSink(natsURL, opts.TelemetryPrefix, status, logger)
		// Connect failures leave a no-op sink.
		_ = natsSink.Connect()
		sinks = append(sinks, natsSink)
	}
	if opts.TelemetryMqttBroker != "" {
		mqttSink := telemetry.NewMQTTSink(telemetry.MQTTOptions{
			Broker:   opts.TelemetryMqttBroker,
			ClientID: opts.TelemetryMqttClientID,
		}, logger)
		if err := mqttSink.Connect(5 * time.Second); err != nil {
			logger.Warn("MQTT telemetry unavailable", "broker", opts.TelemetryMqttBroker, "error", err)
		}
		sinks = append(sinks, mqttSink)
	}

	if len(sinks) == 0 {
		if embedded != nil {
			return embedded.Stop
		}
		return nil
	}

	bridge := telemetry.NewBridge(bus, telemetry.BridgeOptions{
		Prefix:        opts.TelemetryPrefix,
		FrameInterval: time.Second,
	}, logger, sinks...)
	bridge.Start()

	return func() {
		bridge.Stop()
		if embedded != nil {
			embedded.Stop()
		}
	}
}
