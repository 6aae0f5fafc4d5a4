package config

import (
	"fmt"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/logging"
)

// Options is the flat gxcam option set. humacli turns every field into a
// flag; LoadConfig layers the file and environment underneath.
type Options struct {
	Config string `help:"Path to configuration file (TOML, or YAML by extension)" short:"c" default:"gxcam.toml"`

	// Camera settings
	Device        int    `help:"Device index (0-9)" short:"d" default:"0" toml:"camera.device" env:"CAMERA_DEVICE"`
	Interpolation string `help:"Demosaic interpolation (neighbour, adaptive, vng)" default:"neighbour" toml:"camera.interpolation" env:"CAMERA_INTERPOLATION"`
	Flip          bool   `help:"Flip converted frames vertically" default:"false" toml:"camera.flip" env:"CAMERA_FLIP"`

	// Capture settings
	CapturePollTimeout     string `help:"Per-attempt frame poll timeout" default:"100ms" toml:"capture.poll_timeout" env:"CAPTURE_POLL_TIMEOUT"`
	CaptureFrameTimeout    string `help:"Wait for the first frame before giving up" default:"5s" toml:"capture.frame_timeout" env:"CAPTURE_FRAME_TIMEOUT"`
	CaptureFailureLogEvery string `help:"Minimum interval between conversion failure logs" default:"5s" toml:"capture.failure_log_every" env:"CAPTURE_FAILURE_LOG_EVERY"`
	CaptureFailureLogBurst int    `help:"Conversion failure log burst" default:"1" toml:"capture.failure_log_burst" env:"CAPTURE_FAILURE_LOG_BURST"`

	// Transport settings
	TransportKind          string `help:"Transport backend (v4l2, sim)" default:"v4l2" toml:"transport.kind" env:"TRANSPORT_KIND"`
	TransportDevicePattern string `help:"Glob of V4L2 capture nodes" default:"/dev/video*" toml:"transport.device_pattern" env:"TRANSPORT_DEVICE_PATTERN"`
	TransportWidth         int    `help:"Requested capture width (0 keeps driver default)" default:"0" toml:"transport.width" env:"TRANSPORT_WIDTH"`
	TransportHeight        int    `help:"Requested capture height (0 keeps driver default)" default:"0" toml:"transport.height" env:"TRANSPORT_HEIGHT"`
	TransportFourcc        string `help:"Force a V4L2 pixel format, e.g. RGGB" default:"" toml:"transport.fourcc" env:"TRANSPORT_FOURCC"`
	TransportFPS           int    `help:"Requested frame rate (0 keeps driver default)" default:"0" toml:"transport.fps" env:"TRANSPORT_FPS"`
	TransportBuffers       int    `help:"V4L2 MMAP buffer count" default:"4" toml:"transport.buffers" env:"TRANSPORT_BUFFERS"`

	// Simulated sensor settings
	SimDevices     int    `help:"Number of simulated devices" default:"1" toml:"sim.devices" env:"SIM_DEVICES"`
	SimWidth       int    `help:"Simulated sensor width" default:"640" toml:"sim.width" env:"SIM_WIDTH"`
	SimHeight      int    `help:"Simulated sensor height" default:"480" toml:"sim.height" env:"SIM_HEIGHT"`
	SimPixelFormat string `help:"Simulated pixel format (Mono8, BayerRG8, BayerRG12, ...)" default:"BayerRG8" toml:"sim.pixel_format" env:"SIM_PIXEL_FORMAT"`
	SimFPS         int    `help:"Simulated frame rate" default:"30" toml:"sim.fps" env:"SIM_FPS"`

	// Display settings
	DisplayEnabled bool   `help:"Show frames in a window" default:"true" toml:"display.enabled" env:"DISPLAY_ENABLED"`
	DisplayTitle   string `help:"Window title" default:"gxcam" toml:"display.title" env:"DISPLAY_TITLE"`

	// HTTP server settings
	ServerListen string `help:"Status and metrics listen address (empty disables)" default:"" toml:"server.listen" env:"SERVER_LISTEN"`

	// Metrics settings
	MetricsEnabled bool `help:"Record Prometheus metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// LED settings
	LedEnabled     bool   `help:"Drive a status LED" default:"false" toml:"led.enabled" env:"LED_ENABLED"`
	LedBackend     string `help:"LED backend (sysfs, gpio)" default:"sysfs" toml:"led.backend" env:"LED_BACKEND"`
	LedName        string `help:"sysfs LED name (empty picks the board default)" default:"" toml:"led.name" env:"LED_NAME"`
	LedGpioPin     int    `help:"BCM pin for the gpio backend" default:"17" toml:"led.gpio_pin" env:"LED_GPIO_PIN"`
	LedBlinkPeriod string `help:"Blink period while opened but idle" default:"500ms" toml:"led.blink_period" env:"LED_BLINK_PERIOD"`

	// Telemetry settings
	TelemetryNatsURL      string `help:"NATS server URL (empty disables)" default:"" toml:"telemetry.nats_url" env:"TELEMETRY_NATS_URL"`
	TelemetryNatsEmbedded bool   `help:"Run an embedded NATS server" default:"false" toml:"telemetry.nats_embedded" env:"TELEMETRY_NATS_EMBEDDED"`
	TelemetryNatsPort     int    `help:"Embedded NATS server port" default:"4222" toml:"telemetry.nats_port" env:"TELEMETRY_NATS_PORT"`
	TelemetryMqttBroker   string `help:"MQTT broker URL (empty disables)" default:"" toml:"telemetry.mqtt_broker" env:"TELEMETRY_MQTT_BROKER"`
	TelemetryMqttClientID string `help:"MQTT client ID" default:"gxcam" toml:"telemetry.mqtt_client_id" env:"TELEMETRY_MQTT_CLIENT_ID"`
	TelemetryPrefix       string `help:"Subject and topic prefix" default:"gxcam" toml:"telemetry.prefix" env:"TELEMETRY_PREFIX"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera    string `help:"Camera logging level" default:"" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingTransport string `help:"Transport logging level" default:"" toml:"logging.transport" env:"LOGGING_TRANSPORT"`
	LoggingKernel    string `help:"Kernel logging level" default:"" toml:"logging.kernel" env:"LOGGING_KERNEL"`
	LoggingTelemetry string `help:"Telemetry logging level" default:"" toml:"logging.telemetry" env:"LOGGING_TELEMETRY"`
}

// LoggingConfig returns the logging settings. Modules without an explicit
// level follow the global one.
func (o *Options) LoggingConfig() logging.Config {
	modules := make(map[string]string)
	for name, level := range map[string]string{
		"camera":    o.LoggingCamera,
		"transport": o.LoggingTransport,
		"kernel":    o.LoggingKernel,
		"telemetry": o.LoggingTelemetry,
	} {
		if level != "" {
			modules[name] = level
		}
	}
	return logging.Config{
		Level:   o.LoggingLevel,
		Format:  o.LoggingFormat,
		Modules: modules,
	}
}

// Durations holds the parsed duration options.
type Durations struct {
	PollTimeout     time.Duration
	FrameTimeout    time.Duration
	FailureLogEvery time.Duration
	LedBlinkPeriod  time.Duration
}

// Durations parses the duration strings.
func (o *Options) Durations() (Durations, error) {
	var d Durations
	for _, f := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"capture.poll_timeout", o.CapturePollTimeout, &d.PollTimeout},
		{"capture.frame_timeout", o.CaptureFrameTimeout, &d.FrameTimeout},
		{"capture.failure_log_every", o.CaptureFailureLogEvery, &d.FailureLogEvery},
		{"led.blink_period", o.LedBlinkPeriod, &d.LedBlinkPeriod},
	} {
		if f.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(f.value)
		if err != nil {
			return Durations{}, fmt.Errorf("%s: %w", f.name, err)
		}
		if parsed < 0 {
			return Durations{}, fmt.Errorf("%s: negative duration %s", f.name, f.value)
		}
		*f.dst = parsed
	}
	return d, nil
}

// Validate checks values that can be checked without opening hardware.
func (o *Options) Validate() error {
	switch o.TransportKind {
	case "v4l2", "sim":
	default:
		return fmt.Errorf("transport.kind: unknown transport %q", o.TransportKind)
	}
	switch o.LedBackend {
	case "sysfs", "gpio":
	default:
		return fmt.Errorf("led.backend: unknown backend %q", o.LedBackend)
	}
	if o.CaptureFailureLogBurst < 1 {
		return fmt.Errorf("capture.failure_log_burst: must be at least 1")
	}
	_, err := o.Durations()
	return err
}
