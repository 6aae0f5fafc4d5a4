package led

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Options selects and configures the LED backend.
type Options struct {
	// Backend is "sysfs" or "gpio".
	Backend string
	// Name is the sysfs LED; empty picks the board's activity LED.
	Name string
	// Pin is the BCM pin for the gpio backend.
	Pin int
	// BlinkPeriod is one full on/off cycle.
	BlinkPeriod time.Duration
}

// boardLEDs maps device tree models to their user-facing LED.
var boardLEDs = []struct {
	model string
	led   string
}{
	{"Raspberry Pi", "ACT"},
	{"NanoPC-T6", "usr_led"},
	{"Orange Pi", "green_led"},
}

// New returns a controller for opts, falling back to a no-op controller
// when the LED cannot be driven.
func New(opts Options, logger *slog.Logger) Controller {
	if opts.BlinkPeriod <= 0 {
		opts.BlinkPeriod = 500 * time.Millisecond
	}

	switch opts.Backend {
	case "gpio":
		ctrl, err := newGPIO(opts.Pin, opts.BlinkPeriod)
		if err != nil {
			logger.Warn("GPIO LED unavailable, using no-op controller", "pin", opts.Pin, "error", err)
			return newNoop(logger)
		}
		logger.Info("Using GPIO status LED", "pin", opts.Pin)
		return ctrl

	default:
		name := opts.Name
		if name == "" {
			model := detectBoard(deviceTreeModelPath)
			name = boardLED(model)
			logger.Info("Detected board for LED control", "board_model", model, "led", name)
		}
		if name == "" {
			logger.Info("No status LED known for this board, using no-op controller")
			return newNoop(logger)
		}
		ctrl, err := newSysfs(sysfsLEDPath, name, opts.BlinkPeriod)
		if err != nil {
			logger.Warn("sysfs LED unavailable, using no-op controller", "error", err)
			return newNoop(logger)
		}
		logger.Info("Using sysfs status LED", "led", name)
		return ctrl
	}
}

func boardLED(model string) string {
	for _, b := range boardLEDs {
		if strings.Contains(model, b.model) {
			return b.led
		}
	}
	return ""
}

// detectBoard reads the device tree model.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
