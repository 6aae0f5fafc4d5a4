package metrics

import (
	"log/slog"
	"sync"

	"github.com/quicoa/daheng-camera-class/internal/events"
	"github.com/quicoa/daheng-camera-class/internal/logging"
)

// Recorder keeps the metrics in step with bus events.
type Recorder struct {
	bus    *events.Bus
	logger *slog.Logger

	mu     sync.Mutex
	unsubs []func()
}

// NewRecorder creates a recorder for bus. Call Start to subscribe.
func NewRecorder(bus *events.Bus) *Recorder {
	return &Recorder{
		bus:    bus,
		logger: logging.GetLogger("metrics"),
	}
}

// Start subscribes to session events. Calling it twice is a no-op.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsubs != nil {
		return
	}

	r.unsubs = []func(){
		r.bus.Subscribe(func(e events.SessionStateChangedEvent) {
			// A released session drops its series so a later session on
			// the same device starts clean.
			if e.To == "terminated" {
				DeleteDevice(e.DeviceIndex)
				return
			}
			SetSessionState(e.DeviceIndex, e.SessionID, e.To)
		}),
		r.bus.Subscribe(func(e events.FrameAcquiredEvent) {
			ObserveFrame(e.DeviceIndex, e.FrameID, e.Width, e.Height, e.PixelFormat, e.Attempts, e.Wait, e.Timestamp)
		}),
		r.bus.Subscribe(func(e events.ConversionFailedEvent) {
			IncConversionFailures(e.DeviceIndex, e.PixelFormat)
		}),
	}
	r.logger.Debug("Metrics recorder started")
}

// Stop unsubscribes from the bus.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}
