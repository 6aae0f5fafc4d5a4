package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/quicoa/daheng-camera-class/internal/events"
)

// Sink delivers one encoded message. Implementations must not block for
// long and must tolerate being disconnected.
type Sink interface {
	Publish(subject string, data []byte)
	Close()
}

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	Prefix string
	// FrameInterval is the minimum spacing of frame messages per bridge;
	// zero forwards every frame.
	FrameInterval time.Duration
	// Buffer is the per-event-type channel size. Events beyond it are
	// dropped.
	Buffer int
}

// Bridge forwards bus events to sinks from a single goroutine.
type Bridge struct {
	bus    *events.Bus
	sinks  []Sink
	opts   BridgeOptions
	frames *rate.Limiter
	logger *slog.Logger

	mu     sync.Mutex
	unsubs []func()
	stop   chan struct{}
	done   chan struct{}
}

// NewBridge creates a bridge. Start subscribes to the bus.
func NewBridge(bus *events.Bus, opts BridgeOptions, logger *slog.Logger, sinks ...Sink) *Bridge {
	if opts.Prefix == "" {
		opts.Prefix = "gxcam"
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	limit := rate.Inf
	if opts.FrameInterval > 0 {
		limit = rate.Every(opts.FrameInterval)
	}
	return &Bridge{
		bus:    bus,
		sinks:  sinks,
		opts:   opts,
		frames: rate.NewLimiter(limit, 1),
		logger: logger.With("component", "telemetry-bridge"),
	}
}

// Start subscribes and begins forwarding.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		return
	}

	states := make(chan events.SessionStateChangedEvent, b.opts.Buffer)
	frames := make(chan events.FrameAcquiredEvent, b.opts.Buffer)
	conversions := make(chan events.ConversionFailedEvent, b.opts.Buffer)
	b.unsubs = []func(){
		events.SubscribeToChannel(b.bus, states),
		events.SubscribeToChannel(b.bus, frames),
		events.SubscribeToChannel(b.bus, conversions),
	}

	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.run(states, frames, conversions)
	b.logger.Info("Telemetry bridge started", "sinks", len(b.sinks), "prefix", b.opts.Prefix)
}

func (b *Bridge) run(states <-chan events.SessionStateChangedEvent, frames <-chan events.FrameAcquiredEvent, conversions <-chan events.ConversionFailedEvent) {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case e := <-states:
			b.send(SessionSubject(b.opts.Prefix, e.DeviceIndex, KindState), newStateMessage(e))
		case e := <-frames:
			if b.frames.Allow() {
				b.send(SessionSubject(b.opts.Prefix, e.DeviceIndex, KindFrames), newFrameMessage(e))
			}
		case e := <-conversions:
			b.send(SessionSubject(b.opts.Prefix, e.DeviceIndex, KindConversion), newConversionMessage(e))
		}
	}
}

func (b *Bridge) send(subject string, msg any) {
	data, err := marshal(msg)
	if err != nil {
		b.logger.Warn("Failed to marshal telemetry", "subject", subject, "error", err)
		return
	}
	for _, sink := range b.sinks {
		sink.Publish(subject, data)
	}
}

// Stop unsubscribes, waits for the forwarder and closes every sink.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop == nil {
		return
	}
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	close(b.stop)
	<-b.done
	b.stop = nil

	for _, sink := range b.sinks {
		sink.Close()
	}
	b.logger.Info("Telemetry bridge stopped")
}
