package camera

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/events"
)

type fakeFrame struct {
	width, height int
	format        PixelFormat
	fill          byte
}

// fakeTransport is a scriptable Transport that records every call.
type fakeTransport struct {
	mu    sync.Mutex
	calls []string

	initErr     error
	closeLibErr error
	openErr     error
	closeErr    error
	isImplErr   error
	getEnumErr  error
	acqModeErr  error
	awbErr      error
	payloadErr  error
	startErr    error
	stopErr     error

	color   bool
	filter  ColorFilter
	payload int64

	// pollFailures GetImage calls fail with a timeout before frames are served.
	pollFailures int
	frames       []fakeFrame
	nextFrameID  uint64

	openParams OpenParams
	enumWrites map[Feature]int64
	inits      int
	closeLibs  int
	opened     bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		color:      true,
		filter:     ColorFilterRG,
		payload:    16,
		enumWrites: make(map[Feature]int64),
	}
}

func (f *fakeTransport) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeTransport) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTransport) count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeTransport) InitLib() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("InitLib")
	if f.initErr != nil {
		return f.initErr
	}
	f.inits++
	return nil
}

func (f *fakeTransport) CloseLib() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CloseLib")
	f.closeLibs++
	return f.closeLibErr
}

func (f *fakeTransport) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{Index: 1, Name: "fake", Color: f.color}}, nil
}

func (f *fakeTransport) OpenDevice(params OpenParams) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("OpenDevice")
	f.openParams = params
	if f.openErr != nil {
		return 0, f.openErr
	}
	f.opened = true
	return Handle(7), nil
}

func (f *fakeTransport) CloseDevice(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CloseDevice")
	if f.closeErr != nil {
		return f.closeErr
	}
	f.opened = false
	return nil
}

func (f *fakeTransport) IsImplemented(_ Handle, feature Feature) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("IsImplemented:" + feature.String())
	return f.color, f.isImplErr
}

func (f *fakeTransport) GetEnum(_ Handle, feature Feature) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetEnum:" + feature.String())
	if f.getEnumErr != nil {
		return 0, f.getEnumErr
	}
	return int64(f.filter), nil
}

func (f *fakeTransport) SetEnum(_ Handle, feature Feature, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetEnum:" + feature.String())
	switch feature {
	case FeatureAcquisitionMode:
		if f.acqModeErr != nil {
			return f.acqModeErr
		}
	case FeatureBalanceWhiteAuto:
		if f.awbErr != nil {
			return f.awbErr
		}
	}
	f.enumWrites[feature] = value
	return nil
}

func (f *fakeTransport) GetInt(_ Handle, feature Feature) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetInt:" + feature.String())
	if f.payloadErr != nil {
		return 0, f.payloadErr
	}
	return f.payload, nil
}

func (f *fakeTransport) SendCommand(_ Handle, c Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SendCommand:" + c.String())
	switch c {
	case CommandAcquisitionStart:
		return f.startErr
	case CommandAcquisitionStop:
		return f.stopErr
	}
	return nil
}

func (f *fakeTransport) GetImage(_ Handle, frame *FrameDescriptor, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetImage")

	if f.pollFailures > 0 {
		f.pollFailures--
		return NewStatusError("GetImage", StatusTimeout)
	}
	if len(f.frames) == 0 {
		time.Sleep(time.Millisecond)
		return NewStatusError("GetImage", StatusTimeout)
	}

	next := f.frames[0]
	f.frames = f.frames[1:]
	n := next.width * next.height
	if n > len(frame.Buffer) {
		return NewStatusError("GetImage", StatusNeedMoreBuffer)
	}
	for i := range n {
		frame.Buffer[i] = next.fill
	}
	f.nextFrameID++
	frame.Width = next.width
	frame.Height = next.height
	frame.PixelFormat = next.format
	frame.ImageSize = n
	frame.FrameID = f.nextFrameID
	return nil
}

func (f *fakeTransport) queue(frames ...fakeFrame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frames...)
}

type kernelCall struct {
	width, height int
	mode          Interpolation
	pattern       ColorFilter
	flip          bool
}

// fakeKernel writes src[i]+1 into every channel of pixel i.
type fakeKernel struct {
	calls []kernelCall
	err   error
}

func (k *fakeKernel) Raw8ToRGB24(src, dst []byte, width, height int, mode Interpolation, pattern ColorFilter, flip bool) error {
	k.calls = append(k.calls, kernelCall{width, height, mode, pattern, flip})
	if k.err != nil {
		return k.err
	}
	for i := range width * height {
		v := src[i] + 1
		dst[i*3], dst[i*3+1], dst[i*3+2] = v, v, v
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) states() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		if e, ok := ev.(events.SessionStateChangedEvent); ok {
			out = append(out, e.To)
		}
	}
	return out
}

func (p *recordingPublisher) count(eventType uint32) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type() == eventType {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestSession acquires the library for ft and releases it when the test
// ends.
func newTestSession(t *testing.T, ft *fakeTransport, kernel Kernel, opts ...Option) *Session {
	t.Helper()

	lib, err := AcquireLibrary(ft)
	if err != nil {
		t.Fatalf("AcquireLibrary: %v", err)
	}

	opts = append([]Option{WithLogger(quietLogger()), WithPollTimeout(0)}, opts...)
	s, err := NewSession(lib, kernel, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Release() })
	return s
}

func openCapturing(t *testing.T, ft *fakeTransport, kernel Kernel, opts ...Option) *Session {
	t.Helper()
	s := newTestSession(t, ft, kernel, opts...)
	if err := s.Open(0); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.StartCapture(); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	return s
}
