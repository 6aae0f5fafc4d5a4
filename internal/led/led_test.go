package led

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/events"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type mockController struct {
	mu     sync.Mutex
	sets   []Pattern
	closed bool
	err    error
}

func (m *mockController) Set(p Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sets = append(m.sets, p)
	return nil
}

func (m *mockController) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockController) snapshot() []Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Pattern(nil), m.sets...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestManagerFollowsSessionState(t *testing.T) {
	ctrl := &mockController{}
	bus := events.New()
	mgr := NewManager(ctrl, bus, quietLogger())
	mgr.Start()

	publish := func(to string) {
		bus.Publish(events.SessionStateChangedEvent{SessionID: "s", To: to})
	}

	publish("opened")
	waitFor(t, func() bool { return len(ctrl.snapshot()) == 1 })
	publish("capturing")
	waitFor(t, func() bool { return len(ctrl.snapshot()) == 2 })
	publish("capturing")
	publish("transport_ready")
	waitFor(t, func() bool { return len(ctrl.snapshot()) == 3 })

	want := []Pattern{PatternBlink, PatternSolid, PatternOff}
	got := ctrl.snapshot()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("set %d = %v, want %v", i, got[i], want[i])
		}
	}

	mgr.Stop()
	if !ctrl.closed {
		t.Error("controller not closed on Stop")
	}
}

func TestManagerRetriesAfterFailure(t *testing.T) {
	ctrl := &mockController{err: errors.New("busy")}
	bus := events.New()
	mgr := NewManager(ctrl, bus, quietLogger())
	mgr.Start()
	defer mgr.Stop()

	bus.Publish(events.SessionStateChangedEvent{To: "capturing"})
	time.Sleep(50 * time.Millisecond)

	ctrl.mu.Lock()
	ctrl.err = nil
	ctrl.mu.Unlock()

	bus.Publish(events.SessionStateChangedEvent{To: "capturing"})
	waitFor(t, func() bool { return len(ctrl.snapshot()) == 1 })
}

func fakeSysfsLED(t *testing.T, name string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"brightness", "trigger"} {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSysfsPatterns(t *testing.T) {
	root := fakeSysfsLED(t, "ACT")
	ctrl, err := newSysfs(root, "ACT", 400*time.Millisecond)
	if err != nil {
		t.Fatalf("newSysfs: %v", err)
	}
	dir := filepath.Join(root, "ACT")

	if err := ctrl.Set(PatternSolid); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(dir, "brightness")); got != "1" {
		t.Errorf("solid brightness = %q", got)
	}

	if err := ctrl.Set(PatternBlink); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(dir, "trigger")); got != "timer" {
		t.Errorf("blink trigger = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "delay_on")); got != "200" {
		t.Errorf("delay_on = %q, want 200", got)
	}

	if err := ctrl.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(dir, "brightness")); got != "0" {
		t.Errorf("closed brightness = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "trigger")); got != "none" {
		t.Errorf("closed trigger = %q", got)
	}
}

func TestSysfsMissingLED(t *testing.T) {
	if _, err := newSysfs(t.TempDir(), "nope", time.Second); err == nil {
		t.Error("expected error for missing LED")
	}
}

type fakePin struct {
	mu      sync.Mutex
	high    bool
	output  bool
	toggles int
}

func (p *fakePin) Output() {
	p.mu.Lock()
	p.output = true
	p.mu.Unlock()
}

func (p *fakePin) Input() {
	p.mu.Lock()
	p.output = false
	p.mu.Unlock()
}

func (p *fakePin) High() {
	p.mu.Lock()
	p.high = true
	p.mu.Unlock()
}

func (p *fakePin) Low() {
	p.mu.Lock()
	p.high = false
	p.mu.Unlock()
}

func (p *fakePin) Toggle() {
	p.mu.Lock()
	p.high = !p.high
	p.toggles++
	p.mu.Unlock()
}

func (p *fakePin) state() (high bool, toggles int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high, p.toggles
}

func TestGPIOPatterns(t *testing.T) {
	p := &fakePin{}
	closed := false
	ctrl := newGPIOWithPin(p, 20*time.Millisecond, func() error { closed = true; return nil })
	if !p.output {
		t.Fatal("pin not configured as output")
	}

	if err := ctrl.Set(PatternSolid); err != nil {
		t.Fatal(err)
	}
	if high, _ := p.state(); !high {
		t.Error("solid left pin low")
	}

	if err := ctrl.Set(PatternBlink); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { _, n := p.state(); return n >= 3 })

	if err := ctrl.Set(PatternOff); err != nil {
		t.Fatal(err)
	}
	_, before := p.state()
	time.Sleep(50 * time.Millisecond)
	if high, after := p.state(); high || after != before {
		t.Errorf("blink still running after off: high=%v toggles %d -> %d", high, before, after)
	}

	if err := ctrl.Close(); err != nil {
		t.Fatal(err)
	}
	if !closed || p.output {
		t.Error("Close did not release the pin")
	}
}

func TestBoardLED(t *testing.T) {
	tests := map[string]string{
		"Raspberry Pi 4 Model B Rev 1.4": "ACT",
		"FriendlyElec NanoPC-T6":         "usr_led",
		"Orange Pi 5":                    "green_led",
		"QEMU Virtual Machine":           "",
	}
	for model, want := range tests {
		if got := boardLED(model); got != want {
			t.Errorf("boardLED(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestDetectBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model")
	if err := os.WriteFile(path, []byte("Raspberry Pi 5\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := detectBoard(path); got != "Raspberry Pi 5" {
		t.Errorf("detectBoard = %q", got)
	}
	if got := detectBoard(filepath.Join(t.TempDir(), "missing")); got != "unknown" {
		t.Errorf("missing model = %q", got)
	}
}

func TestNewFallsBackToNoop(t *testing.T) {
	ctrl := New(Options{Backend: "sysfs", Name: "definitely-not-an-led"}, quietLogger())
	if _, ok := ctrl.(*noop); !ok {
		t.Fatalf("controller = %T, want noop", ctrl)
	}
	if err := ctrl.Set(PatternSolid); err != nil {
		t.Errorf("noop Set: %v", err)
	}
}
