package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logBuffer = nil
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"camera":    "debug",
			"telemetry": "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"camera", true, true, true},
		{"telemetry", false, false, true},
		{"display", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	before := GetLogger("kernel").Handler()
	if before.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"kernel": "debug"}})

	if !before.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("early handler should follow the module level var after Initialize")
	}
}

func TestReconfigureUpdatesExistingLoggers(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	handler := GetLogger("camera").Handler()
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should start disabled")
	}

	Reconfigure(Config{Level: "warn", Modules: map[string]string{"camera": "debug"}})

	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("camera should accept debug after Reconfigure")
	}
	if got := Levels()["camera"]; got != "debug" {
		t.Errorf("Levels()[camera] = %q, want debug", got)
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	if err := SetModuleLevel("led", "error"); err != nil {
		t.Fatalf("SetModuleLevel: %v", err)
	}
	if GetLogger("led").Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled at error level")
	}
	if err := SetModuleLevel("led", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestBufferReceivesEntries(t *testing.T) {
	resetState()
	Initialize(Config{Level: "debug"})

	GetLogger("camera").Info("frame acquired", "frame_id", 7)

	entries := GetBuffer().ReadAll()
	if len(entries) == 0 {
		t.Fatal("expected buffered entries")
	}
	last := entries[len(entries)-1]
	if last.Module != "camera" || last.Message != "frame acquired" {
		t.Errorf("unexpected entry: %+v", last)
	}
	if last.Attributes["frame_id"] != int64(7) {
		t.Errorf("frame_id = %v (%T), want 7", last.Attributes["frame_id"], last.Attributes["frame_id"])
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	if count := strings.Count(buf.String(), "debug only message"); count != 1 {
		t.Errorf("expected 1 debug message, got %d. Output: %s", count, buf.String())
	}
}

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		rb.Write(LogEntry{Message: msg})
	}

	if rb.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", rb.Count())
	}

	got := rb.Tail(2)
	if len(got) != 2 || got[0].Message != "c" || got[1].Message != "d" {
		t.Errorf("Tail(2) = %+v", got)
	}

	all := rb.ReadAll()
	if len(all) != 3 || all[0].Message != "b" {
		t.Errorf("ReadAll() = %+v", all)
	}
}

func TestJournalFieldName(t *testing.T) {
	tests := map[string]string{
		"session_id": "SESSION_ID",
		"pixel.fmt":  "PIXEL_FMT",
		"Frame-ID2":  "FRAME_ID2",
	}
	for in, want := range tests {
		if got := journalFieldName(in); got != want {
			t.Errorf("journalFieldName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"invalid", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseLevel(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}
