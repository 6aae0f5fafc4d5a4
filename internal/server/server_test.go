package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/logging"
	"github.com/quicoa/daheng-camera-class/internal/metrics"
)

type fakeSession struct {
	state camera.State
}

func (f *fakeSession) ID() string          { return "session-1" }
func (f *fakeSession) State() camera.State { return f.state }

type fakeLister struct {
	devices []camera.DeviceInfo
	err     error
}

func (f fakeLister) Devices() ([]camera.DeviceInfo, error) { return f.devices, f.err }

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, ApiResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))

	var resp ApiResponse
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec, resp
}

func TestHealthz(t *testing.T) {
	session := &fakeSession{state: camera.StateCapturing}
	h := New(Options{Session: session}).Handler()

	rec, resp := do(t, h, "GET", "/healthz", "")
	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("code=%d resp=%+v", rec.Code, resp)
	}

	session.state = camera.StateTerminated
	rec, _ = do(t, h, "GET", "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("terminated code = %d, want 503", rec.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	metrics.SetSessionState(3, "session-1", "capturing")
	defer metrics.DeleteDevice(3)

	h := New(Options{Session: &fakeSession{state: camera.StateCapturing}}).Handler()
	rec, _ := do(t, h, "GET", "/api/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	var body struct {
		Data SessionResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data.SessionID != "session-1" || body.Data.State != "capturing" {
		t.Errorf("data = %+v", body.Data)
	}
	if m := body.Data.Devices[3]; m == nil || m.State != "capturing" {
		t.Errorf("device 3 = %+v", m)
	}
}

func TestDevicesEndpoint(t *testing.T) {
	lister := fakeLister{devices: []camera.DeviceInfo{{Index: 1, Name: "cam", Color: true}}}
	h := New(Options{Devices: lister}).Handler()

	rec, _ := do(t, h, "GET", "/api/devices", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Errorf("code=%d body=%s", rec.Code, rec.Body.String())
	}

	h = New(Options{Devices: fakeLister{err: errors.New("bus down")}}).Handler()
	rec, resp := do(t, h, "GET", "/api/devices", "")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(resp.Message, "bus down") {
		t.Errorf("code=%d resp=%+v", rec.Code, resp)
	}
}

func TestRoutesDisabledWithoutDependencies(t *testing.T) {
	h := New(Options{}).Handler()
	for _, path := range []string{"/api/session", "/api/devices", "/metrics"} {
		rec, _ := do(t, h, "GET", path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s code = %d, want 404", path, rec.Code)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	h := New(Options{MetricsHandler: metrics.Handler()}).Handler()
	rec, _ := do(t, h, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestLogsAndLevels(t *testing.T) {
	logging.Initialize(logging.Config{Level: "info", Format: "text"})
	logging.GetLogger("server-test").Info("hello from test")

	h := New(Options{}).Handler()

	rec, _ := do(t, h, "GET", "/api/logs?n=5", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "hello from test") {
		t.Errorf("logs code=%d body=%s", rec.Code, rec.Body.String())
	}
	rec, _ = do(t, h, "GET", "/api/logs?n=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad n code = %d", rec.Code)
	}

	rec, _ = do(t, h, "PUT", "/api/logging/server-test", `{"level":"debug"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set level code = %d body=%s", rec.Code, rec.Body.String())
	}
	if got := logging.Levels()["server-test"]; got != "debug" {
		t.Errorf("level = %q, want debug", got)
	}

	rec, _ = do(t, h, "PUT", "/api/logging/server-test", `{"level":"loud"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid level code = %d", rec.Code)
	}
}

func TestStartStop(t *testing.T) {
	s := New(Options{Session: &fakeSession{state: camera.StateOpened}})
	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
