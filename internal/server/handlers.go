package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/logging"
	"github.com/quicoa/daheng-camera-class/internal/metrics"
)

const defaultLogTail = 100

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ApiResponse{Status: "ok", Data: data})
}

func handleError(w http.ResponseWriter, message string, err error, statusCode int) {
	errorMsg := message
	if err != nil {
		errorMsg = fmt.Sprintf("%s: %v", message, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ApiResponse{Status: "error", Message: errorMsg})
}

// healthHandler reports 503 once the session has terminated.
func healthHandler(session SessionInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state := "unknown"
		if session != nil {
			state = string(session.State())
		}
		if session != nil && session.State() == camera.StateTerminated {
			handleError(w, "session terminated", nil, http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"state": state})
	}
}

func sessionHandler(session SessionInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, SessionResponse{
			SessionID: session.ID(),
			State:     string(session.State()),
			Devices:   metrics.GetAllDeviceMetrics(),
		})
	}
}

func devicesHandler(lister DeviceLister) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		devices, err := lister.Devices()
		if err != nil {
			handleError(w, "Failed to list devices", err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, DeviceResponse{Devices: devices, Count: len(devices)})
	}
}

func logsHandler(w http.ResponseWriter, r *http.Request) {
	n := defaultLogTail
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			handleError(w, "Invalid n", err, http.StatusBadRequest)
			return
		}
		n = parsed
	}

	buffer := logging.GetBuffer()
	if buffer == nil {
		writeJSON(w, http.StatusOK, LogsResponse{Entries: []logging.LogEntry{}})
		return
	}
	entries := buffer.Tail(n)
	writeJSON(w, http.StatusOK, LogsResponse{Entries: entries, Count: len(entries)})
}

func levelsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, logging.Levels())
}

func setLevelHandler(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")

	var req LevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, "Invalid request body", err, http.StatusBadRequest)
		return
	}
	if err := logging.SetModuleLevel(module, req.Level); err != nil {
		handleError(w, "Invalid level", err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{module: req.Level})
}
