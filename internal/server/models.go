package server

import (
	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/logging"
	"github.com/quicoa/daheng-camera-class/internal/metrics"
)

// ApiResponse is the envelope of every JSON response.
type ApiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// SessionResponse describes the running session.
type SessionResponse struct {
	SessionID string                         `json:"session_id"`
	State     string                         `json:"state"`
	Devices   map[int]*metrics.DeviceMetrics `json:"devices"`
}

// DeviceResponse lists enumerated devices.
type DeviceResponse struct {
	Devices []camera.DeviceInfo `json:"devices"`
	Count   int                 `json:"count"`
}

// LogsResponse holds recent log entries.
type LogsResponse struct {
	Entries []logging.LogEntry `json:"entries"`
	Count   int                `json:"count"`
}

// LevelRequest changes one module's log level.
type LevelRequest struct {
	Level string `json:"level"`
}
