package telemetry

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/events"
)

// Subject kinds under a session.
const (
	KindState      = "state"
	KindFrames     = "frames"
	KindConversion = "conversion"
)

// SessionSubject returns "{prefix}.sessions.{device}.{kind}".
func SessionSubject(prefix string, device int, kind string) string {
	return strings.Join([]string{prefix, "sessions", strconv.Itoa(device), kind}, ".")
}

// StatusSubject is the request/reply subject for cached metrics.
func StatusSubject(prefix string) string {
	return prefix + ".status"
}

// StateMessage is published on session transitions.
type StateMessage struct {
	SessionID string `json:"session_id"`
	Device    int    `json:"device"`
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp string `json:"timestamp"`
}

// FrameMessage describes a received frame.
type FrameMessage struct {
	SessionID   string  `json:"session_id"`
	Device      int     `json:"device"`
	FrameID     uint64  `json:"frame_id"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	PixelFormat string  `json:"pixel_format"`
	Attempts    int     `json:"attempts"`
	WaitMs      float64 `json:"wait_ms"`
	Timestamp   string  `json:"timestamp"`
}

// ConversionMessage reports a failed color conversion.
type ConversionMessage struct {
	SessionID   string `json:"session_id"`
	Device      int    `json:"device"`
	PixelFormat string `json:"pixel_format"`
	Reason      string `json:"reason"`
	Timestamp   string `json:"timestamp"`
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func newStateMessage(e events.SessionStateChangedEvent) StateMessage {
	return StateMessage{
		SessionID: e.SessionID,
		Device:    e.DeviceIndex,
		From:      e.From,
		To:        e.To,
		Timestamp: timestamp(e.Timestamp),
	}
}

func newFrameMessage(e events.FrameAcquiredEvent) FrameMessage {
	return FrameMessage{
		SessionID:   e.SessionID,
		Device:      e.DeviceIndex,
		FrameID:     e.FrameID,
		Width:       e.Width,
		Height:      e.Height,
		PixelFormat: e.PixelFormat,
		Attempts:    e.Attempts,
		WaitMs:      float64(e.Wait) / float64(time.Millisecond),
		Timestamp:   timestamp(e.Timestamp),
	}
}

func newConversionMessage(e events.ConversionFailedEvent) ConversionMessage {
	return ConversionMessage{
		SessionID:   e.SessionID,
		Device:      e.DeviceIndex,
		PixelFormat: e.PixelFormat,
		Reason:      e.Reason,
		Timestamp:   timestamp(e.Timestamp),
	}
}

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
