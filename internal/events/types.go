package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeFrameAcquired
	TypeConversionFailed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent is published on every camera session transition.
// From and To carry camera.State values.
type SessionStateChangedEvent struct {
	SessionID   string    `json:"session_id"`
	DeviceIndex int       `json:"device_index"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Timestamp   time.Time `json:"timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// FrameAcquiredEvent is published after a frame lands in the gray buffer.
type FrameAcquiredEvent struct {
	SessionID   string        `json:"session_id"`
	DeviceIndex int           `json:"device_index"`
	FrameID     uint64        `json:"frame_id"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	PixelFormat string        `json:"pixel_format"`
	Attempts    int           `json:"attempts"`
	Wait        time.Duration `json:"wait_ns"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Type returns the event type identifier for FrameAcquiredEvent.
func (e FrameAcquiredEvent) Type() uint32 { return TypeFrameAcquired }

// ConversionFailedEvent is published when a frame cannot be converted to RGB.
type ConversionFailedEvent struct {
	SessionID   string    `json:"session_id"`
	DeviceIndex int       `json:"device_index"`
	PixelFormat string    `json:"pixel_format"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// Type returns the event type identifier for ConversionFailedEvent.
func (e ConversionFailedEvent) Type() uint32 { return TypeConversionFailed }
