//go:build !linux

package v4l2

import (
	"log/slog"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/camera"
)

// Transport is unavailable outside Linux; every call reports a missing
// transport layer.
type Transport struct{}

// New returns a transport that always fails.
func New(_ Options, _ *slog.Logger) *Transport {
	return &Transport{}
}

func unavailable(op string) error {
	return camera.NewStatusError(op, camera.StatusNotFoundTL)
}

// InitLib implements camera.Transport.
func (t *Transport) InitLib() error { return unavailable("InitLib") }

// CloseLib implements camera.Transport.
func (t *Transport) CloseLib() error { return nil }

// Devices implements camera.Transport.
func (t *Transport) Devices() ([]camera.DeviceInfo, error) { return nil, unavailable("Devices") }

// OpenDevice implements camera.Transport.
func (t *Transport) OpenDevice(camera.OpenParams) (camera.Handle, error) {
	return 0, unavailable("OpenDevice")
}

// CloseDevice implements camera.Transport.
func (t *Transport) CloseDevice(camera.Handle) error { return unavailable("CloseDevice") }

// IsImplemented implements camera.Transport.
func (t *Transport) IsImplemented(camera.Handle, camera.Feature) (bool, error) {
	return false, unavailable("IsImplemented")
}

// GetEnum implements camera.Transport.
func (t *Transport) GetEnum(camera.Handle, camera.Feature) (int64, error) {
	return 0, unavailable("GetEnum")
}

// SetEnum implements camera.Transport.
func (t *Transport) SetEnum(camera.Handle, camera.Feature, int64) error {
	return unavailable("SetEnum")
}

// GetInt implements camera.Transport.
func (t *Transport) GetInt(camera.Handle, camera.Feature) (int64, error) {
	return 0, unavailable("GetInt")
}

// SendCommand implements camera.Transport.
func (t *Transport) SendCommand(camera.Handle, camera.Command) error {
	return unavailable("SendCommand")
}

// GetImage implements camera.Transport.
func (t *Transport) GetImage(camera.Handle, *camera.FrameDescriptor, time.Duration) error {
	return unavailable("GetImage")
}
