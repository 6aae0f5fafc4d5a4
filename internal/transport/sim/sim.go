// Package sim implements camera.Transport with synthetic sensors. Frames are
// animated color bars laid out as the configured Bayer mosaic, which makes
// the full capture and conversion path runnable without hardware.
package sim

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/logging"
)

// DeviceConfig describes one simulated sensor.
type DeviceConfig struct {
	Name          string
	Serial        string
	Width         int
	Height        int
	PixelFormat   camera.PixelFormat
	FrameInterval time.Duration
	// PayloadPadding is added to the payload size to mimic devices whose
	// payload exceeds the pixel data.
	PayloadPadding int
}

// DefaultDevice is a 640x480 RG-pattern color sensor at 30 fps.
func DefaultDevice() DeviceConfig {
	return DeviceConfig{
		Name:          "Simulated GX 640C",
		Serial:        "SIM0001",
		Width:         640,
		Height:        480,
		PixelFormat:   camera.PixelFormatBayerRG8,
		FrameInterval: time.Second / 30,
	}
}

func (c DeviceConfig) bytesPerPixel() int {
	if c.PixelFormat.IsBayerHighBit() {
		return 2
	}
	return 1
}

func (c DeviceConfig) payloadSize() int64 {
	return int64(c.Width*c.Height*c.bytesPerPixel() + c.PayloadPadding)
}

type device struct {
	cfg       DeviceConfig
	slot      int
	acqMode   int64
	awb       int64
	streaming bool
	frameID   uint64
	nextFrame time.Time
}

// Transport is a simulated vendor library.
type Transport struct {
	mu          sync.Mutex
	devices     []DeviceConfig
	initialized bool
	handles     map[camera.Handle]*device
	inUse       map[int]bool
	nextHandle  camera.Handle
	logger      *slog.Logger
}

// New creates a transport exposing devices in order; device 1 is devices[0].
func New(devices []DeviceConfig, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = logging.GetLogger("transport")
	}
	return &Transport{
		devices: devices,
		handles: make(map[camera.Handle]*device),
		inUse:   make(map[int]bool),
		logger:  logger.With("transport", "sim"),
	}
}

// InitLib implements camera.Transport.
func (t *Transport) InitLib() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initialized = true
	t.logger.Debug("Library initialized", "devices", len(t.devices))
	return nil
}

// CloseLib implements camera.Transport. Handles left open are dropped.
func (t *Transport) CloseLib() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return camera.NewStatusError("CloseLib", camera.StatusNotInitAPI)
	}
	if len(t.handles) > 0 {
		t.logger.Warn("Closing library with open devices", "open", len(t.handles))
	}
	t.initialized = false
	t.handles = make(map[camera.Handle]*device)
	t.inUse = make(map[int]bool)
	return nil
}

// Devices implements camera.Transport.
func (t *Transport) Devices() ([]camera.DeviceInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return nil, camera.NewStatusError("Devices", camera.StatusNotInitAPI)
	}

	infos := make([]camera.DeviceInfo, len(t.devices))
	for i, cfg := range t.devices {
		infos[i] = camera.DeviceInfo{
			Index:  i + 1,
			Name:   cfg.Name,
			Serial: cfg.Serial,
			Color:  cfg.PixelFormat.Filter() != camera.ColorFilterNone,
		}
	}
	return infos, nil
}

// OpenDevice implements camera.Transport. Index and serial lookups are
// supported.
func (t *Transport) OpenDevice(params camera.OpenParams) (camera.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return 0, camera.NewStatusError("OpenDevice", camera.StatusNotInitAPI)
	}

	slot := -1
	switch params.Mode {
	case camera.OpenByIndex:
		n, err := strconv.Atoi(params.Content)
		if err != nil {
			return 0, camera.NewStatusError("OpenDevice", camera.StatusInvalidParameter)
		}
		slot = n - 1
	case camera.OpenBySerial:
		for i, cfg := range t.devices {
			if cfg.Serial == params.Content {
				slot = i
			}
		}
	default:
		return 0, camera.NewStatusError("OpenDevice", camera.StatusNotImplemented)
	}

	if slot < 0 || slot >= len(t.devices) {
		return 0, camera.NewStatusError("OpenDevice", camera.StatusNotFoundDevice)
	}
	if cfg := t.devices[slot]; cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, camera.NewStatusError("OpenDevice", camera.StatusInvalidParameter)
	}
	if t.inUse[slot] {
		return 0, camera.NewStatusError("OpenDevice", camera.StatusInvalidAccess)
	}

	t.nextHandle++
	h := t.nextHandle
	t.handles[h] = &device{cfg: t.devices[slot], slot: slot}
	if params.Access == camera.AccessExclusive || params.Access == camera.AccessControl {
		t.inUse[slot] = true
	}
	t.logger.Debug("Device opened", "slot", slot, "handle", uint64(h))
	return h, nil
}

// CloseDevice implements camera.Transport.
func (t *Transport) CloseDevice(h camera.Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	dev, err := t.lookup("CloseDevice", h)
	if err != nil {
		return err
	}
	delete(t.handles, h)
	delete(t.inUse, dev.slot)
	return nil
}

// IsImplemented implements camera.Transport.
func (t *Transport) IsImplemented(h camera.Handle, f camera.Feature) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dev, err := t.lookup("IsImplemented", h)
	if err != nil {
		return false, err
	}
	switch f {
	case camera.FeaturePixelColorFilter:
		return dev.cfg.PixelFormat.Filter() != camera.ColorFilterNone, nil
	case camera.FeatureAcquisitionMode, camera.FeatureBalanceWhiteAuto, camera.FeaturePayloadSize:
		return true, nil
	default:
		return false, nil
	}
}

// GetEnum implements camera.Transport.
func (t *Transport) GetEnum(h camera.Handle, f camera.Feature) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dev, err := t.lookup("GetEnum", h)
	if err != nil {
		return 0, err
	}
	switch f {
	case camera.FeaturePixelColorFilter:
		filter := dev.cfg.PixelFormat.Filter()
		if filter == camera.ColorFilterNone {
			return 0, camera.NewStatusError("GetEnum", camera.StatusNotImplemented)
		}
		return int64(filter), nil
	case camera.FeatureAcquisitionMode:
		return dev.acqMode, nil
	case camera.FeatureBalanceWhiteAuto:
		return dev.awb, nil
	default:
		return 0, camera.NewStatusError("GetEnum", camera.StatusErrorType)
	}
}

// SetEnum implements camera.Transport.
func (t *Transport) SetEnum(h camera.Handle, f camera.Feature, value int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	dev, err := t.lookup("SetEnum", h)
	if err != nil {
		return err
	}
	switch f {
	case camera.FeatureAcquisitionMode:
		if value < camera.AcquisitionModeSingleFrame || value > camera.AcquisitionModeContinuous {
			return camera.NewStatusError("SetEnum", camera.StatusOutOfRange)
		}
		dev.acqMode = value
	case camera.FeatureBalanceWhiteAuto:
		if value < camera.BalanceWhiteAutoOff || value > camera.BalanceWhiteAutoOnce {
			return camera.NewStatusError("SetEnum", camera.StatusOutOfRange)
		}
		dev.awb = value
	default:
		return camera.NewStatusError("SetEnum", camera.StatusErrorType)
	}
	return nil
}

// GetInt implements camera.Transport.
func (t *Transport) GetInt(h camera.Handle, f camera.Feature) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dev, err := t.lookup("GetInt", h)
	if err != nil {
		return 0, err
	}
	if f != camera.FeaturePayloadSize {
		return 0, camera.NewStatusError("GetInt", camera.StatusErrorType)
	}
	return dev.cfg.payloadSize(), nil
}

// SendCommand implements camera.Transport.
func (t *Transport) SendCommand(h camera.Handle, c camera.Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	dev, err := t.lookup("SendCommand", h)
	if err != nil {
		return err
	}
	switch c {
	case camera.CommandAcquisitionStart:
		dev.streaming = true
		dev.nextFrame = time.Now()
	case camera.CommandAcquisitionStop:
		dev.streaming = false
	default:
		return camera.NewStatusError("SendCommand", camera.StatusNotImplemented)
	}
	return nil
}

// GetImage implements camera.Transport. It waits for the next frame slot of
// the device's frame interval, up to timeout.
func (t *Transport) GetImage(h camera.Handle, frame *camera.FrameDescriptor, timeout time.Duration) error {
	t.mu.Lock()
	dev, err := t.lookup("GetImage", h)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if !dev.streaming {
		t.mu.Unlock()
		return camera.NewStatusError("GetImage", camera.StatusInvalidCall)
	}
	wait := time.Until(dev.nextFrame)
	t.mu.Unlock()

	if wait > 0 {
		if wait > timeout {
			time.Sleep(timeout)
			return camera.NewStatusError("GetImage", camera.StatusTimeout)
		}
		time.Sleep(wait)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if dev, err = t.lookup("GetImage", h); err != nil {
		return err
	}
	if !dev.streaming {
		return camera.NewStatusError("GetImage", camera.StatusInvalidCall)
	}

	size := dev.cfg.Width * dev.cfg.Height * dev.cfg.bytesPerPixel()
	if len(frame.Buffer) < size {
		return camera.NewStatusError("GetImage", camera.StatusNeedMoreBuffer)
	}

	dev.frameID++
	render(frame.Buffer[:size], dev.cfg, dev.frameID)

	now := time.Now()
	dev.nextFrame = now.Add(dev.cfg.FrameInterval)

	frame.Width = dev.cfg.Width
	frame.Height = dev.cfg.Height
	frame.PixelFormat = dev.cfg.PixelFormat
	frame.ImageSize = size
	frame.FrameID = dev.frameID
	frame.Timestamp = uint64(now.UnixNano())
	return nil
}

func (t *Transport) lookup(op string, h camera.Handle) (*device, error) {
	if !t.initialized {
		return nil, camera.NewStatusError(op, camera.StatusNotInitAPI)
	}
	dev, ok := t.handles[h]
	if !ok {
		return nil, camera.NewStatusError(op, camera.StatusInvalidHandle)
	}
	return dev, nil
}
