//go:build linux

package v4l2

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/logging"
)

type node struct {
	path    string
	card    string
	bus     string
	formats []uint32
	width   uint32
	height  uint32
}

type stream struct {
	node    node
	dev     *device.Device
	format  camera.PixelFormat
	pix     v4l2.PixFormat
	acqMode int64
	awb     int64
	cancel  context.CancelFunc
	frameID uint64
}

// Transport exposes raw V4L2 capture nodes as camera devices. Device N is
// the N-th capture node (1-based) in path order that offers a raw format.
type Transport struct {
	opts   Options
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	nodes       []node
	handles     map[camera.Handle]*stream
	inUse       map[string]bool
	nextHandle  camera.Handle
}

// New creates a V4L2 transport.
func New(opts Options, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = logging.GetLogger("transport")
	}
	return &Transport{
		opts:    opts.withDefaults(),
		logger:  logger.With("transport", "v4l2"),
		handles: make(map[camera.Handle]*stream),
		inUse:   make(map[string]bool),
	}
}

// InitLib implements camera.Transport. It scans for capture nodes.
func (t *Transport) InitLib() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	nodes, err := t.scan()
	if err != nil {
		return err
	}
	t.nodes = nodes
	t.initialized = true
	t.logger.Info("V4L2 transport ready", "nodes", len(nodes))
	return nil
}

// scan inspects every node matching the device pattern.
func (t *Transport) scan() ([]node, error) {
	paths, err := filepath.Glob(t.opts.DevicePattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", t.opts.DevicePattern, err)
	}
	sort.Strings(paths)

	var nodes []node
	for _, path := range paths {
		n, err := inspectNode(path)
		if err != nil {
			t.logger.Debug("Skipping video node", "path", path, "error", err)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func inspectNode(path string) (node, error) {
	dev, err := device.Open(path)
	if err != nil {
		return node{}, err
	}
	defer dev.Close()

	caps := dev.Capability()
	if !caps.IsVideoCaptureSupported() {
		return node{}, fmt.Errorf("not a capture device")
	}

	descs, err := dev.GetFormatDescriptions()
	if err != nil {
		return node{}, fmt.Errorf("format descriptions: %w", err)
	}

	n := node{path: path, card: caps.Card, bus: caps.BusInfo}
	for _, d := range descs {
		if _, ok := pixelFormatOf(uint32(d.PixelFormat)); ok {
			n.formats = append(n.formats, uint32(d.PixelFormat))
		}
	}
	if len(n.formats) == 0 {
		return node{}, fmt.Errorf("no raw pixel format")
	}

	if pix, err := dev.GetPixFormat(); err == nil {
		n.width, n.height = pix.Width, pix.Height
	}
	return n, nil
}

// CloseLib implements camera.Transport.
func (t *Transport) CloseLib() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return camera.NewStatusError("CloseLib", camera.StatusNotInitAPI)
	}
	for h, s := range t.handles {
		t.closeStream(s)
		delete(t.handles, h)
	}
	t.inUse = make(map[string]bool)
	t.initialized = false
	return nil
}

// Devices implements camera.Transport.
func (t *Transport) Devices() ([]camera.DeviceInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return nil, camera.NewStatusError("Devices", camera.StatusNotInitAPI)
	}

	infos := make([]camera.DeviceInfo, len(t.nodes))
	for i, n := range t.nodes {
		_, format, _ := chooseFormat(n.formats, t.opts.fourcc)
		infos[i] = camera.DeviceInfo{
			Index:  i + 1,
			Name:   n.card,
			Serial: n.bus,
			Path:   n.path,
			Color:  format.Filter() != camera.ColorFilterNone,
		}
	}
	return infos, nil
}

// OpenDevice implements camera.Transport. OpenByIndex and OpenBySerial (bus
// info) are supported. Exclusivity is enforced within this process.
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
		for i, n := range t.nodes {
			if n.bus == params.Content {
				slot = i
			}
		}
	default:
		return 0, camera.NewStatusError("OpenDevice", camera.StatusNotImplemented)
	}
	if slot < 0 || slot >= len(t.nodes) {
		return 0, camera.NewStatusError("OpenDevice", camera.StatusNotFoundDevice)
	}

	n := t.nodes[slot]
	if t.inUse[n.path] {
		return 0, camera.NewStatusError("OpenDevice", camera.StatusInvalidAccess)
	}

	code, format, ok := chooseFormat(n.formats, t.opts.fourcc)
	if !ok {
		return 0, camera.NewStatusError("OpenDevice", camera.StatusInvalidParameter)
	}

	width, height := n.width, n.height
	if t.opts.Width > 0 && t.opts.Height > 0 {
		width, height = uint32(t.opts.Width), uint32(t.opts.Height)
	}

	options := []device.Option{
		device.WithIOType(v4l2.IOTypeMMAP),
		device.WithBufferSize(uint32(t.opts.Buffers)),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.FourCCType(code),
			Width:       width,
			Height:      height,
			Field:       v4l2.FieldNone,
		}),
	}
	if t.opts.FPS > 0 {
		options = append(options, device.WithFPS(uint32(t.opts.FPS)))
	}

	dev, err := device.Open(n.path, options...)
	if err != nil {
		t.logger.Warn("Failed to open video node", "path", n.path, "error", err)
		return 0, camera.NewStatusError("OpenDevice", camera.StatusOffline)
	}

	pix, err := dev.GetPixFormat()
	if err != nil {
		_ = dev.Close()
		return 0, camera.NewStatusError("OpenDevice", camera.StatusUnspecified)
	}

	t.nextHandle++
	h := t.nextHandle
	t.handles[h] = &stream{node: n, dev: dev, format: format, pix: pix}
	if params.Access != camera.AccessReadOnly {
		t.inUse[n.path] = true
	}

	t.logger.Info("Video node opened",
		"path", n.path,
		"card", n.card,
		"format", format.String(),
		"width", pix.Width,
		"height", pix.Height,
		"size_image", pix.SizeImage)
	return h, nil
}

// CloseDevice implements camera.Transport.
func (t *Transport) CloseDevice(h camera.Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookup("CloseDevice", h)
	if err != nil {
		return err
	}
	t.closeStream(s)
	delete(t.handles, h)
	delete(t.inUse, s.node.path)
	return nil
}

func (t *Transport) closeStream(s *stream) {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if err := s.dev.Close(); err != nil {
		t.logger.Warn("Failed to close video node", "path", s.node.path, "error", err)
	}
}

// IsImplemented implements camera.Transport.
func (t *Transport) IsImplemented(h camera.Handle, f camera.Feature) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookup("IsImplemented", h)
	if err != nil {
		return false, err
	}
	switch f {
	case camera.FeaturePixelColorFilter:
		return s.format.Filter() != camera.ColorFilterNone, nil
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
	s, err := t.lookup("GetEnum", h)
	if err != nil {
		return 0, err
	}
	switch f {
	case camera.FeaturePixelColorFilter:
		filter := s.format.Filter()
		if filter == camera.ColorFilterNone {
			return 0, camera.NewStatusError("GetEnum", camera.StatusNotImplemented)
		}
		return int64(filter), nil
	case camera.FeatureAcquisitionMode:
		return s.acqMode, nil
	case camera.FeatureBalanceWhiteAuto:
		return s.awb, nil
	default:
		return 0, camera.NewStatusError("GetEnum", camera.StatusErrorType)
	}
}

// SetEnum implements camera.Transport. V4L2 streaming is always
// continuous, so only that acquisition mode is accepted. White balance maps
// to the auto white balance control; nodes without the control (typical
// for raw sensor pipelines) keep the requested value without error.
func (t *Transport) SetEnum(h camera.Handle, f camera.Feature, value int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookup("SetEnum", h)
	if err != nil {
		return err
	}
	switch f {
	case camera.FeatureAcquisitionMode:
		if value != camera.AcquisitionModeContinuous {
			return camera.NewStatusError("SetEnum", camera.StatusOutOfRange)
		}
		s.acqMode = value
	case camera.FeatureBalanceWhiteAuto:
		if value < camera.BalanceWhiteAutoOff || value > camera.BalanceWhiteAutoOnce {
			return camera.NewStatusError("SetEnum", camera.StatusOutOfRange)
		}
		var ctrl int32
		if value != camera.BalanceWhiteAutoOff {
			ctrl = 1
		}
		if err := s.dev.SetControlValue(v4l2.CtrlAutoWhiteBalance, ctrl); err != nil {
			t.logger.Debug("Auto white balance control unavailable", "path", s.node.path, "error", err)
		}
		s.awb = value
	default:
		return camera.NewStatusError("SetEnum", camera.StatusErrorType)
	}
	return nil
}

// GetInt implements camera.Transport.
func (t *Transport) GetInt(h camera.Handle, f camera.Feature) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookup("GetInt", h)
	if err != nil {
		return 0, err
	}
	if f != camera.FeaturePayloadSize {
		return 0, camera.NewStatusError("GetInt", camera.StatusErrorType)
	}
	size := int64(s.pix.SizeImage)
	if size == 0 {
		size = int64(s.pix.BytesPerLine) * int64(s.pix.Height)
	}
	return size, nil
}

// SendCommand implements camera.Transport.
func (t *Transport) SendCommand(h camera.Handle, c camera.Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookup("SendCommand", h)
	if err != nil {
		return err
	}

	switch c {
	case camera.CommandAcquisitionStart:
		if s.cancel != nil {
			return nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		if err := s.dev.Start(ctx); err != nil {
			cancel()
			t.logger.Error("Failed to start streaming", "path", s.node.path, "error", err)
			return camera.NewStatusError("SendCommand", camera.StatusInvalidCall)
		}
		s.cancel = cancel
	case camera.CommandAcquisitionStop:
		if s.cancel == nil {
			return nil
		}
		s.cancel()
		s.cancel = nil
		if err := s.dev.Stop(); err != nil {
			t.logger.Warn("Failed to stop streaming", "path", s.node.path, "error", err)
			return camera.NewStatusError("SendCommand", camera.StatusUnspecified)
		}
	default:
		return camera.NewStatusError("SendCommand", camera.StatusNotImplemented)
	}
	return nil
}

// GetImage implements camera.Transport.
func (t *Transport) GetImage(h camera.Handle, frame *camera.FrameDescriptor, timeout time.Duration) error {
	t.mu.Lock()
	s, err := t.lookup("GetImage", h)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if s.cancel == nil {
		t.mu.Unlock()
		return camera.NewStatusError("GetImage", camera.StatusInvalidCall)
	}
	output := s.dev.GetOutput()
	t.mu.Unlock()

	var data []byte
	var ok bool
	if timeout <= 0 {
		select {
		case data, ok = <-output:
		default:
			return camera.NewStatusError("GetImage", camera.StatusTimeout)
		}
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case data, ok = <-output:
		case <-timer.C:
			return camera.NewStatusError("GetImage", camera.StatusTimeout)
		}
	}
	if !ok {
		return camera.NewStatusError("GetImage", camera.StatusOffline)
	}
	if len(data) > len(frame.Buffer) {
		return camera.NewStatusError("GetImage", camera.StatusNeedMoreBuffer)
	}

	t.mu.Lock()
	s.frameID++
	frameID := s.frameID
	t.mu.Unlock()

	copy(frame.Buffer, data)
	frame.Width = int(s.pix.Width)
	frame.Height = int(s.pix.Height)
	frame.PixelFormat = s.format
	frame.ImageSize = len(data)
	frame.FrameID = frameID
	frame.Timestamp = uint64(time.Now().UnixNano())
	return nil
}

func (t *Transport) lookup(op string, h camera.Handle) (*stream, error) {
	if !t.initialized {
		return nil, camera.NewStatusError(op, camera.StatusNotInitAPI)
	}
	s, ok := t.handles[h]
	if !ok {
		return nil, camera.NewStatusError(op, camera.StatusInvalidHandle)
	}
	return s, nil
}
