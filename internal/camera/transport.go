package camera

import (
	"time"

	"github.com/quicoa/daheng-camera-class/internal/events"
)

// Handle identifies an open device within a Transport.
type Handle uint64

// Feature names a device property reachable through the transport.
type Feature int

// Device features used by the session.
const (
	FeaturePixelColorFilter Feature = iota + 1
	FeatureAcquisitionMode
	FeatureBalanceWhiteAuto
	FeaturePayloadSize
)

func (f Feature) String() string {
	switch f {
	case FeaturePixelColorFilter:
		return "PixelColorFilter"
	case FeatureAcquisitionMode:
		return "AcquisitionMode"
	case FeatureBalanceWhiteAuto:
		return "BalanceWhiteAuto"
	case FeaturePayloadSize:
		return "PayloadSize"
	default:
		return "Feature(unknown)"
	}
}

// Enumeration values written by the configuration sequence.
const (
	AcquisitionModeSingleFrame int64 = 0
	AcquisitionModeMultiFrame  int64 = 1
	AcquisitionModeContinuous  int64 = 2

	BalanceWhiteAutoOff        int64 = 0
	BalanceWhiteAutoContinuous int64 = 1
	BalanceWhiteAutoOnce       int64 = 2
)

// Command is a device command.
type Command int

// Acquisition commands.
const (
	CommandAcquisitionStart Command = iota + 1
	CommandAcquisitionStop
)

func (c Command) String() string {
	switch c {
	case CommandAcquisitionStart:
		return "AcquisitionStart"
	case CommandAcquisitionStop:
		return "AcquisitionStop"
	default:
		return "Command(unknown)"
	}
}

// OpenMode selects how OpenParams.Content is interpreted.
type OpenMode int

// Open modes.
const (
	OpenBySerial OpenMode = iota
	OpenByIP
	OpenByMAC
	OpenByIndex
)

// AccessMode is the access level requested when opening a device.
type AccessMode int

// Access modes.
const (
	AccessReadOnly  AccessMode = 2
	AccessControl   AccessMode = 3
	AccessExclusive AccessMode = 4
)

// OpenParams describes which device to open and how. With OpenByIndex the
// content is a 1-based decimal index.
type OpenParams struct {
	Content string
	Mode    OpenMode
	Access  AccessMode
}

// DeviceInfo describes an enumerated device. Index is 1-based, the same
// numbering OpenByIndex uses.
type DeviceInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Serial string `json:"serial,omitempty"`
	Path   string `json:"path,omitempty"`
	Color  bool   `json:"color"`
}

// FrameDescriptor is filled by Transport.GetImage. Buffer is supplied by the
// caller; the transport writes pixel data into it and sets the metadata.
type FrameDescriptor struct {
	Buffer      []byte
	Width       int
	Height      int
	PixelFormat PixelFormat
	ImageSize   int
	FrameID     uint64
	Timestamp   uint64
}

// Transport is the vendor device library. Implementations report failures
// as *StatusError where a status code is meaningful.
type Transport interface {
	InitLib() error
	CloseLib() error
	Devices() ([]DeviceInfo, error)
	OpenDevice(params OpenParams) (Handle, error)
	CloseDevice(h Handle) error
	IsImplemented(h Handle, f Feature) (bool, error)
	GetEnum(h Handle, f Feature) (int64, error)
	SetEnum(h Handle, f Feature, value int64) error
	GetInt(h Handle, f Feature) (int64, error)
	SendCommand(h Handle, c Command) error
	// GetImage waits up to timeout for the next frame. A zero timeout
	// returns immediately when no frame is ready.
	GetImage(h Handle, frame *FrameDescriptor, timeout time.Duration) error
}

// Kernel converts 8-bit Bayer data to packed 24-bit RGB. dst holds
// width*height*3 bytes and src width*height bytes.
type Kernel interface {
	Raw8ToRGB24(src, dst []byte, width, height int, mode Interpolation, pattern ColorFilter, flip bool) error
}

// Publisher receives session lifecycle events. *events.Bus satisfies it.
type Publisher interface {
	Publish(ev events.Event)
}
