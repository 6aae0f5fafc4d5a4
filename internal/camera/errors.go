package camera

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Session and Library operations.
var (
	ErrInvalidDeviceIndex     = errors.New("device index out of range")
	ErrAlreadyOpened          = errors.New("session already has a device open")
	ErrNotOpened              = errors.New("device not opened")
	ErrNotCapturing           = errors.New("capture not started")
	ErrInvalidPayloadSize     = errors.New("invalid payload size")
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	ErrInvalidPixelFormat     = errors.New("invalid pixel format")
	ErrFrameGeometry          = errors.New("frame geometry does not fit buffers")
	ErrNoKernel               = errors.New("no conversion kernel configured")
	ErrFrameTimeout           = errors.New("timed out waiting for frame")
	ErrNoFrame                = errors.New("no frame buffer")
	ErrStaleView              = errors.New("frame view is stale")
	ErrLibraryInUse           = errors.New("transport library held by another transport")
	ErrLibraryReleased        = errors.New("transport library handle released")
	ErrSessionReleased        = errors.New("session released")
)

// Status is a transport status code. Values follow the vendor GX_STATUS_*
// numbering so they can be matched against SDK documentation.
type Status int32

// Transport status codes.
const (
	StatusSuccess          Status = 0
	StatusUnspecified      Status = -1
	StatusNotFoundTL       Status = -2
	StatusNotFoundDevice   Status = -3
	StatusOffline          Status = -4
	StatusInvalidParameter Status = -5
	StatusInvalidHandle    Status = -6
	StatusInvalidCall      Status = -7
	StatusInvalidAccess    Status = -8
	StatusNeedMoreBuffer   Status = -9
	StatusErrorType        Status = -10
	StatusOutOfRange       Status = -11
	StatusNotImplemented   Status = -12
	StatusNotInitAPI       Status = -13
	StatusTimeout          Status = -14
)

var statusNames = map[Status]string{
	StatusSuccess:          "success",
	StatusUnspecified:      "unspecified error",
	StatusNotFoundTL:       "transport layer not found",
	StatusNotFoundDevice:   "device not found",
	StatusOffline:          "device offline",
	StatusInvalidParameter: "invalid parameter",
	StatusInvalidHandle:    "invalid handle",
	StatusInvalidCall:      "invalid call",
	StatusInvalidAccess:    "access denied",
	StatusNeedMoreBuffer:   "buffer too small",
	StatusErrorType:        "wrong feature type",
	StatusOutOfRange:       "value out of range",
	StatusNotImplemented:   "not implemented",
	StatusNotInitAPI:       "library not initialized",
	StatusTimeout:          "timeout",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status %d", int32(s))
}

// StatusError carries a failed transport call and its status code.
type StatusError struct {
	Op     string
	Status Status
}

// NewStatusError returns a *StatusError for op.
func NewStatusError(op string, status Status) error {
	return &StatusError{Op: op, Status: status}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Status, int32(e.Status))
}

// Is lets timeout statuses match ErrFrameTimeout.
func (e *StatusError) Is(target error) bool {
	return target == ErrFrameTimeout && e.Status == StatusTimeout
}

// StatusOf extracts the transport status from err. nil maps to
// StatusSuccess and errors without a status map to StatusUnspecified.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return StatusUnspecified
}
