package camera

import (
	"fmt"
	"strconv"
)

// State is the lifecycle state of a Session.
type State string

// Session states.
const (
	StateUninitialized  State = "uninitialized"
	StateTransportReady State = "transport_ready"
	StateOpened         State = "opened"
	StateCapturing      State = "capturing"
	StateTerminated     State = "terminated"
)

// DeviceIndex selects a device by enumeration order, starting at 0.
type DeviceIndex uint8

// MaxDeviceIndex is the highest index Open accepts.
const MaxDeviceIndex DeviceIndex = 9

// Valid reports whether i is within [0, MaxDeviceIndex].
func (i DeviceIndex) Valid() bool {
	return i <= MaxDeviceIndex
}

// openContent renders the 1-based index the transport expects.
func (i DeviceIndex) openContent() string {
	return strconv.Itoa(int(i) + 1)
}

// ParseDeviceIndex validates n and converts it to a DeviceIndex.
func ParseDeviceIndex(n int) (DeviceIndex, error) {
	if n < 0 || n > int(MaxDeviceIndex) {
		return 0, fmt.Errorf("%w: %d (allowed 0-%d)", ErrInvalidDeviceIndex, n, MaxDeviceIndex)
	}
	return DeviceIndex(n), nil
}
