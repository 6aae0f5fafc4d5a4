package camera

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	libMu        sync.Mutex
	libTransport Transport
	libRefs      int
)

// Library is a counted reference to the process-wide transport library.
type Library struct {
	transport Transport
	released  atomic.Bool
}

// AcquireLibrary returns a reference to the transport library, initializing
// it on the first acquisition. Only one transport may be live per process.
func AcquireLibrary(t Transport) (*Library, error) {
	if t == nil {
		return nil, errors.New("acquire transport library: nil transport")
	}

	libMu.Lock()
	defer libMu.Unlock()

	if libRefs > 0 && libTransport != t {
		return nil, ErrLibraryInUse
	}
	if libRefs == 0 {
		if err := t.InitLib(); err != nil {
			return nil, fmt.Errorf("init transport library: %w", err)
		}
		libTransport = t
	}
	libRefs++

	return &Library{transport: t}, nil
}

// Transport returns the underlying transport.
func (l *Library) Transport() Transport {
	return l.transport
}

// Devices enumerates the devices visible to the transport.
func (l *Library) Devices() ([]DeviceInfo, error) {
	if l.released.Load() {
		return nil, ErrLibraryReleased
	}
	return l.transport.Devices()
}

// Released reports whether Release has been called on this handle.
func (l *Library) Released() bool {
	return l.released.Load()
}

// Release drops this reference. The last reference closes the library.
// Calling Release more than once is a no-op.
func (l *Library) Release() error {
	if !l.released.CompareAndSwap(false, true) {
		return nil
	}

	libMu.Lock()
	defer libMu.Unlock()

	libRefs--
	if libRefs > 0 {
		return nil
	}
	libRefs = 0
	libTransport = nil

	if err := l.transport.CloseLib(); err != nil {
		return fmt.Errorf("close transport library: %w", err)
	}
	return nil
}
