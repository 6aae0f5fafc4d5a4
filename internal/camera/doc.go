// Package camera drives a single machine-vision camera through a
// vendor-style Transport.
//
// A Session walks the lifecycle
//
//	TransportReady -> Opened -> Capturing -> Opened -> TransportReady -> Terminated
//
// Open configures the device in a fixed order (color filter discovery,
// continuous acquisition, continuous auto white balance, payload size) and
// closes it again if any step fails. StartCapture allocates a gray buffer of
// ImageSize bytes and a color buffer three times that size; StopCapture
// releases them. UpdateFrame polls the transport until a frame arrives or
// the context ends, and ConvertToColor demosaics 8-bit Bayer frames through
// a Kernel.
//
// Frame data is handed out as FrameView tokens that go stale on the next
// UpdateFrame or StopCapture. A Session is owned by one goroutine; only
// State may be read concurrently.
//
// The transport library itself is process-wide. AcquireLibrary and
// Library.Release reference-count it so the first holder initializes it and
// the last holder tears it down.
package camera
