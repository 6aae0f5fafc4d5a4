package v4l2

// Options configures the V4L2 transport.
type Options struct {
	// DevicePattern is globbed to find capture nodes.
	DevicePattern string
	// Width and Height request a capture size; zero keeps the driver's.
	Width  int
	Height int
	// FourCC forces a pixel format such as "RGGB"; empty picks the first
	// raw format the node offers.
	FourCC  string
	FPS     int
	Buffers int

	fourcc uint32
}

func (o Options) withDefaults() Options {
	if o.DevicePattern == "" {
		o.DevicePattern = "/dev/video*"
	}
	if o.Buffers <= 0 {
		o.Buffers = 4
	}
	if code, ok := parseFourCC(o.FourCC); ok {
		o.fourcc = code
	}
	return o
}
