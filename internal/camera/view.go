package camera

import (
	"fmt"
	"image"
)

// FrameView is a read-only token for one of the session buffers. It is
// valid until the next UpdateFrame or StopCapture on the owning session.
// Callers must not modify the slice returned by Bytes.
type FrameView struct {
	session    *Session
	data       []byte
	generation uint64

	Width    int
	Height   int
	Channels int
	// BytesPerSample is 2 for raw views of 10/12-bit frames, else 1.
	BytesPerSample int
	PixelFormat    PixelFormat
	FrameID        uint64
}

func (s *Session) newView(data []byte, channels int) FrameView {
	bps := 1
	if channels == 1 {
		bps = s.frame.PixelFormat.BytesPerSample()
	}
	return FrameView{
		session:        s,
		data:           data,
		generation:     s.generation,
		Width:          s.frame.Width,
		Height:         s.frame.Height,
		Channels:       channels,
		BytesPerSample: bps,
		PixelFormat:    s.frame.PixelFormat,
		FrameID:        s.frame.FrameID,
	}
}

// Err returns nil for a current view, ErrNoFrame for the zero view and
// ErrStaleView once the session has moved on.
func (v FrameView) Err() error {
	switch {
	case v.session == nil || v.data == nil:
		return ErrNoFrame
	case !v.session.capturing || v.session.generation != v.generation:
		return ErrStaleView
	default:
		return nil
	}
}

// Valid reports whether Bytes would return data.
func (v FrameView) Valid() bool {
	return v.Err() == nil
}

// Bytes returns the full backing buffer, or nil when the view is not valid.
// Its length is the buffer size, which may exceed Width*Height*Channels.
func (v FrameView) Bytes() []byte {
	if !v.Valid() {
		return nil
	}
	return v.data
}

// Stride is the row length in bytes.
func (v FrameView) Stride() int {
	bps := v.BytesPerSample
	if bps < 1 {
		bps = 1
	}
	return v.Width * v.Channels * bps
}

// Image copies the view into an image.Gray (one channel), image.Gray16
// (one channel of 10/12-bit samples, scaled to 16 bits) or image.RGBA
// (three channels).
func (v FrameView) Image() (image.Image, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}
	if v.Width <= 0 || v.Height <= 0 || v.Stride()*v.Height > len(v.data) {
		return nil, fmt.Errorf("%w: %dx%dx%d in %d bytes", ErrFrameGeometry, v.Width, v.Height, v.Channels, len(v.data))
	}

	rect := image.Rect(0, 0, v.Width, v.Height)
	switch v.Channels {
	case 1:
		if v.BytesPerSample == 2 {
			return v.gray16(rect), nil
		}
		img := image.NewGray(rect)
		copy(img.Pix, v.data[:v.Width*v.Height])
		return img, nil
	case 3:
		img := image.NewRGBA(rect)
		for i, j := 0, 0; i < v.Width*v.Height; i, j = i+1, j+3 {
			img.Pix[i*4] = v.data[j]
			img.Pix[i*4+1] = v.data[j+1]
			img.Pix[i*4+2] = v.data[j+2]
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", v.Channels)
	}
}

func (v FrameView) gray16(rect image.Rectangle) *image.Gray16 {
	shift := 16 - v.PixelFormat.BitDepth()
	if shift < 0 || shift >= 16 {
		shift = 0
	}
	img := image.NewGray16(rect)
	for i := 0; i < v.Width*v.Height; i++ {
		sample := uint16(v.data[2*i]) | uint16(v.data[2*i+1])<<8
		sample <<= shift
		img.Pix[2*i] = byte(sample >> 8)
		img.Pix[2*i+1] = byte(sample)
	}
	return img
}
