// Package v4l2 implements camera.Transport on top of Linux V4L2 capture
// nodes that deliver raw Bayer or grey frames, using go4vl.
package v4l2

import "github.com/quicoa/daheng-camera-class/internal/camera"

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// rawFormats maps V4L2 fourccs to camera pixel formats, in preference order.
var rawFormats = []struct {
	fourcc uint32
	format camera.PixelFormat
}{
	{fourcc('R', 'G', 'G', 'B'), camera.PixelFormatBayerRG8},
	{fourcc('G', 'R', 'B', 'G'), camera.PixelFormatBayerGR8},
	{fourcc('G', 'B', 'R', 'G'), camera.PixelFormatBayerGB8},
	{fourcc('B', 'A', '8', '1'), camera.PixelFormatBayerBG8},
	{fourcc('R', 'G', '1', '0'), camera.PixelFormatBayerRG10},
	{fourcc('B', 'A', '1', '0'), camera.PixelFormatBayerGR10},
	{fourcc('G', 'B', '1', '0'), camera.PixelFormatBayerGB10},
	{fourcc('B', 'G', '1', '0'), camera.PixelFormatBayerBG10},
	{fourcc('R', 'G', '1', '2'), camera.PixelFormatBayerRG12},
	{fourcc('B', 'A', '1', '2'), camera.PixelFormatBayerGR12},
	{fourcc('G', 'B', '1', '2'), camera.PixelFormatBayerGB12},
	{fourcc('B', 'G', '1', '2'), camera.PixelFormatBayerBG12},
	{fourcc('G', 'R', 'E', 'Y'), camera.PixelFormatMono8},
}

// pixelFormatOf returns the camera format for a fourcc.
func pixelFormatOf(code uint32) (camera.PixelFormat, bool) {
	for _, f := range rawFormats {
		if f.fourcc == code {
			return f.format, true
		}
	}
	return camera.PixelFormatUndefined, false
}

// parseFourCC parses a four character code such as "RGGB".
func parseFourCC(s string) (uint32, bool) {
	if len(s) != 4 {
		return 0, false
	}
	return fourcc(s[0], s[1], s[2], s[3]), true
}

// chooseFormat picks the preferred raw format out of what a node offers.
// A non-zero want restricts the choice to that fourcc.
func chooseFormat(offered []uint32, want uint32) (uint32, camera.PixelFormat, bool) {
	has := make(map[uint32]bool, len(offered))
	for _, code := range offered {
		has[code] = true
	}
	for _, f := range rawFormats {
		if (want == 0 || want == f.fourcc) && has[f.fourcc] {
			return f.fourcc, f.format, true
		}
	}
	return 0, camera.PixelFormatUndefined, false
}
