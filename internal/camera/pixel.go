package camera

import (
	"fmt"
	"strings"
)

// PixelFormat identifies the layout of a raw frame. Values are GenICam PFNC
// codes, which is what the vendor transport reports.
type PixelFormat uint32

// Pixel formats reported by the transport.
const (
	PixelFormatUndefined PixelFormat = 0
	PixelFormatMono8     PixelFormat = 0x01080001
	PixelFormatBayerGR8  PixelFormat = 0x01080008
	PixelFormatBayerRG8  PixelFormat = 0x01080009
	PixelFormatBayerGB8  PixelFormat = 0x0108000A
	PixelFormatBayerBG8  PixelFormat = 0x0108000B
	PixelFormatBayerGR10 PixelFormat = 0x0110000C
	PixelFormatBayerRG10 PixelFormat = 0x0110000D
	PixelFormatBayerGB10 PixelFormat = 0x0110000E
	PixelFormatBayerBG10 PixelFormat = 0x0110000F
	PixelFormatBayerGR12 PixelFormat = 0x01100010
	PixelFormatBayerRG12 PixelFormat = 0x01100011
	PixelFormatBayerGB12 PixelFormat = 0x01100012
	PixelFormatBayerBG12 PixelFormat = 0x01100013
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatMono8:     "Mono8",
	PixelFormatBayerGR8:  "BayerGR8",
	PixelFormatBayerRG8:  "BayerRG8",
	PixelFormatBayerGB8:  "BayerGB8",
	PixelFormatBayerBG8:  "BayerBG8",
	PixelFormatBayerGR10: "BayerGR10",
	PixelFormatBayerRG10: "BayerRG10",
	PixelFormatBayerGB10: "BayerGB10",
	PixelFormatBayerBG10: "BayerBG10",
	PixelFormatBayerGR12: "BayerGR12",
	PixelFormatBayerRG12: "BayerRG12",
	PixelFormatBayerGB12: "BayerGB12",
	PixelFormatBayerBG12: "BayerBG12",
}

func (p PixelFormat) String() string {
	if name, ok := pixelFormatNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PixelFormat(0x%08X)", uint32(p))
}

// IsBayer8 reports whether p is one of the four 8-bit Bayer layouts.
func (p PixelFormat) IsBayer8() bool {
	return p >= PixelFormatBayerGR8 && p <= PixelFormatBayerBG8
}

// IsBayerHighBit reports whether p is a 10- or 12-bit Bayer layout.
func (p PixelFormat) IsBayerHighBit() bool {
	return p >= PixelFormatBayerGR10 && p <= PixelFormatBayerBG12
}

// BitDepth is the number of significant bits per sample, or 0 for an
// unknown format.
func (p PixelFormat) BitDepth() int {
	switch {
	case p == PixelFormatMono8 || p.IsBayer8():
		return 8
	case p >= PixelFormatBayerGR10 && p <= PixelFormatBayerBG10:
		return 10
	case p >= PixelFormatBayerGR12 && p <= PixelFormatBayerBG12:
		return 12
	default:
		return 0
	}
}

// BytesPerSample is the storage size of one raw sample. 10/12-bit layouts
// are unpacked to little-endian 16-bit words.
func (p PixelFormat) BytesPerSample() int {
	if p.IsBayerHighBit() {
		return 2
	}
	return 1
}

// Filter returns the 2x2 mosaic phase encoded in a Bayer format, or
// ColorFilterNone for anything else.
func (p PixelFormat) Filter() ColorFilter {
	if !p.IsBayer8() && !p.IsBayerHighBit() {
		return ColorFilterNone
	}
	switch (uint32(p) - uint32(PixelFormatBayerGR8)) % 4 {
	case 0:
		return ColorFilterGR
	case 1:
		return ColorFilterRG
	case 2:
		return ColorFilterGB
	default:
		return ColorFilterBG
	}
}

// ParsePixelFormat parses a format name such as "BayerRG8" (case-insensitive).
func ParsePixelFormat(name string) (PixelFormat, error) {
	for format, formatName := range pixelFormatNames {
		if strings.EqualFold(formatName, name) {
			return format, nil
		}
	}
	return PixelFormatUndefined, fmt.Errorf("unknown pixel format %q", name)
}

// ColorFilter is the 2x2 color filter array pattern of a sensor. Values
// match the transport's color filter enumeration.
type ColorFilter int64

// Color filter patterns.
const (
	ColorFilterNone ColorFilter = iota
	ColorFilterRG
	ColorFilterGB
	ColorFilterGR
	ColorFilterBG
)

var colorFilterNames = [...]string{"none", "RG", "GB", "GR", "BG"}

func (c ColorFilter) String() string {
	if c >= 0 && int(c) < len(colorFilterNames) {
		return colorFilterNames[c]
	}
	return fmt.Sprintf("ColorFilter(%d)", int64(c))
}

// IsBayer reports whether c names one of the four Bayer phases.
func (c ColorFilter) IsBayer() bool {
	return c >= ColorFilterRG && c <= ColorFilterBG
}

// ParseColorFilter parses "RG", "GB", "GR", "BG" or "none".
func ParseColorFilter(name string) (ColorFilter, error) {
	for i, filterName := range colorFilterNames {
		if strings.EqualFold(filterName, name) {
			return ColorFilter(i), nil
		}
	}
	return ColorFilterNone, fmt.Errorf("unknown color filter %q", name)
}

// Interpolation selects the demosaic algorithm.
type Interpolation int

// Interpolation modes.
const (
	InterpolationNeighbour Interpolation = iota
	InterpolationAdaptive
	InterpolationVNG
)

func (m Interpolation) String() string {
	switch m {
	case InterpolationNeighbour:
		return "neighbour"
	case InterpolationAdaptive:
		return "adaptive"
	case InterpolationVNG:
		return "vng"
	default:
		return fmt.Sprintf("Interpolation(%d)", int(m))
	}
}

// ParseInterpolation parses "neighbour" (or "neighbor"), "adaptive" or "vng".
// The empty string selects neighbour.
func ParseInterpolation(name string) (Interpolation, error) {
	switch strings.ToLower(name) {
	case "", "neighbour", "neighbor":
		return InterpolationNeighbour, nil
	case "adaptive", "edge-aware", "ea":
		return InterpolationAdaptive, nil
	case "vng":
		return InterpolationVNG, nil
	default:
		return InterpolationNeighbour, fmt.Errorf("unknown interpolation %q", name)
	}
}
