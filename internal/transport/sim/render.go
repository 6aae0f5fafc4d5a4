package sim

import "github.com/quicoa/daheng-camera-class/internal/camera"

// bars are the eight SMPTE-style color bars as RGB.
var bars = [8][3]byte{
	{235, 235, 235},
	{235, 235, 16},
	{16, 235, 235},
	{16, 235, 16},
	{235, 16, 235},
	{235, 16, 16},
	{16, 16, 235},
	{16, 16, 16},
}

// mosaic maps a Bayer phase to the channel sampled at [y%2][x%2].
// Channel indices: 0 red, 1 green, 2 blue.
var mosaic = map[camera.ColorFilter][2][2]int{
	camera.ColorFilterRG: {{0, 1}, {1, 2}},
	camera.ColorFilterGB: {{1, 2}, {0, 1}},
	camera.ColorFilterGR: {{1, 0}, {2, 1}},
	camera.ColorFilterBG: {{2, 1}, {1, 0}},
}

// render fills buf with color bars scrolled by frameID. 10/12-bit formats
// are written as little-endian 16-bit samples.
func render(buf []byte, cfg DeviceConfig, frameID uint64) {
	filter := cfg.PixelFormat.Filter()
	layout, color := mosaic[filter]
	shift := 0
	switch {
	case cfg.PixelFormat.IsBayerHighBit() && (cfg.PixelFormat >= camera.PixelFormatBayerGR12):
		shift = 4
	case cfg.PixelFormat.IsBayerHighBit():
		shift = 2
	}

	offset := int(frameID*4) % cfg.Width
	for y := range cfg.Height {
		for x := range cfg.Width {
			bar := bars[((x+offset)%cfg.Width)*len(bars)/cfg.Width]

			var v byte
			if color {
				v = bar[layout[y%2][x%2]]
			} else {
				v = byte((int(bar[0])*299 + int(bar[1])*587 + int(bar[2])*114) / 1000)
			}

			i := y*cfg.Width + x
			if shift == 0 {
				buf[i] = v
				continue
			}
			sample := uint16(v) << shift
			buf[2*i] = byte(sample)
			buf[2*i+1] = byte(sample >> 8)
		}
	}
}
