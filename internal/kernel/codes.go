// Package kernel provides the demosaic kernel used for color conversion,
// backed by OpenCV through gocv.
package kernel

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/quicoa/daheng-camera-class/internal/camera"
)

// OpenCV names Bayer patterns by the second row, so a sensor whose first
// row starts R,G is OpenCV's "BG" pattern.
var bayerCodes = map[camera.Interpolation]map[camera.ColorFilter]gocv.ColorConversionCode{
	camera.InterpolationNeighbour: {
		camera.ColorFilterRG: gocv.ColorBayerBGToRGB,
		camera.ColorFilterGR: gocv.ColorBayerGBToRGB,
		camera.ColorFilterGB: gocv.ColorBayerGRToRGB,
		camera.ColorFilterBG: gocv.ColorBayerRGToRGB,
	},
	camera.InterpolationAdaptive: {
		camera.ColorFilterRG: gocv.ColorBayerBGToRGBEA,
		camera.ColorFilterGR: gocv.ColorBayerGBToRGBEA,
		camera.ColorFilterGB: gocv.ColorBayerGRToRGBEA,
		camera.ColorFilterBG: gocv.ColorBayerRGToRGBEA,
	},
	camera.InterpolationVNG: {
		camera.ColorFilterRG: gocv.ColorBayerBGToRGBVNG,
		camera.ColorFilterGR: gocv.ColorBayerGBToRGBVNG,
		camera.ColorFilterGB: gocv.ColorBayerGRToRGBVNG,
		camera.ColorFilterBG: gocv.ColorBayerRGToRGBVNG,
	},
}

// conversionCode returns the OpenCV code for a sensor pattern.
func conversionCode(mode camera.Interpolation, pattern camera.ColorFilter) (gocv.ColorConversionCode, error) {
	codes, ok := bayerCodes[mode]
	if !ok {
		return 0, fmt.Errorf("unsupported interpolation %s", mode)
	}
	code, ok := codes[pattern]
	if !ok {
		return 0, fmt.Errorf("unsupported color filter %s", pattern)
	}
	return code, nil
}
