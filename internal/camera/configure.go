package camera

import "fmt"

// MaxPayloadSize bounds the payload size Open accepts. The color buffer is
// three times this.
const MaxPayloadSize = 256 << 20

// DeviceConfig is what Open learned about the device.
type DeviceConfig struct {
	SupportsColor bool        `json:"supports_color"`
	FilterPattern ColorFilter `json:"filter_pattern"`
	Channels      int         `json:"channels"`
	ImageSize     int64       `json:"image_size"`
}

// configure runs the capability and mode sequence against an open handle.
// Order matters: capability discovery first, then acquisition mode, white
// balance and finally the payload size the buffers are sized from.
func configure(t Transport, h Handle) (DeviceConfig, error) {
	var cfg DeviceConfig

	color, err := t.IsImplemented(h, FeaturePixelColorFilter)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("query color filter support: %w", err)
	}
	cfg.SupportsColor = color

	if color {
		pattern, err := t.GetEnum(h, FeaturePixelColorFilter)
		if err != nil {
			return DeviceConfig{}, fmt.Errorf("read color filter: %w", err)
		}
		cfg.FilterPattern = ColorFilter(pattern)
		cfg.Channels = 3
	} else {
		cfg.FilterPattern = ColorFilterNone
		cfg.Channels = 1
	}

	if err := t.SetEnum(h, FeatureAcquisitionMode, AcquisitionModeContinuous); err != nil {
		return DeviceConfig{}, fmt.Errorf("set continuous acquisition: %w", err)
	}

	if err := t.SetEnum(h, FeatureBalanceWhiteAuto, BalanceWhiteAutoContinuous); err != nil {
		return DeviceConfig{}, fmt.Errorf("enable continuous white balance: %w", err)
	}

	size, err := t.GetInt(h, FeaturePayloadSize)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("read payload size: %w", err)
	}
	if size <= 0 || size > MaxPayloadSize {
		return DeviceConfig{}, fmt.Errorf("%w: %d", ErrInvalidPayloadSize, size)
	}
	cfg.ImageSize = size

	return cfg, nil
}

// Config returns the configuration discovered by the last successful Open.
func (s *Session) Config() DeviceConfig { return s.config }

// SupportsColor reports whether the sensor has a color filter array.
func (s *Session) SupportsColor() bool { return s.config.SupportsColor }

// FilterPattern returns the sensor's Bayer phase, or ColorFilterNone.
func (s *Session) FilterPattern() ColorFilter { return s.config.FilterPattern }

// Channels is 3 for color sensors and 1 otherwise.
func (s *Session) Channels() int { return s.config.Channels }

// ImageSize is the device payload size in bytes. It sizes the buffers and
// may exceed width*height of any given frame.
func (s *Session) ImageSize() int64 { return s.config.ImageSize }
