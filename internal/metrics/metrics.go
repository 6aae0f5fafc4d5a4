// Package metrics exports Prometheus metrics for camera sessions. A
// Recorder feeds them from the event bus; a local cache backs the status
// API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gxcam"

var knownStates = []string{"uninitialized", "transport_ready", "opened", "capturing", "terminated"}

var (
	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "state",
		Help:      "1 for the current state of the session on a device, 0 otherwise",
	}, []string{"device", "state"})

	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "frames",
		Name:      "total",
		Help:      "Frames received from the device",
	}, []string{"device"})

	frameWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "frames",
		Name:      "wait_seconds",
		Help:      "Time UpdateFrame spent waiting for a frame",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"device"})

	framePollAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "frames",
		Name:      "poll_attempts",
		Help:      "Transport polls needed per frame",
		Buckets:   []float64{1, 2, 3, 5, 10, 25, 50},
	}, []string{"device"})

	frameSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "frames",
		Name:      "size_pixels",
		Help:      "Dimensions of the last frame",
	}, []string{"device", "axis"})

	conversionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "failures_total",
		Help:      "Color conversions that failed",
	}, []string{"device", "pixel_format"})

	cache   = make(map[int]*DeviceMetrics)
	cacheMu sync.RWMutex
)

// DeviceMetrics is the cached view of one device.
type DeviceMetrics struct {
	SessionID          string    `json:"session_id"`
	State              string    `json:"state"`
	Frames             uint64    `json:"frames"`
	LastFrameID        uint64    `json:"last_frame_id"`
	Width              int       `json:"width"`
	Height             int       `json:"height"`
	PixelFormat        string    `json:"pixel_format,omitempty"`
	ConversionFailures uint64    `json:"conversion_failures"`
	LastFrameAt        time.Time `json:"last_frame_at,omitzero"`
}

func deviceLabel(device int) string {
	return strconv.Itoa(device)
}

// SetSessionState records the state of the session on device.
func SetSessionState(device int, sessionID, state string) {
	label := deviceLabel(device)
	for _, s := range knownStates {
		v := 0.0
		if s == state {
			v = 1
		}
		sessionState.WithLabelValues(label, s).Set(v)
	}
	updateCache(device, func(m *DeviceMetrics) {
		m.SessionID = sessionID
		m.State = state
	})
}

// ObserveFrame records a received frame.
func ObserveFrame(device int, frameID uint64, width, height int, pixelFormat string, attempts int, wait time.Duration, at time.Time) {
	label := deviceLabel(device)
	framesTotal.WithLabelValues(label).Inc()
	frameWait.WithLabelValues(label).Observe(wait.Seconds())
	framePollAttempts.WithLabelValues(label).Observe(float64(attempts))
	frameSize.WithLabelValues(label, "width").Set(float64(width))
	frameSize.WithLabelValues(label, "height").Set(float64(height))

	updateCache(device, func(m *DeviceMetrics) {
		m.Frames++
		m.LastFrameID = frameID
		m.Width = width
		m.Height = height
		m.PixelFormat = pixelFormat
		m.LastFrameAt = at
	})
}

// IncConversionFailures records a failed color conversion.
func IncConversionFailures(device int, pixelFormat string) {
	conversionFailures.WithLabelValues(deviceLabel(device), pixelFormat).Inc()
	updateCache(device, func(m *DeviceMetrics) { m.ConversionFailures++ })
}

// DeleteDevice drops every series and the cache entry of device.
func DeleteDevice(device int) {
	label := prometheus.Labels{"device": deviceLabel(device)}
	sessionState.DeletePartialMatch(label)
	framesTotal.DeletePartialMatch(label)
	frameWait.DeletePartialMatch(label)
	framePollAttempts.DeletePartialMatch(label)
	frameSize.DeletePartialMatch(label)
	conversionFailures.DeletePartialMatch(label)

	cacheMu.Lock()
	delete(cache, device)
	cacheMu.Unlock()
}

// GetDeviceMetrics returns a copy of the cached values for device, or nil.
func GetDeviceMetrics(device int) *DeviceMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	if m, ok := cache[device]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllDeviceMetrics returns copies of all cached entries.
func GetAllDeviceMetrics() map[int]*DeviceMetrics {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	result := make(map[int]*DeviceMetrics, len(cache))
	for device, m := range cache {
		dup := *m
		result[device] = &dup
	}
	return result
}

func updateCache(device int, update func(*DeviceMetrics)) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	m, ok := cache[device]
	if !ok {
		m = &DeviceMetrics{}
		cache[device] = m
	}
	update(m)
}

// Handler serves every registered metric.
func Handler() http.Handler {
	return promhttp.Handler()
}
