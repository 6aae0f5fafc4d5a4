package telemetry

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSink publishes telemetry to an MQTT broker. Dots in subjects become
// topic separators.
type MQTTSink struct {
	client mqtt.Client
	logger *slog.Logger
}

// MQTTOptions configures the MQTT sink.
type MQTTOptions struct {
	Broker   string
	ClientID string
	// ConnectTimeout bounds the initial connect.
	ConnectTimeout time.Duration
}

// NewMQTTSink creates a sink; Connect dials the broker.
func NewMQTTSink(opts MQTTOptions, logger *slog.Logger) *MQTTSink {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	logger = logger.With("sink", "mqtt")

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", "error", err)
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			logger.Info("Connected to MQTT broker", "broker", opts.Broker)
		})

	return &MQTTSink{
		client: mqtt.NewClient(clientOpts),
		logger: logger,
	}
}

// Connect dials the broker. On failure the sink stays usable as a no-op.
func (s *MQTTSink) Connect(timeout time.Duration) error {
	token := s.client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("MQTT connect timed out after %s", timeout)
	}
	if err := token.Error(); err != nil {
		s.logger.Warn("Failed to connect to MQTT broker, telemetry disabled", "error", err)
		return err
	}
	return nil
}

// Topic converts a subject to an MQTT topic.
func Topic(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}

// Publish implements Sink. QoS 0, not retained.
func (s *MQTTSink) Publish(subject string, data []byte) {
	if !s.client.IsConnectionOpen() {
		return
	}
	s.client.Publish(Topic(subject), 0, false, data)
}

// IsConnected reports whether the broker connection is up.
func (s *MQTTSink) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// Close implements Sink.
func (s *MQTTSink) Close() {
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}
