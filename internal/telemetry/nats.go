package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// StatusFunc produces the reply to a status request.
type StatusFunc func() any

// NATSSink publishes telemetry to NATS and answers status requests.
type NATSSink struct {
	url    string
	prefix string
	status StatusFunc
	logger *slog.Logger

	mu        sync.RWMutex
	conn      *nats.Conn
	sub       *nats.Subscription
	connected bool
}

// NewNATSSink creates a sink. status may be nil to skip the responder.
func NewNATSSink(url, prefix string, status StatusFunc, logger *slog.Logger) *NATSSink {
	return &NATSSink{
		url:    url,
		prefix: prefix,
		status: status,
		logger: logger.With("sink", "nats"),
	}
}

// Connect dials the server. On failure the sink stays usable as a no-op.
func (s *NATSSink) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := nats.Connect(s.url,
		nats.Name("gxcam"),
		nats.Timeout(2*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.setConnected(false)
			if err != nil {
				s.logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			s.setConnected(true)
			s.logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		s.logger.Warn("Failed to connect to NATS, telemetry disabled", "url", s.url, "error", err)
		return err
	}
	s.conn = conn
	s.connected = true

	if s.status != nil {
		sub, err := conn.Subscribe(StatusSubject(s.prefix), s.handleStatus)
		if err != nil {
			s.logger.Warn("Failed to subscribe to status requests", "error", err)
		} else {
			s.sub = sub
		}
	}

	s.logger.Info("Connected to NATS", "url", s.url)
	return nil
}

func (s *NATSSink) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *NATSSink) handleStatus(msg *nats.Msg) {
	data, err := marshal(s.status())
	if err != nil {
		s.logger.Warn("Failed to marshal status", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Debug("Failed to answer status request", "error", err)
	}
}

// Publish implements Sink.
func (s *NATSSink) Publish(subject string, data []byte) {
	s.mu.RLock()
	conn, connected := s.conn, s.connected
	s.mu.RUnlock()
	if conn == nil || !connected {
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		s.logger.Debug("Failed to publish", "subject", subject, "error", err)
	}
}

// IsConnected reports whether messages are being delivered.
func (s *NATSSink) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil && s.connected
}

// Close implements Sink.
func (s *NATSSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
		s.sub = nil
	}
	if s.conn != nil {
		if err := s.conn.Drain(); err != nil {
			s.conn.Close()
		}
		s.conn = nil
	}
	s.connected = false
}
