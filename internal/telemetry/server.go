package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ServerOptions configures the embedded NATS server.
type ServerOptions struct {
	Host   string
	Port   int
	Name   string
	Logger *slog.Logger
}

// EmbeddedServer runs a NATS server inside the gxcam process.
type EmbeddedServer struct {
	ns     *server.Server
	opts   ServerOptions
	logger *slog.Logger
}

// NewEmbeddedServer creates a server; Start runs it.
func NewEmbeddedServer(opts ServerOptions) *EmbeddedServer {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port == 0 {
		opts.Port = 4222
	}
	if opts.Name == "" {
		opts.Name = "gxcam"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddedServer{
		opts:   opts,
		logger: logger.With("component", "nats-server"),
	}
}

// Start launches the server and waits until it accepts connections.
func (s *EmbeddedServer) Start() error {
	ns, err := server.NewServer(&server.Options{
		Host:       s.opts.Host,
		Port:       s.opts.Port,
		ServerName: s.opts.Name,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 64 * 1024,
	})
	if err != nil {
		return fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return fmt.Errorf("NATS server not ready within 5s")
	}

	s.ns = ns
	s.logger.Info("NATS server started", "url", s.ClientURL())
	return nil
}

// Stop shuts the server down and waits for it.
func (s *EmbeddedServer) Stop() {
	if s.ns == nil {
		return
	}
	s.logger.Info("Stopping NATS server")
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.ns = nil
}

// ClientURL is the URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	if s.ns == nil {
		return fmt.Sprintf("nats://%s:%d", s.opts.Host, s.opts.Port)
	}
	return s.ns.ClientURL()
}

// IsRunning reports whether the server accepts connections.
func (s *EmbeddedServer) IsRunning() bool {
	return s.ns != nil && s.ns.Running()
}
