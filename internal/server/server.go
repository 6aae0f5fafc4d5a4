// Package server exposes health, metrics and session status over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quicoa/daheng-camera-class/internal/camera"
	"github.com/quicoa/daheng-camera-class/internal/logging"
)

// SessionInfo is the part of a session that is safe to read from HTTP
// handlers.
type SessionInfo interface {
	ID() string
	State() camera.State
}

// DeviceLister enumerates devices. *camera.Library satisfies it.
type DeviceLister interface {
	Devices() ([]camera.DeviceInfo, error)
}

// Options configures the server. Nil fields disable their routes.
type Options struct {
	Session        SessionInfo
	Devices        DeviceLister
	MetricsHandler http.Handler
}

// Server is the status HTTP server.
type Server struct {
	router chi.Router
	http   *http.Server
	logger *slog.Logger
}

// New builds the router.
func New(opts Options) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logging.GetLogger("server"),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
	setupRoutes(s.router, opts)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves until Stop. It returns once the
// listener is bound; serve errors are logged.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
