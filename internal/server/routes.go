package server

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func setupRoutes(r chi.Router, opts Options) {
	r.Get("/healthz", healthHandler(opts.Session))

	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(10 * time.Second))

		if opts.Session != nil {
			api.Get("/session", sessionHandler(opts.Session))
		}
		if opts.Devices != nil {
			api.Get("/devices", devicesHandler(opts.Devices))
		}
		api.Get("/logs", logsHandler)
		api.Route("/logging", func(r chi.Router) {
			r.Get("/", levelsHandler)
			r.Put("/{module}", setLevelHandler)
		})
	})
}
