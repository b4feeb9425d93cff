// Package server exposes the session registry over a JSON REST API.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iksnae/aichat-history/internal"
)

// Server is the HTTP read API. It holds no state of its own; every request
// goes through the registry, which re-probes source availability each time.
type Server struct {
	registry *internal.Registry
	version  string
	router   *chi.Mux
}

// New assembles the middleware chain and route table around a registry. The
// version string surfaces through /api/health.
func New(registry *internal.Registry, version string) *Server {
	s := &Server{registry: registry, version: version}

	r := chi.NewRouter()
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(Recovery)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/sources", s.handleSources)
		r.Get("/workspaces", s.handleWorkspaces)
		r.Get("/sessions", s.handleSessions)
		r.Get("/session/{id}", s.handleSession)
		r.Get("/export/{id}", s.handleExport)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
