// Package web serves run state and captured stills over HTTP.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/e7canasta/orion-strobe/modules/statebus"
	"github.com/e7canasta/orion-strobe/modules/strobe"
)

// Controller is the part of strobe.Controller the server drives
type Controller interface {
	State() strobe.State
	TargetLength() int
	Running() bool
	SetPattern(text string) strobe.State
	Select(index int) (strobe.State, error)
	Start(ctx context.Context, sequence []bool) error
}

// ServerOption configures optional Server behavior.
type ServerOption func(*Server)

// WithEvents enables GET /api/events, streaming every snapshot published on bus.
func WithEvents(bus *statebus.Bus[strobe.State]) ServerOption {
	return func(s *Server) {
		s.bus = bus
	}
}

// WithHeartbeat sets the keep-alive interval of the event stream.
func WithHeartbeat(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// Server holds the chi router and the controller it exposes.
type Server struct {
	router    chi.Router
	ctrl      Controller
	bus       *statebus.Bus[strobe.State]
	heartbeat time.Duration
	started   time.Time
}

// NewServer creates a Server with all routes configured.
func NewServer(ctrl Controller, opts ...ServerOption) *Server {
	s := &Server{
		ctrl:      ctrl,
		heartbeat: sseHeartbeatInterval,
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)

	// State
	r.Get("/api/state", s.handleState)
	if s.bus != nil {
		r.Get("/api/events", s.handleEvents)
	}

	// Captures
	r.Get("/api/captures/selected", s.handleSelectedCapture)
	r.Get("/api/captures/{index}", s.handleCapture)

	// Mutations
	r.Post("/api/runs", s.handleStartRun)
	r.Put("/api/pattern", s.handleSetPattern)
	r.Put("/api/selection", s.handleSelect)

	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps the router in an http.Server with the service timeouts.
// WriteTimeout stays zero so the event stream is not cut off.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
