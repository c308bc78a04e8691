// Package server exposes the formation over HTTP: JSON control endpoints,
// a WebSocket frame feed for the external renderer, and an MJPEG camera
// preview.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/soumik/cardioid/internal/app"
	"github.com/soumik/cardioid/internal/server/api"
	"github.com/soumik/cardioid/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server is the HTTP server for the formation driver.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		controlHandler := api.NewControlHandler(s.config.App)
		s.mux.Handle("/api/params", controlHandler)
		s.mux.Handle("/api/reset", controlHandler)
		s.mux.Handle("/api/particles", controlHandler)
		s.mux.Handle("/api/gesture", controlHandler)

		framesHandler := NewFramesHandler(s.config.App)
		s.mux.Handle("/api/frames", framesHandler)

		if s.config.App.Camera() != nil {
			s.mux.Handle("/api/stream", NewStreamHandler(s.config.App.Camera()))
		}
	}

	if s.config.Store != nil {
		// The typed-nil guard keeps preset CRUD available even when no
		// simulation is attached; only apply needs a controller.
		var ctrl api.Controller
		if s.config.App != nil {
			ctrl = s.config.App
		}
		presetsHandler := api.NewPresetsHandler(s.config.Store, ctrl)
		s.mux.Handle("/api/presets", presetsHandler)
		s.mux.Handle("/api/presets/", presetsHandler)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
