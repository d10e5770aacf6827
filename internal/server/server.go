// Package server provides the HTTP server for the fretsense analysis service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/fretsense/internal/app"
	"github.com/ayusman/fretsense/internal/registry"
	"github.com/ayusman/fretsense/internal/server/api"
	"github.com/ayusman/fretsense/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Store    *store.Store
	App      *app.App
	Registry *registry.Registry
}

// Server represents the HTTP server for the fretsense application.
type Server struct {
	config Config
	mux    *http.ServeMux
	events *EventHub
	start  time.Time
}

// New creates a new Server with the given configuration. If an App is
// configured its events are broadcast to WebSocket clients on /ws/events.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		events: NewEventHub(),
		start:  time.Now(),
	}
	if config.App != nil {
		config.App.SetEventHandler(s.events.Broadcast)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		s.mux.Handle("/api/analyze", api.NewAnalysisHandler(s.config.App))
		s.mux.Handle("/api/sessions/", api.NewLabelsHandler(s.config.App))
	}

	if s.config.Registry != nil {
		modelsHandler := api.NewModelsHandler(s.config.Registry)
		s.mux.Handle("/api/models", modelsHandler)
		s.mux.Handle("/api/models/", modelsHandler)
	}

	s.mux.Handle("/ws/events", s.events)
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

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	if s.config.App != nil {
		response["trainer_state"] = string(s.config.App.TrainerState())
	}
	if s.config.Registry != nil {
		if active := s.config.Registry.Active(); active != nil {
			response["active_model_id"] = active.VersionID
		}
		// An active version row without a loadable artifact scores
		// rule-based, so the mode follows the loaded model.
		if s.config.Registry.ActiveModel() != nil {
			response["scoring_mode"] = "learned"
		} else {
			response["scoring_mode"] = "rule_based"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
