package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/fretsense/internal/app"
	"github.com/ayusman/fretsense/internal/store"
)

// LabelsHandler handles HTTP requests for session label submissions.
type LabelsHandler struct {
	app *app.App
}

// NewLabelsHandler creates a new LabelsHandler backed by the app.
func NewLabelsHandler(a *app.App) *LabelsHandler {
	return &LabelsHandler{app: a}
}

// Request types

type submitLabelsRequest struct {
	Labels      map[string]string `json:"labels"` // aspect -> good | needs_improvement
	Features    []float64         `json:"feature_vector"`
	SourceVideo string            `json:"source_video"`
	Overwrite   bool              `json:"overwrite"`
}

// Response types

type submitLabelsResponse struct {
	SessionID string `json:"session_id"`
	Accepted  int    `json:"accepted"`
	Overwrite bool   `json:"overwrite"`
}

// ServeHTTP implements the http.Handler interface.
// Expected path: POST /api/sessions/{id}/labels
func (h *LabelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Parse session ID from path: /api/sessions/{id}/labels
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[1] != "labels" || parts[0] == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	sessionID := parts[0]

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitLabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.app.SubmitLabels(sessionID, req.Labels, req.Features, req.SourceVideo, req.Overwrite)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateLabel):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, app.ErrUnknownAspect), errors.Is(err, app.ErrUnknownLabel):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Failed to store labels")
		}
		return
	}

	writeJSON(w, http.StatusCreated, submitLabelsResponse{
		SessionID: sessionID,
		Accepted:  len(req.Labels),
		Overwrite: req.Overwrite,
	})
}
