package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/fretsense/internal/registry"
	"github.com/ayusman/fretsense/internal/store"
)

// ModelsHandler handles HTTP requests for model version resources.
type ModelsHandler struct {
	registry *registry.Registry
}

// NewModelsHandler creates a new ModelsHandler over the version registry.
func NewModelsHandler(reg *registry.Registry) *ModelsHandler {
	return &ModelsHandler{registry: reg}
}

// Response types

type modelVersionResponse struct {
	VersionID       int64   `json:"version_id"`
	CreatedAt       string  `json:"created_at"`
	ExampleCount    int     `json:"example_count"`
	ValidationScore float64 `json:"validation_score"`
	IsActive        bool    `json:"is_active"`
	Status          string  `json:"status"`
	Reason          string  `json:"reason,omitempty"`
}

type listModelsResponse struct {
	Versions []modelVersionResponse `json:"versions"`
}

// ServeHTTP implements the http.Handler interface.
// Expected paths:
//
//	GET  /api/models
//	GET  /api/models/active
//	POST /api/models/{id}/promote
//	POST /api/models/{id}/rollback
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/models")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
	case path == "active":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.active(w, r)
	default:
		h.action(w, r, path)
	}
}

// list handles GET /api/models
func (h *ModelsHandler) list(w http.ResponseWriter, r *http.Request) {
	versions, err := h.registry.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list model versions")
		return
	}

	response := listModelsResponse{
		Versions: make([]modelVersionResponse, 0, len(versions)),
	}
	for _, v := range versions {
		response.Versions = append(response.Versions, toVersionResponse(&v))
	}

	writeJSON(w, http.StatusOK, response)
}

// active handles GET /api/models/active
func (h *ModelsHandler) active(w http.ResponseWriter, r *http.Request) {
	v := h.registry.Active()
	if v == nil {
		writeError(w, http.StatusNotFound, "No active model version")
		return
	}
	writeJSON(w, http.StatusOK, toVersionResponse(v))
}

// action handles POST /api/models/{id}/promote and .../rollback
func (h *ModelsHandler) action(w http.ResponseWriter, r *http.Request, path string) {
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	versionID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid version id")
		return
	}

	switch parts[1] {
	case "promote":
		err = h.registry.Promote(versionID)
	case "rollback":
		err = h.registry.RollbackTo(versionID)
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if err != nil {
		if errors.Is(err, registry.ErrVersionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toVersionResponse(h.registry.Active()))
}

func toVersionResponse(v *store.ModelVersion) modelVersionResponse {
	return modelVersionResponse{
		VersionID:       v.VersionID,
		CreatedAt:       v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		ExampleCount:    v.ExampleCount,
		ValidationScore: v.ValidationScore,
		IsActive:        v.IsActive,
		Status:          v.Status,
		Reason:          v.Reason,
	}
}
