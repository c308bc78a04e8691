package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/soumik/cardioid/internal/sim"
	"github.com/soumik/cardioid/internal/store"
)

// PresetsHandler handles HTTP requests for preset resources. When a
// controller is attached, presets can also be applied to the running
// simulation.
type PresetsHandler struct {
	store *store.Store
	ctrl  Controller
}

// NewPresetsHandler creates a PresetsHandler. ctrl may be nil, in which
// case apply requests are rejected.
func NewPresetsHandler(s *store.Store, ctrl Controller) *PresetsHandler {
	return &PresetsHandler{store: s, ctrl: ctrl}
}

// ServeHTTP routes collection, item, and apply requests.
// Expected paths: /api/presets, /api/presets/{id}, /api/presets/{id}/apply.
func (h *PresetsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/presets")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/apply"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.apply(w, r, id)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Request and response types

type presetRequest struct {
	Name   string     `json:"name"`
	Params sim.Params `json:"params"`
}

type presetResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Params    sim.Params `json:"params"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}

type listPresetsResponse struct {
	Presets []presetResponse `json:"presets"`
}

// toResponse converts a store.Preset to a presetResponse.
func toResponse(p *store.Preset) (presetResponse, error) {
	var params sim.Params
	if err := json.Unmarshal(p.Params, &params); err != nil {
		return presetResponse{}, err
	}

	return presetResponse{
		ID:        p.ID,
		Name:      p.Name,
		Params:    params,
		CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// list handles GET /api/presets.
func (h *PresetsHandler) list(w http.ResponseWriter, r *http.Request) {
	presets, err := h.store.Presets().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list presets")
		return
	}

	response := listPresetsResponse{
		Presets: make([]presetResponse, 0, len(presets)),
	}
	for _, p := range presets {
		resp, err := toResponse(p)
		if err != nil {
			continue
		}
		response.Presets = append(response.Presets, resp)
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/presets.
func (h *PresetsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	raw, err := json.Marshal(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid params")
		return
	}

	preset := &store.Preset{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Params: raw,
	}
	if err := h.store.Presets().Create(preset); err != nil {
		writeError(w, http.StatusConflict, "Failed to create preset")
		return
	}

	resp, err := toResponse(preset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode preset")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// get handles GET /api/presets/{id}.
func (h *PresetsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	preset, err := h.store.Presets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get preset")
		return
	}

	resp, err := toResponse(preset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode preset")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// update handles PUT /api/presets/{id}.
func (h *PresetsHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	raw, err := json.Marshal(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid params")
		return
	}

	preset := &store.Preset{
		ID:     id,
		Name:   req.Name,
		Params: raw,
	}
	if err := h.store.Presets().Update(preset); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update preset")
		return
	}

	// Re-fetch so the response carries the stored created_at, which Update
	// does not load.
	updated, err := h.store.Presets().GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get preset")
		return
	}

	resp, err := toResponse(updated)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode preset")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /api/presets/{id}.
func (h *PresetsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Presets().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete preset")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// apply handles POST /api/presets/{id}/apply, loading the preset into the
// running simulation.
func (h *PresetsHandler) apply(w http.ResponseWriter, r *http.Request, id string) {
	if h.ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "No simulation attached")
		return
	}

	preset, err := h.store.Presets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get preset")
		return
	}

	var params sim.Params
	if err := json.Unmarshal(preset.Params, &params); err != nil {
		writeError(w, http.StatusInternalServerError, "Preset params corrupted")
		return
	}

	h.ctrl.SetParams(params)
	writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}
