// Package api provides the JSON control endpoints for the formation driver.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/soumik/cardioid/internal/gesture"
	"github.com/soumik/cardioid/internal/sim"
)

// Controller is the surface the handlers drive. *app.App implements it;
// tests substitute a stub.
type Controller interface {
	Params() sim.Params
	SetParams(sim.Params)
	RequestReset()
	ActiveCount() int
	MaxCount() int
	SetActiveCount(n int)
	GestureState() gesture.State
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// ControlHandler serves the simulation control endpoints: params, reset,
// particle count, and the latest gesture state.
type ControlHandler struct {
	ctrl Controller
}

// NewControlHandler creates a ControlHandler over the given controller.
func NewControlHandler(ctrl Controller) *ControlHandler {
	return &ControlHandler{ctrl: ctrl}
}

// ServeHTTP routes by path: /api/params, /api/reset, /api/particles,
// /api/gesture.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/params":
		h.params(w, r)
	case "/api/reset":
		h.reset(w, r)
	case "/api/particles":
		h.particles(w, r)
	case "/api/gesture":
		h.gesture(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *ControlHandler) params(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Params())
	case http.MethodPut:
		var p sim.Params
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		h.ctrl.SetParams(p)
		writeJSON(w, http.StatusOK, h.ctrl.Params())
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *ControlHandler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.ctrl.RequestReset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type particlesResponse struct {
	ActiveCount int `json:"activeCount"`
	MaxCount    int `json:"maxCount"`
}

type setParticlesRequest struct {
	ActiveCount int `json:"activeCount"`
}

func (h *ControlHandler) particles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, particlesResponse{
			ActiveCount: h.ctrl.ActiveCount(),
			MaxCount:    h.ctrl.MaxCount(),
		})
	case http.MethodPut:
		var req setParticlesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		// Out-of-range counts clamp rather than fail.
		h.ctrl.SetActiveCount(req.ActiveCount)
		writeJSON(w, http.StatusOK, particlesResponse{
			ActiveCount: h.ctrl.ActiveCount(),
			MaxCount:    h.ctrl.MaxCount(),
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type gestureResponse struct {
	Kind     string   `json:"kind"`
	Strength float64  `json:"strength"`
	Rotation *float64 `json:"rotation,omitempty"`
}

func (h *ControlHandler) gesture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	st := h.ctrl.GestureState()
	resp := gestureResponse{
		Kind:     st.Kind.String(),
		Strength: st.Strength,
	}
	if st.HasRotation {
		angle := st.RotationAngle
		resp.Rotation = &angle
	}
	writeJSON(w, http.StatusOK, resp)
}
