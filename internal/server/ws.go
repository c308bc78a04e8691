package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soumik/cardioid/internal/app"
)

// broadcastInterval paces the frame feed at roughly 30 FPS; the renderer
// interpolates between frames, so it does not need the full step rate.
const broadcastInterval = 33 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// FramesHandler broadcasts the particle formation to renderer clients
// over WebSocket.
type FramesHandler struct {
	app     *app.App
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewFramesHandler creates a FramesHandler and starts its broadcast loop.
func NewFramesHandler(a *app.App) *FramesHandler {
	h := &FramesHandler{
		app:     a,
		clients: make(map[*websocket.Conn]bool),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// frameMessage is the wire form of one rendered frame.
type frameMessage struct {
	Positions   []float64      `json:"positions"`
	Colors      []float64      `json:"colors"`
	Rotation    float64        `json:"rotation"`
	ActiveCount int            `json:"activeCount"`
	Gesture     gestureMessage `json:"gesture"`
	Timestamp   int64          `json:"timestamp"`
}

type gestureMessage struct {
	Kind     string   `json:"kind"`
	Strength float64  `json:"strength"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// broadcast sends frame snapshots to all connected clients. Snapshots are
// only taken while someone is listening.
func (h *FramesHandler) broadcast() {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		idle := len(h.clients) == 0
		h.mu.RUnlock()
		if idle {
			continue
		}

		frame := h.app.Frame()

		gm := gestureMessage{
			Kind:     frame.Gesture.Kind.String(),
			Strength: frame.Gesture.Strength,
		}
		if frame.Gesture.HasRotation {
			angle := frame.Gesture.RotationAngle
			gm.Rotation = &angle
		}

		msg, err := json.Marshal(frameMessage{
			Positions:   frame.Positions,
			Colors:      frame.Colors,
			Rotation:    frame.Rotation,
			ActiveCount: frame.ActiveCount,
			Gesture:     gm,
			Timestamp:   frame.Timestamp,
		})
		if err != nil {
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
