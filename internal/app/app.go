// Package app wires capture, hand detection, gesture classification, and
// the particle simulation into the per-frame driver loops.
package app

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/soumik/cardioid/internal/capture"
	"github.com/soumik/cardioid/internal/detector"
	"github.com/soumik/cardioid/internal/gesture"
	"github.com/soumik/cardioid/internal/hook"
	"github.com/soumik/cardioid/internal/sim"
	"github.com/soumik/cardioid/internal/store"
)

// Loop timing constants.
const (
	// IdleFPS is the detection rate while the scene is still.
	IdleFPS = 5
	// ActiveFPS is the detection rate while motion is present.
	ActiveFPS = 20
	// IdleTimeout is how long without motion before dropping back to the
	// idle detection rate.
	IdleTimeout = 2 * time.Second
	// SimHz is the simulation step rate.
	SimHz = 60
	// MaxStepDt caps the per-step time delta so a stalled loop does not
	// integrate one huge, destabilizing step.
	MaxStepDt = 0.1
)

// DefaultMaxParticles is the particle capacity when nothing is configured.
const DefaultMaxParticles = 5000

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	CameraID     int
	MotionThresh float64
	MaxParticles int
	Seed         uint64
	HookCommand  string
	UseMock      bool
}

// App owns the detection and simulation loops. The engine is touched only
// under engineMu, which keeps it single-writer while letting the API and
// the frame broadcaster read consistent snapshots.
type App struct {
	config   Config
	camera   capture.Camera
	motion   *capture.MotionDetector
	detector detector.Detector
	engine   *sim.Engine
	hooks    *hook.Runner

	engineMu sync.Mutex

	mu      sync.RWMutex // guards enabled and the latest gesture snapshot
	enabled bool
	latest  gesture.State

	stopCh chan struct{}
}

// Frame is a copy of everything the renderer needs for one draw: the
// active position and color buffers (flat, three floats per particle), the
// smoothed group rotation, and the gesture that produced them.
type Frame struct {
	Positions   []float64
	Colors      []float64
	Rotation    float64
	ActiveCount int
	Gesture     gesture.State
	Timestamp   int64
}

// New creates an App. Parameters and the active count are restored from
// the store when present; in mock mode a scripted detector and synthetic
// camera stand in for the real pipeline.
func New(config Config) *App {
	if config.MaxParticles <= 0 {
		config.MaxParticles = DefaultMaxParticles
	}
	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // 1% pixel change
	}
	if config.Seed == 0 {
		config.Seed = uint64(time.Now().UnixNano())
	}

	a := &App{
		config:  config,
		enabled: true,
		hooks:   hook.NewRunner(config.HookCommand, 0),
	}

	params := sim.DefaultParams()
	if config.Store != nil {
		if raw, err := config.Store.Settings().Get(store.SettingLastParams); err == nil {
			if err := json.Unmarshal([]byte(raw), &params); err != nil {
				log.Printf("Ignoring stored params: %v", err)
				params = sim.DefaultParams()
			}
		}
	}

	a.engine = sim.New(config.MaxParticles, config.Seed, params)
	if config.Store != nil {
		n := config.Store.Settings().GetInt(store.SettingActiveCount, config.MaxParticles)
		a.engine.SetActiveCount(n)
	}

	if config.UseMock {
		a.camera = capture.NewMockCamera(nil, true)
		mock := detector.NewMockDetector()
		mock.SetScript(mockScript())
		a.detector = mock
		log.Println("Using scripted mock detection")
		return a
	}

	a.camera = capture.NewCamera(config.CameraID)
	a.motion = capture.NewMotionDetector(motionThreshold)

	// Try MediaPipe first, fall back to the mock detector.
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// mockScript cycles the formation through its full gesture range: rest,
// squeeze, pinch-expand, two-hand expand, and untracked idle spin.
func mockScript() [][]detector.HandLandmarks {
	var script [][]detector.HandLandmarks
	appendN := func(hands []detector.HandLandmarks, n int) {
		for i := 0; i < n; i++ {
			script = append(script, hands)
		}
	}

	appendN([]detector.HandLandmarks{detector.OpenPalmLandmarks()}, 40)
	appendN([]detector.HandLandmarks{detector.FistLandmarks()}, 30)
	appendN([]detector.HandLandmarks{detector.PinchSpreadLandmarks(0.45)}, 30)
	appendN(detector.TwoHandsApart(0.75), 30)
	appendN(nil, 20)

	return script
}

// SetEnabled enables or disables hand tracking. The simulation keeps
// running either way; with tracking off it settles into the idle pulse.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	if !enabled {
		a.latest = gesture.State{}
	}
}

// IsEnabled returns whether hand tracking is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Start opens the camera and launches the detection and simulation loops.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	go a.runDetection(a.stopCh)
	go a.runSimulation(a.stopCh)

	log.Println("Formation pipeline started")
	return nil
}

// Stop halts both loops and releases capture resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	if a.motion != nil {
		a.motion.Close()
	}

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Formation pipeline stopped")
}

// GestureState returns the most recent classification snapshot.
func (a *App) GestureState() gesture.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

func (a *App) setGestureState(st gesture.State) {
	a.mu.Lock()
	a.latest = st
	a.mu.Unlock()

	a.hooks.GestureChanged(st.Kind.String(), st.Strength)
}

// Frame copies the renderer-facing state for one draw.
func (a *App) Frame() Frame {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()

	pos := a.engine.Positions()
	col := a.engine.Colors()

	f := Frame{
		Positions:   make([]float64, len(pos)),
		Colors:      make([]float64, len(col)),
		Rotation:    a.engine.Rotation(),
		ActiveCount: a.engine.ActiveCount(),
		Gesture:     a.GestureState(),
		Timestamp:   time.Now().UnixMilli(),
	}
	copy(f.Positions, pos)
	copy(f.Colors, col)
	return f
}

// Params returns the current simulation parameters.
func (a *App) Params() sim.Params {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.engine.Params()
}

// SetParams applies new simulation parameters with effect on the next
// step, and persists them when a store is configured.
func (a *App) SetParams(p sim.Params) {
	a.engineMu.Lock()
	a.engine.SetParams(p)
	a.engineMu.Unlock()

	if a.config.Store != nil {
		raw, err := json.Marshal(p)
		if err == nil {
			err = a.config.Store.Settings().Set(store.SettingLastParams, string(raw))
		}
		if err != nil {
			log.Printf("Failed to persist params: %v", err)
		}
	}
}

// RequestReset regenerates the formation geometry and clears momentum.
func (a *App) RequestReset() {
	a.engineMu.Lock()
	a.engine.Reset()
	a.engineMu.Unlock()
}

// ActiveCount returns the number of particles currently simulated.
func (a *App) ActiveCount() int {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.engine.ActiveCount()
}

// MaxCount returns the allocated particle capacity.
func (a *App) MaxCount() int {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.engine.MaxCount()
}

// SetActiveCount clamps and applies the simulated particle count, and
// persists it when a store is configured.
func (a *App) SetActiveCount(n int) {
	a.engineMu.Lock()
	a.engine.SetActiveCount(n)
	n = a.engine.ActiveCount()
	a.engineMu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetInt(store.SettingActiveCount, n); err != nil {
			log.Printf("Failed to persist active count: %v", err)
		}
	}
}

// CheckFinite reports whether the active particles hold finite state.
func (a *App) CheckFinite() error {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.engine.CheckFinite()
}
