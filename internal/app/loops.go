package app

import (
	"errors"
	"log"
	"time"

	"github.com/soumik/cardioid/internal/gesture"
)

// runDetection is the landmark acquisition loop. It runs on the camera's
// cadence, decoupled from the simulation: each pass reads a frame, detects
// hands, classifies them, and publishes the result as the latest gesture
// snapshot for the simulation loop to consume.
//
// Motion gating keeps the detector cold while the scene is still: the loop
// idles at IdleFPS until frame differencing reports change, runs detection
// at ActiveFPS, and drops back after IdleTimeout without motion. Mock mode
// has no motion detector and classifies every frame.
func (a *App) runDetection(stopCh <-chan struct{}) {
	activeMode := a.motion == nil
	lastMotionTime := time.Now()

	frameInterval := time.Second / time.Duration(IdleFPS)
	if activeMode {
		frameInterval = time.Second / time.Duration(ActiveFPS)
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			if a.motion != nil {
				motionDetected, _ := a.motion.Detect(frame)

				if motionDetected {
					lastMotionTime = time.Now()
					if !activeMode {
						activeMode = true
						a.camera.SetFPS(ActiveFPS)
						frameInterval = time.Second / time.Duration(ActiveFPS)
						ticker.Reset(frameInterval)
						log.Println("Switched to active detection")
					}
				} else if activeMode && time.Since(lastMotionTime) > IdleTimeout {
					activeMode = false
					a.camera.SetFPS(IdleFPS)
					frameInterval = time.Second / time.Duration(IdleFPS)
					ticker.Reset(frameInterval)
					a.setGestureState(gesture.State{})
					log.Println("Switched to idle detection")
				}
			}

			d := a.Detector()
			if !activeMode || d == nil {
				frame.Close()
				continue
			}

			hands, err := d.Detect(frame)
			frame.Close()

			if err != nil {
				log.Printf("Error detecting hands: %v", err)
				continue
			}

			st, err := gesture.Classify(hands)
			if err != nil {
				// Malformed landmark sets degrade to "no gesture this
				// frame" rather than poisoning the snapshot.
				if !errors.Is(err, gesture.ErrInvalidLandmarkSet) {
					log.Printf("Error classifying hands: %v", err)
				}
				st = gesture.State{}
			}

			a.setGestureState(st)
		}
	}
}

// runSimulation steps the engine at SimHz using measured wall-clock dt and
// whatever gesture snapshot is current. This goroutine is the engine's
// only writer; API mutations share engineMu and are therefore sequenced
// between steps.
func (a *App) runSimulation(stopCh <-chan struct{}) {
	ticker := time.NewTicker(time.Second / SimHz)
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if dt <= 0 {
				continue
			}
			if dt > MaxStepDt {
				dt = MaxStepDt
			}

			st := a.GestureState()

			a.engineMu.Lock()
			a.engine.Step(dt, st)
			a.engineMu.Unlock()
		}
	}
}
