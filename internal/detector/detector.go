package detector

import "gocv.io/x/gocv"

// Detector turns video frames into hand landmark sets. Implementations
// return an empty slice when no hands are visible.
type Detector interface {
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)
	Close() error
}

// Config tunes hand detection. The classifier only distinguishes one hand
// from two, so MaxHands never needs to exceed 2.
type Config struct {
	MaxHands        int
	MinConfidence   float64
	MinTrackingConf float64
}

// DefaultConfig returns the detection defaults: two hands, 0.5 confidence
// thresholds.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
