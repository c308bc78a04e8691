// Package capture provides camera capture and motion gating using GoCV.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings. Capture runs at a low idle rate until motion
// wakes the detection loop.
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when reading from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// deviceCamera reads frames from a local video device through GoCV. The
// mutex covers the capture handle so the detection loop and the MJPEG
// preview can share one device.
type deviceCamera struct {
	device int

	mu  sync.Mutex
	cap *gocv.VideoCapture
	fps int
}

// NewCamera creates a Camera for the given device ID. The device is not
// touched until Open.
func NewCamera(device int) Camera {
	return &deviceCamera{device: device, fps: DefaultFPS}
}

// Open acquires the device and configures the capture resolution. Opening
// an already open camera is a no-op.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap != nil {
		return nil
	}

	cap, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.device, err)
	}
	cap.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	cap.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	cap.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.cap = cap
	return nil
}

// Close releases the device. Safe to call on a closed camera.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil
	}
	err := c.cap.Close()
	c.cap = nil
	return err
}

// ReadFrame grabs one frame. The caller owns the returned Mat and must
// close it.
func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil, ErrCameraNotOpen
	}

	frame := gocv.NewMat()
	if !c.cap.Read(&frame) || frame.Empty() {
		frame.Close()
		return nil, fmt.Errorf("camera %d produced no frame", c.device)
	}
	return &frame, nil
}

// SetFPS changes the capture rate, immediately when the device is open.
// Non-positive rates are ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.cap != nil {
		c.cap.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current capture rate.
func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether the device is currently held.
func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap != nil
}
