package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// idleShutdown is how long the Python process is kept alive after the
// last detection before it is stopped. A fresh Detect restarts it.
const idleShutdown = 30 * time.Second

const serviceScript = "mediapipe_service.py"

// MediaPipeDetector implements Detector over a Python MediaPipe
// subprocess. Each frame goes out as a 4-byte big-endian length prefix
// followed by JPEG bytes; the service answers with one JSON line of hand
// landmark sets. The process starts lazily on the first Detect.
type MediaPipeDetector struct {
	config Config

	mu        sync.Mutex
	proc      *exec.Cmd
	in        io.WriteCloser
	out       *bufio.Reader
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a MediaPipe detector, verifying that the
// service script can be located. The subprocess itself is not started yet.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	if locateResource(filepath.Join("scripts", serviceScript)) == "" {
		return nil, fmt.Errorf("%s not found", serviceScript)
	}
	return &MediaPipeDetector{config: config}, nil
}

// Detect sends the frame to the service and returns the hands it found.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureRunning(); err != nil {
		return nil, err
	}

	jpeg, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer jpeg.Close()

	payload := jpeg.GetBytes()
	msg := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(msg, uint32(len(payload)))
	copy(msg[4:], payload)

	if _, err := d.in.Write(msg); err != nil {
		d.stop()
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := d.out.ReadString('\n')
	if err != nil {
		d.stop()
		return nil, fmt.Errorf("read landmarks: %w", err)
	}

	var reply struct {
		Hands []HandLandmarks `json:"hands"`
	}
	if err := json.Unmarshal([]byte(line), &reply); err != nil {
		return nil, fmt.Errorf("parse landmarks: %w", err)
	}

	d.touchIdleTimer()
	return reply.Hands, nil
}

// Close shuts the subprocess down.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

// ensureRunning starts the service if needed, passing the detection
// configuration as flags. Caller holds d.mu.
func (d *MediaPipeDetector) ensureRunning() error {
	if d.proc != nil {
		return nil
	}

	script := locateResource(filepath.Join("scripts", serviceScript))
	if script == "" {
		return fmt.Errorf("%s not found", serviceScript)
	}

	python := locateResource(filepath.Join("venv", "bin", "python"))
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)
	cmd.Stderr = os.Stderr

	in, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", serviceScript, err)
	}

	d.proc = cmd
	d.in = in
	d.out = bufio.NewReader(out)
	return nil
}

// stop tears the subprocess down. Caller holds d.mu.
func (d *MediaPipeDetector) stop() error {
	if d.proc == nil {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	d.in.Close()
	err := d.proc.Wait()

	d.proc = nil
	d.in = nil
	d.out = nil
	return err
}

func (d *MediaPipeDetector) touchIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.stop()
	})
}

// locateResource searches the working directory, its parent, the
// executable's directory, and ~/.cardioid for a relative resource path.
func locateResource(rel string) string {
	candidates := []string{rel, filepath.Join("..", rel)}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), rel))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".cardioid", rel))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
