// Package hook runs a user-configured external command when the classified
// gesture changes, so formations can drive side effects (pause media on a
// fist, for example) without linking anything into the process.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single hook invocation.
const DefaultTimeout = 5 * time.Second

// Event is the JSON payload delivered to the hook command on stdin.
type Event struct {
	Gesture   string  `json:"gesture"`
	Strength  float64 `json:"strength"`
	Timestamp int64   `json:"timestamp"`
}

// Runner invokes a shell command on gesture transitions. A held gesture
// fires once; the command runs again only when the gesture kind changes.
// Runner is driven by the single detection loop and needs no locking.
type Runner struct {
	command  string
	timeout  time.Duration
	lastKind string
}

// NewRunner creates a Runner for the given shell command. An empty command
// disables the runner.
func NewRunner(command string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		command: command,
		timeout: timeout,
	}
}

// GestureChanged fires the hook when the gesture kind differs from the
// previous call. The command runs in the background so the detection loop
// never blocks on it.
func (r *Runner) GestureChanged(kind string, strength float64) {
	if r == nil || r.command == "" {
		return
	}
	if kind == r.lastKind {
		return
	}
	r.lastKind = kind

	ev := Event{
		Gesture:   kind,
		Strength:  strength,
		Timestamp: time.Now().UnixMilli(),
	}

	go func() {
		if err := r.run(ev); err != nil {
			log.Printf("gesture hook: %v", err)
		}
	}()
}

// run executes the command once with the event JSON on stdin.
func (r *Runner) run(ev Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", r.command)
	cmd.Stdin = bytes.NewReader(payload)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("hook timed out after %s", r.timeout)
		}
		if stderr.Len() > 0 {
			return fmt.Errorf("hook failed: %w, stderr: %s", err, stderr.String())
		}
		return fmt.Errorf("hook failed: %w", err)
	}

	return nil
}
