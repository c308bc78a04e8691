// Package e2e exercises the full stack: store, mock pipeline, and HTTP
// surface wired together the way cmd/cardioid does it.
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/soumik/cardioid/internal/app"
	"github.com/soumik/cardioid/internal/server"
	"github.com/soumik/cardioid/internal/sim"
	"github.com/soumik/cardioid/internal/store"
)

type stack struct {
	store  *store.Store
	app    *app.App
	server *httptest.Server
}

func newStack(t *testing.T) *stack {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := app.New(app.Config{
		Store:        s,
		MaxParticles: 500,
		Seed:         99,
		UseMock:      true,
	})

	srv := httptest.NewServer(server.New(server.Config{Store: s, App: a}))
	t.Cleanup(srv.Close)

	return &stack{store: s, app: a, server: srv}
}

func (st *stack) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, st.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out.Bytes()
}

func TestE2E_PresetLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	st := newStack(t)

	params := sim.DefaultParams()
	params.Damping = 0.66
	resp, body := st.do(t, http.MethodPost, "/api/presets", map[string]any{
		"name":   "calm",
		"params": params,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create preset: status %d: %s", resp.StatusCode, body)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	resp, body = st.do(t, http.MethodPost, "/api/presets/"+created.ID+"/apply", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply preset: status %d: %s", resp.StatusCode, body)
	}
	if got := st.app.Params(); got.Damping != 0.66 {
		t.Errorf("applied damping = %v, want 0.66", got.Damping)
	}

	resp, body = st.do(t, http.MethodGet, "/api/params", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get params: status %d", resp.StatusCode)
	}
	var live sim.Params
	if err := json.Unmarshal(body, &live); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if live.Damping != 0.66 {
		t.Errorf("live damping = %v, want 0.66", live.Damping)
	}
}

func TestE2E_ParticleCountRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	st := newStack(t)

	resp, body := st.do(t, http.MethodPut, "/api/particles", map[string]int{"activeCount": 123})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put particles: status %d: %s", resp.StatusCode, body)
	}
	var counts struct {
		ActiveCount int `json:"activeCount"`
		MaxCount    int `json:"maxCount"`
	}
	if err := json.Unmarshal(body, &counts); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if counts.ActiveCount != 123 || counts.MaxCount != 500 {
		t.Errorf("counts = %+v", counts)
	}
	if st.app.ActiveCount() != 123 {
		t.Errorf("app active count = %d, want 123", st.app.ActiveCount())
	}

	frame := st.app.Frame()
	if len(frame.Positions) != 123*3 {
		t.Errorf("frame positions = %d floats, want %d", len(frame.Positions), 123*3)
	}
}

func TestE2E_ResetAndHealth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	st := newStack(t)

	before := st.app.Frame()
	resp, body := st.do(t, http.MethodPost, "/api/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: status %d: %s", resp.StatusCode, body)
	}
	after := st.app.Frame()

	same := true
	for i := range before.Positions {
		if before.Positions[i] != after.Positions[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("reset did not regenerate the formation")
	}

	resp, _ = st.do(t, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: status %d", resp.StatusCode)
	}
}

func TestE2E_GestureEndpointReflectsState(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	st := newStack(t)

	resp, body := st.do(t, http.MethodGet, "/api/gesture", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get gesture: status %d", resp.StatusCode)
	}
	var g struct {
		Kind     string   `json:"kind"`
		Strength float64  `json:"strength"`
		Rotation *float64 `json:"rotation"`
	}
	if err := json.Unmarshal(body, &g); err != nil {
		t.Fatalf("decode gesture: %v", err)
	}
	if g.Kind != "idle" {
		t.Errorf("kind = %q, want %q before tracking starts", g.Kind, "idle")
	}
	if g.Rotation != nil {
		t.Errorf("rotation = %v, want absent", *g.Rotation)
	}
}
