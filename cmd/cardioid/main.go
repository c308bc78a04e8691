package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/soumik/cardioid/internal/app"
	"github.com/soumik/cardioid/internal/server"
	"github.com/soumik/cardioid/internal/store"
	"github.com/soumik/cardioid/internal/tray"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cameraID := flag.Int("camera", 0, "camera device id")
	particles := flag.Int("particles", app.DefaultMaxParticles, "particle capacity")
	hookCmd := flag.String("hook", "", "shell command to run on gesture changes")
	useMock := flag.Bool("mock", false, "drive the formation with scripted gestures instead of a camera")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	flag.Parse()

	fmt.Println("Cardioid - Gesture-Driven Heart Formation")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dataDir := filepath.Join(homeDir, ".cardioid")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "cardioid.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	hook := *hookCmd
	if hook == "" {
		if v, err := st.Settings().Get(store.SettingHookCommand); err == nil {
			hook = v
		}
	}

	a := app.New(app.Config{
		Store:        st,
		CameraID:     st.Settings().GetInt(store.SettingCameraID, *cameraID),
		MaxParticles: *particles,
		HookCommand:  hook,
		UseMock:      *useMock,
	})

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	defer a.Stop()

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving renderer from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})

	if *noTray {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnReset(a.RequestReset)
	t.OnOpen(func() { openBrowser("http://localhost" + *addr) })
	t.OnQuit(a.Stop)

	// Mirror the latest gesture into the tray menu.
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.SetGesture(a.GestureState().Kind.String())
		}
	}()

	t.Run()
}

// findWebDir searches common locations for the bundled renderer assets.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".cardioid", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

// openBrowser opens the URL with the platform opener, best effort.
func openBrowser(url string) {
	for _, opener := range []string{"open", "xdg-open"} {
		if _, err := exec.LookPath(opener); err == nil {
			if err := exec.Command(opener, url).Start(); err != nil {
				log.Printf("Failed to open browser: %v", err)
			}
			return
		}
	}
}
