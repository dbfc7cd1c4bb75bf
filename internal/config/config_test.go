package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Camera.Device != 0 {
		t.Errorf("camera device = %d, want 0", cfg.Camera.Device)
	}
	if cfg.Model.InputSize != 640 {
		t.Errorf("input size = %d, want 640", cfg.Model.InputSize)
	}
	if cfg.Overlay.ConfThreshold != 0.50 {
		t.Errorf("conf threshold = %v, want 0.50", cfg.Overlay.ConfThreshold)
	}
	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("window = %dx%d, want 1280x720", cfg.Window.Width, cfg.Window.Height)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	body := []byte("camera:\n  device: 2\noverlay:\n  confthreshold: 0.7\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Camera.Device != 2 {
		t.Errorf("camera device = %d, want 2", cfg.Camera.Device)
	}
	if cfg.Overlay.ConfThreshold != 0.7 {
		t.Errorf("conf threshold = %v, want 0.7", cfg.Overlay.ConfThreshold)
	}
	// Untouched fields keep their defaults.
	if cfg.Model.InputSize != 640 {
		t.Errorf("input size = %d, want 640", cfg.Model.InputSize)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	if err := os.WriteFile(path, []byte("camera:\n  device: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OVERLAY_CAMERA_DEVICE", "4")
	t.Setenv("OVERLAY_DEBUG", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Camera.Device != 4 {
		t.Errorf("camera device = %d, want 4", cfg.Camera.Device)
	}
	if !cfg.Debug {
		t.Error("debug should be enabled from the environment")
	}
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.InputSize != 640 {
		t.Errorf("input size = %d, want 640", cfg.Model.InputSize)
	}
}
