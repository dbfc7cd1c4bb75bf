// Package config loads the overlay-cam configuration from an optional YAML
// file layered with OVERLAY_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// CameraConfig selects the capture device.
type CameraConfig struct {
	Device   int    `koanf:"device"`
	FrameDir string `koanf:"framedir"` // when set, play back images instead of a camera
}

// ModelConfig locates the model artifact and runtime.
type ModelConfig struct {
	Path       string `koanf:"path"`
	LibPath    string `koanf:"libpath"`
	InputSize  int    `koanf:"inputsize"`
	UseCuda    bool   `koanf:"usecuda"`
	NumThreads int    `koanf:"numthreads"`
}

// OverlayConfig tunes decoding and rendering.
type OverlayConfig struct {
	ConfThreshold float32 `koanf:"confthreshold"`
	MaskThreshold float32 `koanf:"maskthreshold"`
	MaskAlpha     float64 `koanf:"maskalpha"`
	FontPath      string  `koanf:"fontpath"`
	ClassesFile   string  `koanf:"classesfile"`
}

// WindowConfig sizes the display container the overlay is letterboxed into.
type WindowConfig struct {
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
}

// Config is the full overlay-cam configuration.
type Config struct {
	Debug   bool          `koanf:"debug"`
	Camera  CameraConfig  `koanf:"camera"`
	Model   ModelConfig   `koanf:"model"`
	Overlay OverlayConfig `koanf:"overlay"`
	Window  WindowConfig  `koanf:"window"`
}

// Load reads path (ignored when empty or missing) and the environment.
// Fields absent from both keep their defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Camera: CameraConfig{Device: 0},
		Model: ModelConfig{
			Path:      "./weights/pcparts-seg.onnx",
			InputSize: 640,
		},
		Overlay: OverlayConfig{
			ConfThreshold: 0.50,
			MaskThreshold: 0.50,
			MaskAlpha:     0.35,
		},
		Window: WindowConfig{Width: 1280, Height: 720},
	}

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider("OVERLAY_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "OVERLAY_")), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
