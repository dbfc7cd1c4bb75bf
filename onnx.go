package overlay

import (
	"fmt"
	"runtime"
	"sync"

	ort "github.com/getcharzp/onnxruntime_purego"
)

// OnnxConfig holds the ONNX Runtime environment for this process.
type OnnxConfig struct {
	OnnxEngine     *ort.Engine
	SessionOptions *ort.SessionOptions

	// Required
	OnnxRuntimeLibPath string // path to onnxruntime.dll (or .so, .dylib)
	// Optional
	UseCuda    bool // enable the CUDA execution provider
	NumThreads int  // intra-op thread count, defaults to the CPU core count
}

var (
	engine  *ort.Engine
	initErr error
	once    sync.Once
)

// New initializes the ONNX Runtime environment. The shared library is
// loaded once per process; subsequent calls reuse the same engine.
func (cfg *OnnxConfig) New() error {
	if cfg.OnnxRuntimeLibPath == "" {
		return fmt.Errorf("OnnxRuntimeLibPath must not be empty")
	}
	once.Do(func() {
		engine, initErr = ort.NewEngine(cfg.OnnxRuntimeLibPath)
	})
	if initErr != nil {
		return fmt.Errorf("initialize ONNX Runtime environment: %w", initErr)
	}
	cfg.OnnxEngine = engine

	// Session options (thread count)
	options, err := cfg.OnnxEngine.NewSessionOptions()
	if err != nil {
		return err
	}
	if cfg.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(int32(cfg.NumThreads)); err != nil {
			return err
		}
	}

	// CUDA execution provider
	if cfg.UseCuda {
		if err := options.EnableCUDA(); err != nil {
			return fmt.Errorf("enable CUDA execution provider: %w", err)
		}
	}
	cfg.SessionOptions = options

	return nil
}

// DefaultLibraryPath picks the bundled runtime library for the current platform.
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"

	// windows onnxruntime.dll
	if runtime.GOOS == "windows" {
		return baseDir + libName + ".dll"
	}

	// linux darwin ext
	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so" // default: linux amd64
	}

	// full path: ./lib/onnxruntime + _ + amd64/arm64 + . + so/dylib
	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}
