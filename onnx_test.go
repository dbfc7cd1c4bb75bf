package overlay

import (
	"runtime"
	"strings"
	"testing"
)

func TestOnnxConfigRequiresLibraryPath(t *testing.T) {
	cfg := &OnnxConfig{}
	if err := cfg.New(); err == nil {
		t.Fatal("New with an empty library path should fail")
	}
	if cfg.SessionOptions != nil {
		t.Error("session options created despite the failed init")
	}
}

func TestDefaultLibraryPath(t *testing.T) {
	path := DefaultLibraryPath()
	if !strings.HasPrefix(path, "./lib/onnxruntime") {
		t.Errorf("path = %q, want ./lib/onnxruntime prefix", path)
	}

	var wantExt string
	switch runtime.GOOS {
	case "windows":
		wantExt = ".dll"
	case "darwin":
		wantExt = ".dylib"
	default:
		wantExt = ".so"
	}
	if !strings.HasSuffix(path, wantExt) {
		t.Errorf("path = %q, want %s suffix on %s", path, wantExt, runtime.GOOS)
	}
}
