// Package model owns the detector's load/dispose lifecycle. The handle is
// created once, shared read-only across pipeline instances, reference
// counted, and released explicitly on teardown.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getcharzp/go-overlay"
	"github.com/getcharzp/go-overlay/pipeline"
)

// ErrModelLoad wraps load-time failures. Fatal to the detection feature:
// the pipeline cannot start without a ready handle.
var ErrModelLoad = errors.New("model load failed")

// State is the lifecycle state of the shared model handle.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds the model artifact parameters.
type Config struct {
	ModelPath          string // ONNX model path
	OnnxRuntimeLibPath string // ONNX Runtime shared library path

	InputSize int // model input side length, default 640

	// Optional
	UseCuda    bool // enable the CUDA execution provider
	NumThreads int  // intra-op thread count, defaults to the CPU core count
	SkipWarmUp bool // skip the zero-input warm-up pass after loading
}

// DefaultConfig returns the configuration for the bundled PC-component
// segmentation model.
func DefaultConfig() Config {
	return Config{
		ModelPath:          "./weights/pcparts-seg.onnx",
		OnnxRuntimeLibPath: overlay.DefaultLibraryPath(),
		InputSize:          640,
	}
}

// loaderFunc builds the inference backend. Swappable for tests.
type loaderFunc func(cfg Config) (backend, error)

// Manager collapses concurrent load requests into a single load operation
// and hands out a reference-counted shared handle.
type Manager struct {
	cfg    Config
	loader loaderFunc
	log    *slog.Logger

	mu      sync.Mutex
	state   State
	handle  *Handle
	loadErr error
	done    chan struct{} // non-nil while a load is in flight
	refs    int
}

// NewManager creates a manager backed by ONNX Runtime. Nothing is loaded
// until the first Load call.
func NewManager(cfg Config, log *slog.Logger) *Manager {
	return newManager(cfg, ortLoader, log)
}

func newManager(cfg Config, loader loaderFunc, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{cfg: cfg, loader: loader, log: log}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Load returns the ready handle, incrementing its reference count.
//
//   - Ready: returns immediately.
//   - Loading: awaits the in-flight load instead of starting a second one.
//   - Failed: returns the original load error (sticky; the feature stays
//     in its error state).
//   - Unloaded: performs the load, then a zero-input warm-up pass so the
//     backend compiles and caches before real frames arrive.
func (m *Manager) Load(ctx context.Context) (*Handle, error) {
	for {
		m.mu.Lock()
		switch m.state {
		case StateReady:
			m.refs++
			h := m.handle
			m.mu.Unlock()
			return h, nil

		case StateFailed:
			err := m.loadErr
			m.mu.Unlock()
			return nil, err

		case StateLoading:
			done := m.done
			m.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-done:
			}
			// Re-read the outcome.
			continue

		default: // StateUnloaded
			m.state = StateLoading
			m.done = make(chan struct{})
			m.mu.Unlock()
			return m.load()
		}
	}
}

// load runs outside the lock; exactly one goroutine gets here per load.
func (m *Manager) load() (*Handle, error) {
	b, err := m.loader(m.cfg)
	if err == nil && !m.cfg.SkipWarmUp {
		if warmErr := m.warmUp(b); warmErr != nil {
			b.destroy()
			err = warmErr
		}
	}

	m.mu.Lock()
	defer func() {
		close(m.done)
		m.done = nil
		m.mu.Unlock()
	}()

	if err != nil {
		m.state = StateFailed
		m.loadErr = fmt.Errorf("%w: %v", ErrModelLoad, err)
		m.log.Error("model load failed", "model", m.cfg.ModelPath, "err", err)
		return nil, m.loadErr
	}

	m.state = StateReady
	m.handle = &Handle{b: b}
	m.refs = 1
	m.log.Info("model ready", "model", m.cfg.ModelPath)
	return m.handle, nil
}

// warmUp runs one throwaway inference with a zero-filled input of the
// model's expected shape, forcing backend compilation and caching so the
// first real frame does not pay the latency spike.
func (m *Manager) warmUp(b backend) error {
	start := time.Now()
	input := pipeline.ZeroTensor(m.cfg.InputSize)
	det, proto, err := b.infer(input)
	input.Close()
	det.Close()
	proto.Close()
	if err != nil {
		return fmt.Errorf("warm-up inference: %w", err)
	}
	m.log.Info("model warm-up complete", "took", time.Since(start))
	return nil
}

// Release drops one reference. The backend is destroyed when the last
// reference goes; extra calls are no-ops.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReady || m.refs == 0 {
		return
	}
	m.refs--
	if m.refs > 0 {
		return
	}

	m.handle.b.destroy()
	m.handle = nil
	m.state = StateUnloaded
	m.log.Info("model released")
}
