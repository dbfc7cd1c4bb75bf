package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/getcharzp/go-overlay"
)

// State is the scheduler lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of one pipeline instance. Detections and
// FPS are throttled: they change at most about once per StatsInterval.
type Stats struct {
	FPS               float64
	FramesProcessed   uint64
	TicksSkipped      uint64
	InferenceFailures uint64
	Detections        []Detection
}

// FrameRenderer paints one frame's results onto the overlay surface.
// Implemented by Renderer; swappable for tests.
type FrameRenderer interface {
	// Resize syncs the surface pixel buffer to the video's native resolution.
	Resize(w, h int)
	// Draw renders one frame. Ownership of proto transfers in; the renderer
	// must dispose it.
	Draw(dets []Detection, proto *Tensor, fps float64)
}

// Deps carries the pipeline's collaborators. Source and Session are
// required; everything else has a default.
type Deps struct {
	Source   Source
	Session  Session
	Renderer FrameRenderer        // default: NewRenderer(cfg, Text)
	Text     *overlay.TextDrawer  // label font for the default renderer, may be nil
	Ticker   Ticker               // default: fixed cadence at cfg.TickInterval
	Logger   *slog.Logger         // default: slog.Default()
	OnStats  func(Stats)          // fired at most about once per StatsInterval
}

// Pipeline drives the capture → preprocess → infer → decode → composite →
// render loop. The loop body is non-reentrant: the next tick is armed only
// after the current iteration's inference has resolved, so no two inference
// calls are ever in flight for the same instance.
type Pipeline struct {
	id      string
	cfg     Config
	src     Source
	exec    *Executor
	pre     *Preprocessor
	rend    FrameRenderer
	def     *Renderer // set when the default renderer is used
	ticker  Ticker
	aligner *Aligner
	log     *slog.Logger
	onStats func(Stats)

	confBits atomic.Uint32 // adjustable confidence threshold

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu  sync.Mutex
	fps      *fpsWindow
	lastDets []Detection
	frames   uint64
	skipped  uint64
	failures uint64
}

// New assembles a pipeline instance around a ready model session.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("pipeline: Source is required")
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("pipeline: Session is required")
	}
	if cfg.InputSize <= 0 || cfg.NumDetections <= 0 || cfg.ProtoSize <= 0 {
		return nil, fmt.Errorf("pipeline: invalid config (start from DefaultConfig)")
	}

	p := &Pipeline{
		id:      uuid.NewString(),
		cfg:     cfg,
		src:     deps.Source,
		pre:     NewPreprocessor(cfg.InputSize),
		ticker:  deps.Ticker,
		aligner: NewAligner(nil),
		log:     deps.Logger,
		onStats: deps.OnStats,
		fps:     newFPSWindow(cfg.StatsInterval),
	}
	p.exec = NewExecutor(deps.Session, &p.cfg)
	p.confBits.Store(math.Float32bits(cfg.ConfThreshold))

	if deps.Renderer != nil {
		p.rend = deps.Renderer
	} else {
		p.def = NewRenderer(cfg, deps.Text)
		p.rend = p.def
	}
	if p.ticker == nil {
		p.ticker = &intervalTicker{d: cfg.TickInterval}
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.log = p.log.With("pipeline", p.id)

	return p, nil
}

// ID returns the instance id used in logs and stats.
func (p *Pipeline) ID() string { return p.id }

// Aligner returns the geometry aligner for this instance. The hosting UI
// feeds it container-resize events and reads DisplayGeometry back.
func (p *Pipeline) Aligner() *Aligner { return p.aligner }

// Canvas returns the default renderer's most recently completed overlay
// frame, or nil when a custom FrameRenderer was injected or no frame has
// been rendered yet. Published frames are immutable, so callers may read
// them while the loop runs.
func (p *Pipeline) Canvas() *image.RGBA {
	if p.def == nil {
		return nil
	}
	return p.def.Canvas()
}

// SetConfThreshold adjusts the confidence filter while the loop runs.
func (p *Pipeline) SetConfThreshold(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.confBits.Store(math.Float32bits(v))
}

// ConfThreshold returns the current confidence filter value.
func (p *Pipeline) ConfThreshold() float32 {
	return math.Float32frombits(p.confBits.Load())
}

// State returns the scheduler state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start moves Idle → Running and begins the loop. It fails when the
// pipeline is already running or was stopped; stopped pipelines are not
// restartable.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateRunning:
		return fmt.Errorf("pipeline already running")
	case StateStopped:
		return ErrStopped
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.state = StateRunning

	p.wg.Add(1)
	go p.run(ctx)

	p.log.Info("pipeline started")
	return nil
}

// Stop moves Running → Stopped. The pending tick is cancelled; an inference
// already in flight completes and its results are disposed without being
// rendered. Idempotent, returns once the loop has exited.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.state != StateRunning {
		p.state = StateStopped
		p.mu.Unlock()
		return
	}
	p.state = StateStopped
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.log.Info("pipeline stopped")
}

// Stats returns a snapshot of the instance's counters and the last
// published detection list.
func (p *Pipeline) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	dets := make([]Detection, len(p.lastDets))
	copy(dets, p.lastDets)
	return Stats{
		FPS:               p.fps.current(),
		FramesProcessed:   p.frames,
		TicksSkipped:      p.skipped,
		InferenceFailures: p.failures,
		Detections:        dets,
	}
}

// run is the frame loop. One iteration per tick; inference is the only
// suspension point and the next tick is armed only after it resolves.
func (p *Pipeline) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		if err := p.ticker.Wait(ctx); err != nil {
			return
		}

		// No decodable frame yet: reschedule without doing work.
		if !p.src.Ready() {
			p.countSkip()
			continue
		}

		// Keep the overlay pixel buffer equal to the native resolution.
		w, h := p.src.NativeSize()
		p.rend.Resize(w, h)
		p.aligner.SetNativeSize(w, h)

		frame, err := p.src.Capture()
		if err != nil {
			p.countSkip()
			p.log.Debug("frame capture failed", "err", err)
			continue
		}

		input := p.pre.Tensor(frame)
		dets, proto, err := p.exec.Run(input, p.ConfThreshold())

		// Stopped while the pass was in flight: discard, never render.
		if ctx.Err() != nil {
			proto.Close()
			return
		}

		if err != nil {
			p.countFailure(err)
			// A dropped frame is invisible; clear and try again next tick.
			p.rend.Draw(nil, nil, p.fps.current())
			continue
		}

		p.rend.Draw(dets, proto, p.fps.current())
		p.completeFrame(dets)
	}
}

func (p *Pipeline) countSkip() {
	p.statsMu.Lock()
	p.skipped++
	p.statsMu.Unlock()
}

func (p *Pipeline) countFailure(err error) {
	p.statsMu.Lock()
	p.failures++
	p.statsMu.Unlock()
	p.log.Warn("inference failed, frame dropped", "err", err)
}

// completeFrame records a rendered frame and publishes throttled state when
// the stats window rolls over.
func (p *Pipeline) completeFrame(dets []Detection) {
	p.statsMu.Lock()
	p.frames++
	value, rolled := p.fps.frame()
	if rolled {
		p.lastDets = dets
	}
	var snapshot Stats
	if rolled && p.onStats != nil {
		snapshot = Stats{
			FPS:               value,
			FramesProcessed:   p.frames,
			TicksSkipped:      p.skipped,
			InferenceFailures: p.failures,
			Detections:        dets,
		}
	}
	p.statsMu.Unlock()

	if rolled && p.onStats != nil {
		p.onStats(snapshot)
	}
}
