package pipeline

import "time"

// fpsWindow throttles externally observable state to roughly one update per
// interval. Completed frames are counted per window; when the window has
// elapsed the published value becomes completed-frames / elapsed-seconds.
type fpsWindow struct {
	interval time.Duration
	now      func() time.Time // injectable clock

	start  time.Time
	frames int
	value  float64
}

func newFPSWindow(interval time.Duration) *fpsWindow {
	return &fpsWindow{interval: interval, now: time.Now}
}

// frame records one completed loop iteration. It returns the published FPS
// value and whether this call rolled the window over (i.e. downstream
// observers should be notified).
func (w *fpsWindow) frame() (float64, bool) {
	now := w.now()
	if w.start.IsZero() {
		w.start = now
	}
	w.frames++

	elapsed := now.Sub(w.start)
	if elapsed < w.interval {
		return w.value, false
	}

	w.value = float64(w.frames) / elapsed.Seconds()
	w.frames = 0
	w.start = now
	return w.value, true
}

// current returns the last published value without recording a frame.
func (w *fpsWindow) current() float64 {
	return w.value
}
