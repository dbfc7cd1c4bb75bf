package pipeline

import (
	"context"
	"image"
	"time"
)

// Source is a live video feed. Implementations are in the source package.
type Source interface {
	// Ready reports whether at least one decodable frame is available.
	// While false, scheduler ticks are skipped without doing work.
	Ready() bool

	// NativeSize returns the feed's current native resolution. Only valid
	// once Ready returns true; the value may change mid-stream.
	NativeSize() (w, h int)

	// Capture returns the most recent frame. The returned image is owned by
	// the caller for the duration of one loop iteration.
	Capture() (image.Image, error)
}

// Ticker delivers display-refresh ticks to the scheduler. Wait blocks until
// the next tick, returning ctx.Err when the context is cancelled first. The
// scheduler re-arms by calling Wait again only after the previous iteration
// has fully completed, which is what enforces single-flight execution.
type Ticker interface {
	Wait(ctx context.Context) error
}

// intervalTicker paces the loop at a fixed cadence, standing in for a
// display's frame-ready callback.
type intervalTicker struct {
	d time.Duration
}

func (t *intervalTicker) Wait(ctx context.Context) error {
	timer := time.NewTimer(t.d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
