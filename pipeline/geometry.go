package pipeline

import "sync"

// DisplayGeometry describes the letterboxed placement of the native-resolution
// video inside its container: uniform scale, centered, no cropping. The
// hosting UI applies it to both the video element and the overlay surface so
// the two stay aligned. It never affects overlay pixel content.
type DisplayGeometry struct {
	OffsetX       int
	OffsetY       int
	DisplayWidth  int
	DisplayHeight int
}

// Aligner computes DisplayGeometry from two independently updated inputs:
// the video's native resolution (known once metadata arrives, may change)
// and the container size (changes on resize). Either update path recomputes
// the shared geometry; no ordering between them is assumed.
type Aligner struct {
	mu         sync.Mutex
	nativeW    int
	nativeH    int
	containerW int
	containerH int
	geom       DisplayGeometry
	onChange   func(DisplayGeometry)
}

// NewAligner creates an aligner. onChange may be nil; when set it fires,
// with the lock released, whenever the geometry actually changes.
func NewAligner(onChange func(DisplayGeometry)) *Aligner {
	return &Aligner{onChange: onChange}
}

// SetNativeSize records the video's native resolution.
func (a *Aligner) SetNativeSize(w, h int) {
	a.mu.Lock()
	if w == a.nativeW && h == a.nativeH {
		a.mu.Unlock()
		return
	}
	a.nativeW, a.nativeH = w, h
	a.recompute()
}

// SetContainerSize records the container's size.
func (a *Aligner) SetContainerSize(w, h int) {
	a.mu.Lock()
	if w == a.containerW && h == a.containerH {
		a.mu.Unlock()
		return
	}
	a.containerW, a.containerH = w, h
	a.recompute()
}

// Geometry returns the current letterboxed placement.
func (a *Aligner) Geometry() DisplayGeometry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.geom
}

// recompute applies the contain fit. Called with the lock held; releases it
// before notifying.
func (a *Aligner) recompute() {
	var geom DisplayGeometry
	if a.nativeW > 0 && a.nativeH > 0 && a.containerW > 0 && a.containerH > 0 {
		scale := float64(a.containerW) / float64(a.nativeW)
		if s := float64(a.containerH) / float64(a.nativeH); s < scale {
			scale = s
		}
		geom.DisplayWidth = int(float64(a.nativeW)*scale + 0.5)
		geom.DisplayHeight = int(float64(a.nativeH)*scale + 0.5)
		geom.OffsetX = (a.containerW - geom.DisplayWidth) / 2
		geom.OffsetY = (a.containerH - geom.DisplayHeight) / 2
	}

	changed := geom != a.geom
	a.geom = geom
	cb := a.onChange
	a.mu.Unlock()

	if changed && cb != nil {
		cb(geom)
	}
}
