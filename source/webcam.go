// Package source provides live video feeds for the overlay pipeline.
package source

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/getcharzp/go-overlay/pipeline"
)

// Webcam reads frames from a local camera device. Safe for concurrent use;
// the pipeline and a display loop may both pull frames.
type Webcam struct {
	mu    sync.Mutex
	cap   *gocv.VideoCapture
	mat   gocv.Mat
	w, h  int
	ready bool
	frame image.Image // last frame handed out by Capture
}

// OpenWebcam opens camera device (0 for the default camera).
func OpenWebcam(device int) (*Webcam, error) {
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", device, err)
	}
	w := &Webcam{
		cap: cap,
		mat: gocv.NewMat(),
		w:   int(cap.Get(gocv.VideoCaptureFrameWidth)),
		h:   int(cap.Get(gocv.VideoCaptureFrameHeight)),
	}
	return w, nil
}

// Ready reports whether the camera has produced a decodable frame. Until
// the first frame arrives this probes the device once per call.
func (w *Webcam) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ready {
		return true
	}
	return w.readLocked()
}

// NativeSize returns the camera's native resolution.
func (w *Webcam) NativeSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w, w.h
}

// Capture grabs the next frame from the device and caches it for Latest.
func (w *Webcam) Capture() (image.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.readLocked() {
		return nil, pipeline.ErrNotReady
	}
	img, err := w.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	w.frame = img
	return img, nil
}

// Latest returns the frame most recently handed out by Capture without
// consuming another one from the device, or nil before the first capture.
// A display loop reads frames here so it stays in step with the pipeline
// instead of competing with it for every other frame.
func (w *Webcam) Latest() image.Image {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frame
}

// readLocked pulls one frame into the scratch mat and refreshes the native
// size from it. Caller holds the lock.
func (w *Webcam) readLocked() bool {
	if !w.cap.Read(&w.mat) || w.mat.Empty() {
		return false
	}
	w.w = w.mat.Cols()
	w.h = w.mat.Rows()
	w.ready = true
	return true
}

// Close releases the device and the scratch buffer.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mat.Close()
	return w.cap.Close()
}
