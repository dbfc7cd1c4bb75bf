package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// FrameDir plays back image files from a directory in name order, looping
// forever. Useful for development without a camera; frames are normalized to
// the first image's resolution so the feed has a stable native size.
type FrameDir struct {
	mu     sync.Mutex
	frames []image.Image
	idx    int
	w, h   int
	last   image.Image
}

// OpenFrameDir loads all jpg/jpeg/png files in dir.
func OpenFrameDir(dir string) (*FrameDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	f := &FrameDir{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
		default:
			continue
		}

		img, err := imaging.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("open frame %s: %w", e.Name(), err)
		}
		if len(f.frames) == 0 {
			f.w = img.Bounds().Dx()
			f.h = img.Bounds().Dy()
		} else if img.Bounds().Dx() != f.w || img.Bounds().Dy() != f.h {
			img = imaging.Resize(img, f.w, f.h, imaging.Lanczos)
		}
		f.frames = append(f.frames, img)
	}

	if len(f.frames) == 0 {
		return nil, fmt.Errorf("no frames found in %s", dir)
	}
	return f, nil
}

// Ready always reports true: the whole sequence is decoded at open time.
func (f *FrameDir) Ready() bool {
	return true
}

// NativeSize returns the normalized frame resolution.
func (f *FrameDir) NativeSize() (int, int) {
	return f.w, f.h
}

// Capture returns the next frame, wrapping at the end of the sequence.
func (f *FrameDir) Capture() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img := f.frames[f.idx]
	f.idx = (f.idx + 1) % len(f.frames)
	f.last = img
	return img, nil
}

// Latest returns the frame most recently handed out by Capture without
// advancing the sequence, or nil before the first capture.
func (f *FrameDir) Latest() image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
