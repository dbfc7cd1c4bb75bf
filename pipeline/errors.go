package pipeline

import "errors"

var (
	// ErrNotReady reports that the video source has no decodable frame yet.
	// Expected while a camera is starting up; the tick is skipped.
	ErrNotReady = errors.New("video source not ready")

	// ErrStopped reports that the pipeline was stopped before or during the
	// requested operation.
	ErrStopped = errors.New("pipeline stopped")
)
