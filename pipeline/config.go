package pipeline

import (
	"time"

	"github.com/getcharzp/go-overlay"
)

// Config holds the overlay pipeline parameters.
type Config struct {
	// Model parameters
	InputSize     int // model input side length, default 640
	NumDetections int // rows in the detection output, default 300
	NumMaskCoeffs int // mask coefficients per row, default 32
	ProtoSize     int // prototype mask side length, default 160

	// Inference parameters
	ConfThreshold float32 // confidence threshold, default 0.5
	MaskThreshold float32 // mask binarization threshold, default 0.5

	// Rendering parameters
	MaskAlpha float64 // mask tint opacity, default 0.35
	BoxWidth  int     // box outline width in pixels, default 3
	FontSize  float64 // label text size, default 14

	// Scheduling parameters
	TickInterval  time.Duration // display tick cadence, default ~60 Hz
	StatsInterval time.Duration // FPS/detection publish window, default 1s

	// Class table, id -> name. Defaults to overlay.DefaultClassNames.
	ClassNames []string
}

// DefaultConfig returns the configuration for the bundled PC-component
// segmentation model.
func DefaultConfig() Config {
	return Config{
		InputSize:     640,
		NumDetections: 300,
		NumMaskCoeffs: 32,
		ProtoSize:     160,
		ConfThreshold: 0.50,
		MaskThreshold: 0.50,
		MaskAlpha:     0.35,
		BoxWidth:      3,
		FontSize:      14,
		TickInterval:  16 * time.Millisecond,
		StatsInterval: time.Second,
		ClassNames:    overlay.DefaultClassNames(),
	}
}

// detStride is the per-row width of the detection tensor:
// x1, y1, x2, y2, confidence, class id, then the mask coefficients.
func (c *Config) detStride() int {
	return 6 + c.NumMaskCoeffs
}

// Detection is one decoded model output row. Coordinates are in the model's
// input space; a Detection is owned by the frame that produced it and is
// discarded on the next loop iteration.
type Detection struct {
	Box        [4]float32 // x1, y1, x2, y2 in model-input coordinates
	ClassID    int
	ClassName  string
	Confidence float32
	MaskCoeffs []float32 // copied out of the raw tensor, len == NumMaskCoeffs
}
