package pipeline

import (
	"log/slog"
	"math"

	"github.com/getcharzp/go-overlay"
)

// decodeDetections parses the raw [1, 300, 38] detection tensor into
// structured records, preserving input row order. The model is end-to-end
// (duplicate suppression happens inside it), so there is no NMS here.
//
// Row layout:
//
//	[x1, y1, x2, y2, confidence, class, coeff0 ... coeff31]
//
// Rows below the confidence threshold and rows with a degenerate box
// (x2 <= x1 or y2 <= y1) are rejected. The coefficient slice is copied so a
// Detection stays valid after the tensor is disposed.
func decodeDetections(data []float32, cfg *Config, confThreshold float32) []Detection {
	stride := cfg.detStride()
	rows := cfg.NumDetections
	if len(data) < rows*stride {
		slog.Warn("detection tensor smaller than expected",
			"len", len(data), "want", rows*stride)
		rows = len(data) / stride
	}

	var dets []Detection
	for i := 0; i < rows; i++ {
		offset := i * stride

		conf := data[offset+4]
		if conf < confThreshold {
			continue
		}

		x1 := data[offset+0]
		y1 := data[offset+1]
		x2 := data[offset+2]
		y2 := data[offset+3]
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		classID := int(math.Round(float64(data[offset+5])))

		coeffs := make([]float32, cfg.NumMaskCoeffs)
		copy(coeffs, data[offset+6:offset+6+cfg.NumMaskCoeffs])

		dets = append(dets, Detection{
			Box:        [4]float32{x1, y1, x2, y2},
			ClassID:    classID,
			ClassName:  overlay.ClassName(cfg.ClassNames, classID),
			Confidence: conf,
			MaskCoeffs: coeffs,
		})
	}
	return dets
}
