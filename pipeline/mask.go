package pipeline

import (
	"image"
	"math"
)

// maskBuilder reconstructs per-instance binary masks from the shared
// prototype tensor. The 160x160 binary buffer is an arena reused across
// detections and frames, so mask decode allocates nothing per frame.
type maskBuilder struct {
	size     int // prototype side length (160)
	channels int // coefficients per cell (32)
	bin      []uint8
}

func newMaskBuilder(size, channels int) *maskBuilder {
	return &maskBuilder{
		size:     size,
		channels: channels,
		bin:      make([]uint8, size*size),
	}
}

// build fills the binary mask for one detection: per cell, the dot product
// of the cell's channel values with the detection's coefficients, through a
// sigmoid, thresholded. proto is [size, size, channels] (channels last) and
// is read-only shared state; it is never written here.
func (b *maskBuilder) build(coeffs []float32, proto []float32, threshold float32) {
	size, channels := b.size, b.channels
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			base := (y*size + x) * channels
			sum := float32(0.0)
			for k := 0; k < channels; k++ {
				sum += coeffs[k] * proto[base+k]
			}
			if sigmoid(sum) > threshold {
				b.bin[y*size+x] = 1
			} else {
				b.bin[y*size+x] = 0
			}
		}
	}
}

// at reports whether mask cell (x, y) is set.
func (b *maskBuilder) at(x, y int) bool {
	if x < 0 || x >= b.size || y < 0 || y >= b.size {
		return false
	}
	return b.bin[y*b.size+x] == 1
}

// maskRect maps a model-space box into prototype-cell space by linear
// scaling, clamped to the prototype bounds. Masks are cropped to this
// region before rasterizing.
func maskRect(box [4]float32, inputSize, protoSize int) image.Rectangle {
	scale := float64(protoSize) / float64(inputSize)
	x1 := int(math.Round(float64(box[0]) * scale))
	y1 := int(math.Round(float64(box[1]) * scale))
	x2 := int(math.Round(float64(box[2]) * scale))
	y2 := int(math.Round(float64(box[3]) * scale))
	return image.Rect(x1, y1, x2, y2).Intersect(image.Rect(0, 0, protoSize, protoSize))
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}
