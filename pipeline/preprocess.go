package pipeline

import (
	"image"
	"sync"

	"github.com/up-zero/gotool/imageutil"
)

// Preprocessor converts captured frames into model input tensors.
//
// Frames are stretched uniformly to InputSize x InputSize (no letterboxing),
// so callers map detection coordinates back to video space with independent
// X/Y scale factors. Buffers are pooled and returned on Tensor.Close; a
// buffer is never handed out again before the previous tensor was closed,
// so no frame aliases another.
type Preprocessor struct {
	inputSize int
	pool      sync.Pool // *[]float32, len inputSize*inputSize*3
}

// NewPreprocessor creates a preprocessor for a square model input.
func NewPreprocessor(inputSize int) *Preprocessor {
	p := &Preprocessor{inputSize: inputSize}
	p.pool.New = func() any {
		buf := make([]float32, inputSize*inputSize*3)
		return &buf
	}
	return p
}

// Tensor produces the NHWC [1, S, S, 3] input tensor for one frame, with
// channel values normalized to [0, 1].
func (p *Preprocessor) Tensor(img image.Image) *Tensor {
	size := p.inputSize
	resized := imageutil.Resize(img, size, size)

	bufPtr := p.pool.Get().(*[]float32)
	data := *bufPtr

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()

			idx := (y*size + x) * 3
			data[idx] = float32(r) / 65535.0   // R
			data[idx+1] = float32(g) / 65535.0 // G
			data[idx+2] = float32(b) / 65535.0 // B
		}
	}

	shape := []int64{1, int64(size), int64(size), 3}
	return NewTensor(data, shape, func() { p.pool.Put(bufPtr) })
}

// ZeroTensor returns an all-zero input tensor of the model's expected shape,
// used for the warm-up pass at load time.
func ZeroTensor(inputSize int) *Tensor {
	data := make([]float32, inputSize*inputSize*3)
	shape := []int64{1, int64(inputSize), int64(inputSize), 3}
	return NewTensor(data, shape, nil)
}
