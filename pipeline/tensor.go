package pipeline

import "sync/atomic"

// liveTensors counts undisposed tensors across the process. The steady-state
// value must return to its baseline after every completed loop iteration.
var liveTensors atomic.Int64

// LiveTensors reports the number of tensors that have been created but not
// yet closed. Exposed for leak checks.
func LiveTensors() int64 {
	return liveTensors.Load()
}

// Tensor is a single-owner handle over a backend-resident float32 buffer.
// Whoever holds the handle must call Close exactly once; ownership moves with
// the handle, it is never shared. Close is idempotent so an error path that
// already released a tensor cannot double-free it.
type Tensor struct {
	data    []float32
	shape   []int64
	release func()
	closed  bool
}

// NewTensor wraps a backend buffer. release frees the underlying resource
// (an ONNX Runtime value, a pooled buffer) and may be nil.
func NewTensor(data []float32, shape []int64, release func()) *Tensor {
	liveTensors.Add(1)
	return &Tensor{data: data, shape: shape, release: release}
}

// Data returns the raw buffer. The slice is only valid until Close.
func (t *Tensor) Data() []float32 {
	return t.data
}

// Shape returns the tensor dimensions.
func (t *Tensor) Shape() []int64 {
	return t.shape
}

// Dim returns dimension i, or 0 when out of range.
func (t *Tensor) Dim(i int) int {
	if i < 0 || i >= len(t.shape) {
		return 0
	}
	return int(t.shape[i])
}

// Close releases the underlying resource. Safe to call more than once;
// only the first call has effect.
func (t *Tensor) Close() {
	if t == nil || t.closed {
		return
	}
	t.closed = true
	t.data = nil
	liveTensors.Add(-1)
	if t.release != nil {
		t.release()
	}
}
