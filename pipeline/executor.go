package pipeline

import "fmt"

// Session runs one forward pass of the detection+segmentation model and
// returns the two raw outputs: the detection tensor ([1, 300, 38]) and the
// mask prototype tensor ([1, 160, 160, 32]). Ownership of both returned
// tensors passes to the caller. Implemented by model.Handle.
type Session interface {
	Infer(input *Tensor) (det, proto *Tensor, err error)
}

// Executor runs one forward pass per loop iteration and owns the disposal
// contract for every tensor the pass touches:
//
//   - the input is disposed right after the call, on success and on error
//   - the detection tensor is disposed right after parsing
//   - the prototype tensor is returned undisposed when at least one
//     detection survives filtering (ownership moves to the caller), and is
//     disposed here with a nil return otherwise
type Executor struct {
	sess Session
	cfg  *Config
}

// NewExecutor wraps a model session with the pipeline's disposal contract.
func NewExecutor(sess Session, cfg *Config) *Executor {
	return &Executor{sess: sess, cfg: cfg}
}

// Run executes one forward pass. Ownership of input transfers in; it is
// always disposed before Run returns. confThreshold is passed per call so
// the scheduler can adjust it while running.
func (e *Executor) Run(input *Tensor, confThreshold float32) ([]Detection, *Tensor, error) {
	det, proto, err := e.sess.Infer(input)
	input.Close()
	if err != nil {
		det.Close()
		proto.Close()
		return nil, nil, fmt.Errorf("inference: %w", err)
	}

	dets := decodeDetections(det.Data(), e.cfg, confThreshold)
	det.Close()

	if len(dets) == 0 {
		proto.Close()
		return nil, nil, nil
	}
	return dets, proto, nil
}
