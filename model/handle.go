package model

import (
	"fmt"

	ort "github.com/getcharzp/onnxruntime_purego"

	"github.com/getcharzp/go-overlay"
	"github.com/getcharzp/go-overlay/pipeline"
)

// ortInputName and the output names are fixed by the exported model graph.
const (
	ortInputName       = "images"
	ortDetOutputName   = "output0"
	ortProtoOutputName = "output1"
)

// backend runs a forward pass. Ownership of the returned tensors passes to
// the caller; the input stays owned by the caller.
type backend interface {
	infer(input *pipeline.Tensor) (det, proto *pipeline.Tensor, err error)
	destroy()
}

// Handle is the shared, read-only-after-Ready model handle. It implements
// pipeline.Session; one handle serves any number of pipeline instances.
type Handle struct {
	b backend
}

// Infer runs one forward pass and returns the raw detection and prototype
// tensors. Ownership of both transfers to the caller.
func (h *Handle) Infer(input *pipeline.Tensor) (*pipeline.Tensor, *pipeline.Tensor, error) {
	return h.b.infer(input)
}

// ortLoader builds the ONNX Runtime backend, initializing the shared
// environment on first use.
func ortLoader(cfg Config) (backend, error) {
	oc := &overlay.OnnxConfig{
		OnnxRuntimeLibPath: cfg.OnnxRuntimeLibPath,
		UseCuda:            cfg.UseCuda,
		NumThreads:         cfg.NumThreads,
	}
	if err := oc.New(); err != nil {
		return nil, err
	}

	session, err := oc.OnnxEngine.NewSession(cfg.ModelPath, oc.SessionOptions)
	if err != nil {
		return nil, fmt.Errorf("create ONNX session: %w", err)
	}
	return &ortBackend{session: session}, nil
}

// ortBackend adapts an ONNX Runtime session to the backend contract,
// wrapping the raw output values in single-owner tensor handles.
type ortBackend struct {
	session *ort.Session
}

func (b *ortBackend) infer(input *pipeline.Tensor) (*pipeline.Tensor, *pipeline.Tensor, error) {
	val, err := ort.NewTensor(input.Shape(), input.Data())
	if err != nil {
		return nil, nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputs, err := b.session.Run(map[string]*ort.Value{ortInputName: val})
	val.Destroy()
	if err != nil {
		return nil, nil, fmt.Errorf("run session: %w", err)
	}

	out0 := outputs[ortDetOutputName]
	out1 := outputs[ortProtoOutputName]
	for name, v := range outputs {
		if name != ortDetOutputName && name != ortProtoOutputName {
			v.Destroy()
		}
	}
	if out0 == nil || out1 == nil {
		if out0 != nil {
			out0.Destroy()
		}
		if out1 != nil {
			out1.Destroy()
		}
		return nil, nil, fmt.Errorf("model outputs missing (%s, %s)", ortDetOutputName, ortProtoOutputName)
	}

	det, err := wrapValue(out0)
	if err != nil {
		out0.Destroy()
		out1.Destroy()
		return nil, nil, err
	}
	proto, err := wrapValue(out1)
	if err != nil {
		det.Close()
		out1.Destroy()
		return nil, nil, err
	}
	return det, proto, nil
}

// wrapValue moves an ORT value into a pipeline tensor; Close destroys the
// value, which is what invalidates the data view.
func wrapValue(v *ort.Value) (*pipeline.Tensor, error) {
	data, err := ort.GetTensorData[float32](v)
	if err != nil {
		return nil, fmt.Errorf("read output tensor: %w", err)
	}
	shape, err := v.GetShape()
	if err != nil {
		return nil, fmt.Errorf("read output shape: %w", err)
	}
	return pipeline.NewTensor(data, shape, v.Destroy), nil
}

func (b *ortBackend) destroy() {
	if b.session != nil {
		b.session.Destroy()
	}
}
