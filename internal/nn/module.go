// Package nn implements the depthwise convolution layer and its supporting
// machinery.
//
// This package provides:
//   - Layer interface: Setup / Reshape / Forward / Backward lifecycle over blobs
//   - Parameter: learnable blob with a per-parameter gradient flag
//   - DepthwiseConv: per-channel 2D convolution (channel multiplier 1)
//   - Registry: explicit Kind -> constructor table
//   - SaveParameters / LoadParameters: SafeTensors persistence
//   - CheckGradients: finite-difference gradient verification
//
// Layers follow a blob-based contract: the host owns the input and output
// blobs and drives the lifecycle; layers own their parameters and scratch
// buffers.
package nn

import (
	"github.com/born-ml/dwconv/internal/tensor"
)

// Layer is the lifecycle contract every layer implements.
//
// Call order is Setup once, then Reshape whenever input shapes change, then
// any number of Forward/Backward pairs. A single instance is not safe for
// concurrent use; the host serializes calls per layer.
//
// Type parameter T is the element type (float32 or float64).
type Layer[T tensor.Float] interface {
	// Name returns the configured instance name.
	Name() string

	// Type returns the registered layer type string.
	Type() string

	// Setup resolves configuration and allocates parameters if absent.
	Setup(bottom, top []*tensor.Blob[T]) error

	// Reshape sizes top blobs and internal buffers from bottom shapes.
	Reshape(bottom, top []*tensor.Blob[T]) error

	// Forward computes top data from bottom data.
	//
	// Panics if blob shapes differ from the last Reshape.
	Forward(bottom, top []*tensor.Blob[T])

	// Backward computes parameter gradients (accumulated) and, where
	// propagateDown[i] is set, bottom[i]'s gradient (overwritten).
	//
	// Panics if blob shapes differ from the last Reshape.
	Backward(top []*tensor.Blob[T], propagateDown []bool, bottom []*tensor.Blob[T])

	// Parameters returns the learnable parameters, weight first.
	// Empty before Setup or a parameter restore.
	Parameters() []*Parameter[T]

	// ZeroGrad clears every parameter gradient.
	ZeroGrad()
}

// ParameterRestorer is implemented by layers that accept externally loaded
// parameter values. Restored parameters make a later Setup skip initialization.
type ParameterRestorer[T tensor.Float] interface {
	RestoreParameters(blobs map[string]*tensor.Blob[T]) error
}
