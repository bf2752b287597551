package nn

import (
	"github.com/born-ml/dwconv/internal/tensor"
)

// Parameter represents a learnable parameter of a layer.
//
// The values live in the blob's data buffer and the gradient in its diff
// buffer. Backward passes accumulate into the gradient; callers reset it with
// ZeroGrad between steps.
//
// Example:
//
//	for _, p := range layer.Parameters() {
//	    fmt.Println(p.Name(), p.Blob().Shape(), p.RequiresGrad())
//	}
type Parameter[T tensor.Float] struct {
	name         string          // Parameter name (e.g., "weight", "bias")
	blob         *tensor.Blob[T] // Values and gradient
	requiresGrad bool            // Whether Backward computes this gradient
	lrMult       float64         // Learning-rate multiplier applied by optimizers
}

// NewParameter creates a learnable parameter that requires gradients.
func NewParameter[T tensor.Float](name string, blob *tensor.Blob[T]) *Parameter[T] {
	return &Parameter[T]{
		name:         name,
		blob:         blob,
		requiresGrad: true,
		lrMult:       1,
	}
}

// Name returns the parameter name.
func (p *Parameter[T]) Name() string {
	return p.name
}

// Blob returns the underlying blob.
func (p *Parameter[T]) Blob() *tensor.Blob[T] {
	return p.blob
}

// Data returns the parameter values.
func (p *Parameter[T]) Data() []T {
	return p.blob.Data()
}

// Grad returns the accumulated gradient.
func (p *Parameter[T]) Grad() []T {
	return p.blob.Diff()
}

// RequiresGrad reports whether Backward computes this parameter's gradient.
func (p *Parameter[T]) RequiresGrad() bool {
	return p.requiresGrad
}

// SetRequiresGrad enables or disables gradient computation (frozen parameters).
func (p *Parameter[T]) SetRequiresGrad(v bool) {
	p.requiresGrad = v
}

// LrMult returns the learning-rate multiplier (1 unless configured).
func (p *Parameter[T]) LrMult() float64 {
	return p.lrMult
}

// SetLrMult sets the learning-rate multiplier.
func (p *Parameter[T]) SetLrMult(v float64) {
	p.lrMult = v
}

// ZeroGrad clears the gradient.
//
// This should be called before each training iteration to avoid
// accumulating gradients from previous iterations.
func (p *Parameter[T]) ZeroGrad() {
	p.blob.ZeroDiff()
}
