// Package optim implements parameter update rules for layer parameters.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers read the gradient each parameter accumulated during Backward
// and update its values in place. Each parameter's learning rate is the
// optimizer LR scaled by the parameter's lr_mult; frozen parameters
// (RequiresGrad false) are skipped.
//
// Example usage:
//
//	optimizer := optim.NewSGD(layer.Parameters(), optim.SGDConfig{LR: 0.01})
//
//	for step := range steps {
//	    optimizer.ZeroGrad()
//	    layer.Forward(bottom, top)
//	    fillLossGradient(top)
//	    layer.Backward(top, []bool{false}, bottom)
//	    optimizer.Step()
//	}
package optim

import (
	"github.com/born-ml/dwconv/internal/nn"
	"github.com/born-ml/dwconv/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies the accumulated gradients to all parameters.
	Step()

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current base learning rate.
	GetLR() float64
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// trainable reports whether a parameter takes part in updates.
func trainable[T tensor.Float](p *nn.Parameter[T]) bool {
	return p != nil && p.RequiresGrad() && p.LrMult() != 0
}

func zeroGrad[T tensor.Float](params []*nn.Parameter[T]) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
