package optim

import (
	"github.com/born-ml/dwconv/internal/blas"
	"github.com/born-ml/dwconv/internal/nn"
	"github.com/born-ml/dwconv/internal/tensor"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * lr_mult * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * lr_mult * velocity
//
// Example:
//
//	optimizer := optim.NewSGD(layer.Parameters(), optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
type SGD[T tensor.Float] struct {
	params     []*nn.Parameter[T]
	lr         float64
	momentum   float64
	velocities map[*nn.Parameter[T]][]T
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD[T tensor.Float](params []*nn.Parameter[T], config SGDConfig) *SGD[T] {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD[T]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter[T]][]T),
	}
}

// Step performs a single optimization step.
func (s *SGD[T]) Step() {
	for _, param := range s.params {
		if !trainable(param) {
			continue
		}
		lr := T(s.lr * param.LrMult())
		grad := param.Grad()

		if s.momentum == 0 {
			blas.Axpy(-lr, grad, param.Data())
			continue
		}

		velocity, ok := s.velocities[param]
		if !ok {
			velocity = make([]T, len(grad))
			s.velocities[param] = velocity
		}
		blas.Scal(T(s.momentum), velocity)
		blas.Axpy(1, grad, velocity)
		blas.Axpy(-lr, velocity, param.Data())
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD[T]) ZeroGrad() {
	zeroGrad(s.params)
}

// GetLR returns the current learning rate.
func (s *SGD[T]) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling during training.
func (s *SGD[T]) SetLR(lr float64) {
	s.lr = lr
}

// Velocity returns the momentum buffer of a parameter, or nil before its
// first momentum step.
func (s *SGD[T]) Velocity(param *nn.Parameter[T]) []T {
	return s.velocities[param]
}
