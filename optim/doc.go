// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides parameter update rules for layer parameters.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// Each parameter's learning rate is scaled by its configured lr_mult.
// Frozen parameters are left untouched.
//
// # Basic Usage
//
//	optimizer := optim.NewSGD(layer.Parameters(), optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
//
//	for step := range 100 {
//	    optimizer.ZeroGrad()
//	    layer.Forward(bottom, top)
//	    computeLossGradient(top[0])
//	    layer.Backward(top, []bool{false}, bottom)
//	    optimizer.Step()
//	}
package optim
