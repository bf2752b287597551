// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the depthwise convolution layer.
//
// # Overview
//
// This package contains:
//   - Layer: Setup / Reshape / Forward / Backward lifecycle over blobs
//   - DepthwiseConv: per-channel 2D convolution with optional bias
//   - Registry: builds layers from their configured type
//   - SaveParameters / LoadParameters: SafeTensors persistence
//   - CheckGradients: finite-difference gradient verification
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/dwconv/config"
//	    "github.com/born-ml/dwconv/nn"
//	    "github.com/born-ml/dwconv/tensor"
//	)
//
//	func main() {
//	    param, err := config.Load("dw1.yaml")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    layer, err := nn.NewRegistry[float32]().Create(*param)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    bottom := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{8, 32, 56, 56})}
//	    top := []*tensor.Blob[float32]{{}}
//	    if err := layer.Setup(bottom, top); err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := layer.Reshape(bottom, top); err != nil {
//	        log.Fatal(err)
//	    }
//	    layer.Forward(bottom, top)
//	}
//
// # Gradients
//
// Backward accumulates into parameter gradients and overwrites input
// gradients. Call ZeroGrad between optimization steps.
package nn
