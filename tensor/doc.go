// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the blob storage layers read from and write to.
//
// # Overview
//
// A Blob is a contiguous row-major N-D array paired with a same-shaped
// gradient buffer:
//   - Data(): activations or parameter values
//   - Diff(): gradients written by Backward
//
// For convolution layers blobs are 4-D with axes (N, C, H, W).
//
// # Basic Usage
//
//	import "github.com/born-ml/dwconv/tensor"
//
//	func main() {
//	    x := tensor.Zeros[float32](tensor.Shape{1, 3, 32, 32})
//	    x.Set(1, 0, 2, 5, 5)
//	    fmt.Println(x.Shape(), x.At(0, 2, 5, 5))
//	}
//
// # Supported Data Types
//
// Blobs are generic over the Float constraint: float32 and float64.
package tensor
