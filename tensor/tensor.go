// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand/v2"

	"github.com/born-ml/dwconv/internal/tensor"
)

// Type aliases for public API

// Float is the element type constraint: float32 or float64.
type Float = tensor.Float

// DataType represents the element type of a blob.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Shape represents the dimensions of a blob.
type Shape = tensor.Shape

// Blob is a contiguous N-D array with a same-shaped gradient buffer.
type Blob[T Float] = tensor.Blob[T]

// NewBlob allocates a zero-filled blob with the given shape.
func NewBlob[T Float](shape Shape) (*Blob[T], error) {
	return tensor.NewBlob[T](shape)
}

// Zeros creates a blob filled with zeros.
func Zeros[T Float](shape Shape) *Blob[T] {
	return tensor.Zeros[T](shape)
}

// Ones creates a blob filled with ones.
func Ones[T Float](shape Shape) *Blob[T] {
	return tensor.Ones[T](shape)
}

// Full creates a blob filled with value.
func Full[T Float](shape Shape, value T) *Blob[T] {
	return tensor.Full(shape, value)
}

// FromSlice creates a blob from a copy of data.
func FromSlice[T Float](data []T, shape Shape) (*Blob[T], error) {
	return tensor.FromSlice(data, shape)
}

// RandUniform creates a blob with values uniformly distributed in [lo, hi).
// A nil rng uses the global source.
func RandUniform[T Float](shape Shape, lo, hi float64, rng *rand.Rand) *Blob[T] {
	return tensor.RandUniform[T](shape, lo, hi, rng)
}
