package tensor

import (
	"fmt"
	"math/rand/v2"
)

// Zeros creates a blob filled with zeros.
//
// Example:
//
//	b := tensor.Zeros[float32](Shape{1, 3, 4, 4})
func Zeros[T Float](shape Shape) *Blob[T] {
	b, err := NewBlob[T](shape)
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	return b
}

// Ones creates a blob filled with ones.
func Ones[T Float](shape Shape) *Blob[T] {
	return Full[T](shape, 1)
}

// Full creates a blob filled with a specific value.
//
// Example:
//
//	b := tensor.Full[float64](Shape{3}, 0.5)
func Full[T Float](shape Shape, value T) *Blob[T] {
	b := Zeros[T](shape)
	b.Fill(value)
	return b
}

// FromSlice creates a blob from a Go slice.
// The slice is copied into the blob's memory.
func FromSlice[T Float](data []T, shape Shape) (*Blob[T], error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	b, err := NewBlob[T](shape)
	if err != nil {
		return nil, err
	}
	copy(b.data, data)
	return b, nil
}

// RandUniform creates a blob with values uniformly distributed in [lo, hi).
// A nil rng uses the global source.
//
//nolint:gosec // G404: ML uses math/rand intentionally for reproducibility
func RandUniform[T Float](shape Shape, lo, hi float64, rng *rand.Rand) *Blob[T] {
	b := Zeros[T](shape)
	draw := rand.Float64
	if rng != nil {
		draw = rng.Float64
	}
	for i := range b.data {
		b.data[i] = T(lo + (hi-lo)*draw())
	}
	return b
}
