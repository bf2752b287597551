package tensor

import "fmt"

// Blob is a contiguous N-D array with a same-shaped gradient buffer.
//
// Layers read activations from Data and write gradients into Diff. Storage is
// row-major; for the usual 4-D case the axes are (N, C, H, W).
//
// Example:
//
//	b := tensor.Zeros[float32](tensor.Shape{2, 3, 8, 8})
//	b.Data()[b.Offset(1, 2, 0, 0)] = 1
//	b.ZeroDiff()
type Blob[T Float] struct {
	shape  Shape
	stride []int
	data   []T
	diff   []T
}

// NewBlob allocates a zero-filled blob with the given shape.
func NewBlob[T Float](shape Shape) (*Blob[T], error) {
	b := &Blob[T]{}
	if err := b.Reshape(shape); err != nil {
		return nil, err
	}
	return b, nil
}

// Reshape changes the blob's shape.
//
// Backing storage is reused when its capacity already covers the new element
// count and grown otherwise. Existing values are not cleared.
func (b *Blob[T]) Reshape(shape Shape) error {
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("invalid shape: %w", err)
	}
	count := shape.NumElements()
	b.data = resize(b.data, count)
	b.diff = resize(b.diff, count)
	b.shape = shape.Clone()
	b.stride = b.shape.ComputeStrides()
	return nil
}

// ReshapeLike reshapes b to other's shape.
func (b *Blob[T]) ReshapeLike(other *Blob[T]) error {
	return b.Reshape(other.shape)
}

func resize[T Float](buf []T, count int) []T {
	if cap(buf) >= count {
		return buf[:count]
	}
	return make([]T, count)
}

// Shape returns the blob's shape.
func (b *Blob[T]) Shape() Shape {
	return b.shape
}

// Count returns the total number of elements.
func (b *Blob[T]) Count() int {
	return len(b.data)
}

// Empty reports whether the blob has never been shaped.
func (b *Blob[T]) Empty() bool {
	return b == nil || len(b.shape) == 0
}

// Num returns the batch dimension of a 4-D blob.
func (b *Blob[T]) Num() int { return b.axis(0) }

// Channels returns the channel dimension of a 4-D blob.
func (b *Blob[T]) Channels() int { return b.axis(1) }

// Height returns the height dimension of a 4-D blob.
func (b *Blob[T]) Height() int { return b.axis(2) }

// Width returns the width dimension of a 4-D blob.
func (b *Blob[T]) Width() int { return b.axis(3) }

func (b *Blob[T]) axis(i int) int {
	if i >= len(b.shape) {
		panic(fmt.Sprintf("blob: axis %d out of range for shape %v", i, b.shape))
	}
	return b.shape[i]
}

// DType returns the blob's data type.
func (b *Blob[T]) DType() DataType {
	return DTypeOf[T]()
}

// Data returns the value buffer.
//
// WARNING: the slice aliases the blob's storage.
func (b *Blob[T]) Data() []T {
	return b.data
}

// Diff returns the gradient buffer.
//
// WARNING: the slice aliases the blob's storage.
func (b *Blob[T]) Diff() []T {
	return b.diff
}

// Offset returns the flat index of the given indices.
// Trailing indices may be omitted and are treated as 0.
// Panics if indices are out of bounds.
func (b *Blob[T]) Offset(indices ...int) int {
	if len(indices) > len(b.shape) {
		panic(fmt.Sprintf("expected at most %d indices, got %d", len(b.shape), len(indices)))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= b.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, b.shape[i]))
		}
		offset += idx * b.stride[i]
	}
	return offset
}

// At returns the value at the given indices.
func (b *Blob[T]) At(indices ...int) T {
	return b.data[b.Offset(indices...)]
}

// Set sets the value at the given indices.
func (b *Blob[T]) Set(value T, indices ...int) {
	b.data[b.Offset(indices...)] = value
}

// DiffAt returns the gradient at the given indices.
func (b *Blob[T]) DiffAt(indices ...int) T {
	return b.diff[b.Offset(indices...)]
}

// Fill sets every value to v.
func (b *Blob[T]) Fill(v T) {
	for i := range b.data {
		b.data[i] = v
	}
}

// ZeroData clears the value buffer.
func (b *Blob[T]) ZeroData() {
	clear(b.data)
}

// ZeroDiff clears the gradient buffer.
//
// Backward passes accumulate into parameter gradients, so training loops
// call this (usually through Parameter.ZeroGrad) before each step.
func (b *Blob[T]) ZeroDiff() {
	clear(b.diff)
}

// CopyFrom copies other's values (or gradients when diff is true) into b.
// Shapes must match unless reshape is true.
func (b *Blob[T]) CopyFrom(other *Blob[T], diff, reshape bool) error {
	if !b.shape.Equal(other.shape) {
		if !reshape {
			return fmt.Errorf("copy: shape mismatch %v vs %v", b.shape, other.shape)
		}
		if err := b.ReshapeLike(other); err != nil {
			return err
		}
	}
	if diff {
		copy(b.diff, other.diff)
	} else {
		copy(b.data, other.data)
	}
	return nil
}

// Clone creates a deep copy of the blob, gradients included.
func (b *Blob[T]) Clone() *Blob[T] {
	return &Blob[T]{
		shape:  b.shape.Clone(),
		stride: append([]int(nil), b.stride...),
		data:   append([]T(nil), b.data...),
		diff:   append([]T(nil), b.diff...),
	}
}

// String returns a human-readable representation of the blob.
func (b *Blob[T]) String() string {
	return fmt.Sprintf("Blob[%s]%v", b.DType(), b.shape)
}
