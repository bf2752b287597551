// Package tensor provides the blob storage used by dwconv layers.
package tensor

// Float is a constraint for the element types layers compute over.
// It uses Go generics so the choice between 32- and 64-bit math is made at compile time.
type Float interface {
	float32 | float64
}

// DataType represents runtime type information for blobs.
type DataType int

// Supported data types for blobs.
const (
	Float32 DataType = iota
	Float64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// DTypeOf infers DataType from a generic type T.
func DTypeOf[T Float]() DataType {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		panic("unsupported type")
	}
}
