package serialization

import (
	"encoding/binary"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/dwconv/internal/tensor"
)

const metadataKey = "__metadata__"

// Well-known metadata keys.
const (
	MetaChecksum     = "checksum"      // hex SHA-256 of the data section
	MetaCheckpointID = "checkpoint_id" // unique id of one save
	MetaLayer        = "layer"         // layer instance name
	MetaType         = "type"          // layer type string
)

// DType is a SafeTensors dtype string.
type DType string

// Supported dtypes.
const (
	F32 DType = "F32"
	F64 DType = "F64"
)

// DTypeOf maps a tensor data type to its SafeTensors name.
func DTypeOf(dt tensor.DataType) DType {
	if dt == tensor.Float64 {
		return F64
	}
	return F32
}

// DataType maps the SafeTensors name back to a tensor data type.
func (d DType) DataType() (tensor.DataType, error) {
	switch d {
	case F32:
		return tensor.Float32, nil
	case F64:
		return tensor.Float64, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedDType, "%q", string(d))
}

// TensorInfo describes one tensor in the header.
type TensorInfo struct {
	DType       DType    `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end)
}

// Header is the decoded JSON header.
type Header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo
}

// MarshalJSON flattens the header into the SafeTensors object layout.
func (h Header) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(h.Tensors)+1)
	if len(h.Metadata) > 0 {
		m[metadataKey] = h.Metadata
	}
	for name, info := range h.Tensors {
		m[name] = info
	}
	return json.Marshal(m)
}

// UnmarshalJSON splits the SafeTensors object into metadata and tensors.
func (h *Header) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	h.Tensors = make(map[string]TensorInfo, len(raw))
	for key, value := range raw {
		if key == metadataKey {
			if err := json.Unmarshal(value, &h.Metadata); err != nil {
				return errors.Wrap(err, "failed to unmarshal metadata")
			}
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return errors.Wrapf(err, "failed to unmarshal tensor %s", key)
		}
		h.Tensors[key] = info
	}
	return nil
}

// Names returns tensor names in file order.
func (h *Header) Names() []string {
	names := make([]string, 0, len(h.Tensors))
	for name := range h.Tensors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return h.Tensors[names[i]].DataOffsets[0] < h.Tensors[names[j]].DataOffsets[0]
	})
	return names
}

// Tensor is one named tensor with its little-endian payload.
type Tensor struct {
	Name  string
	DType DType
	Shape tensor.Shape
	Data  []byte
}

// Encode packs values into a Tensor.
func Encode[T tensor.Float](name string, shape tensor.Shape, values []T) Tensor {
	buf, err := binary.Append(nil, binary.LittleEndian, values)
	if err != nil {
		panic(err) // float slices are always fixed-size
	}
	return Tensor{
		Name:  name,
		DType: DTypeOf(tensor.DTypeOf[T]()),
		Shape: shape.Clone(),
		Data:  buf,
	}
}

// Decode unpacks a Tensor's payload into a new slice.
// Returns ErrDTypeMismatch if the stored dtype differs from T.
func Decode[T tensor.Float](t Tensor) ([]T, error) {
	want := DTypeOf(tensor.DTypeOf[T]())
	if t.DType != want {
		return nil, errors.Wrapf(ErrDTypeMismatch, "tensor %s: stored %s, requested %s", t.Name, t.DType, want)
	}
	n := t.Shape.NumElements()
	if n*tensor.DTypeOf[T]().Size() != len(t.Data) {
		return nil, errors.Errorf("tensor %s: %d bytes for shape %v", t.Name, len(t.Data), t.Shape)
	}
	values := make([]T, n)
	if _, err := binary.Decode(t.Data, binary.LittleEndian, values); err != nil {
		return nil, errors.Wrapf(err, "tensor %s", t.Name)
	}
	return values, nil
}
