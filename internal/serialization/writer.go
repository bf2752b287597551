package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"maps"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Writer writes tensors in SafeTensors format.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a new SafeTensors file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for parameter saving
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file")
	}
	return &Writer{file: file}, nil
}

// WriteFile writes tensors to a SafeTensors file at path and returns the
// data checksum.
func WriteFile(path string, tensors []Tensor, metadata map[string]string) (checksum string, err error) {
	w, err := NewWriter(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return w.Write(tensors, metadata)
}

// Write writes tensors and metadata to the file.
func (w *Writer) Write(tensors []Tensor, metadata map[string]string) (string, error) {
	if w.closed {
		return "", errors.New("writer is closed")
	}
	return WriteTo(w.file, tensors, metadata)
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo encodes tensors to out.
//
// Tensors are laid out in alphabetical name order. The checksum metadata
// entry is always set from the data section and returned; other entries are
// copied as given.
func WriteTo(out io.Writer, tensors []Tensor, metadata map[string]string) (string, error) {
	sorted := make([]Tensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := Header{
		Metadata: make(map[string]string, len(metadata)+1),
		Tensors:  make(map[string]TensorInfo, len(sorted)),
	}
	maps.Copy(header.Metadata, metadata)

	var payload bytes.Buffer
	for i, t := range sorted {
		if err := ValidateTensorName(t.Name); err != nil {
			return "", err
		}
		if i > 0 && sorted[i-1].Name == t.Name {
			return "", errors.Wrapf(ErrInvalidTensorName, "duplicate tensor %q", t.Name)
		}
		if _, err := t.DType.DataType(); err != nil {
			return "", errors.WithMessagef(err, "tensor %s", t.Name)
		}

		start := int64(payload.Len())
		payload.Write(t.Data)
		header.Tensors[t.Name] = TensorInfo{
			DType:       t.DType,
			Shape:       []int(t.Shape),
			DataOffsets: [2]int64{start, int64(payload.Len())},
		}
	}
	checksum := ComputeChecksum(payload.Bytes())
	header.Metadata[MetaChecksum] = checksum

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal header")
	}

	// Header size (8 bytes, little-endian uint64)
	if err := binary.Write(out, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return "", errors.Wrap(err, "failed to write header size")
	}
	if _, err := out.Write(headerJSON); err != nil {
		return "", errors.Wrap(err, "failed to write header")
	}
	if _, err := payload.WriteTo(out); err != nil {
		return "", errors.Wrap(err, "failed to write tensor data")
	}
	return checksum, nil
}
