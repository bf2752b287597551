package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ReaderOptions configures Read.
type ReaderOptions struct {
	SkipChecksumValidation bool // Skip checksum validation (faster but less safe)
}

// File is a fully decoded SafeTensors file.
type File struct {
	Metadata map[string]string
	Tensors  map[string]Tensor
	Order    []string // Tensor names in data-section order
}

// ReadFile reads a SafeTensors file with checksum validation.
func ReadFile(path string) (*File, error) {
	return ReadFileWithOptions(path, ReaderOptions{})
}

// ReadFileWithOptions reads a SafeTensors file with custom options.
func ReadFileWithOptions(path string, opts ReaderOptions) (*File, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for parameter loading
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer func() {
		_ = file.Close() // read-only, nothing to flush
	}()

	f, err := ReadFrom(file, opts)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return f, nil
}

// ReadFrom decodes a SafeTensors stream.
//
// The header is validated (names, offsets within the data section, no
// overlap). When the metadata carries a checksum it is verified unless
// opts.SkipChecksumValidation is set.
func ReadFrom(r io.Reader, opts ReaderOptions) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, errors.Wrap(err, "failed to read header size")
	}
	if headerSize > MaxHeaderSize {
		return nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	var header Header
	dec := json.NewDecoder(bytes.NewReader(headerBytes))
	if err := dec.Decode(&header); err != nil {
		return nil, errors.Wrap(err, "failed to parse header JSON")
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tensor data")
	}

	if err := validateHeader(&header, int64(len(payload))); err != nil {
		return nil, err
	}

	if stored, ok := header.Metadata[MetaChecksum]; ok && !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(payload), stored); err != nil {
			return nil, err
		}
	}

	f := &File{
		Metadata: header.Metadata,
		Tensors:  make(map[string]Tensor, len(header.Tensors)),
		Order:    header.Names(),
	}
	if f.Metadata == nil {
		f.Metadata = map[string]string{}
	}
	for name, info := range header.Tensors {
		start, end := info.DataOffsets[0], info.DataOffsets[1]
		f.Tensors[name] = Tensor{
			Name:  name,
			DType: info.DType,
			Shape: info.Shape,
			Data:  payload[start:end:end],
		}
	}
	return f, nil
}

func validateHeader(h *Header, dataSize int64) error {
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Kind:    ErrTooManyTensors,
			Details: "header lists too many tensors",
		}
	}

	metas := make([]TensorMeta, 0, len(h.Tensors))
	for name, info := range h.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		dt, err := info.DType.DataType()
		if err != nil {
			return errors.WithMessagef(err, "tensor %s", name)
		}

		start, end := info.DataOffsets[0], info.DataOffsets[1]
		meta := TensorMeta{Name: name, Offset: start, Size: end - start}
		count := 1
		for _, d := range info.Shape {
			if d < 0 {
				return &ValidationError{Kind: ErrNegativeOffset, Tensor: name, Details: "negative dimension"}
			}
			count *= d
		}
		if meta.Size >= 0 && int64(count*dt.Size()) != meta.Size {
			return &ValidationError{
				Kind:    ErrOutOfBounds,
				Tensor:  name,
				Details: "byte range does not match shape and dtype",
			}
		}
		metas = append(metas, meta)
	}
	return ValidateTensorOffsets(metas, dataSize)
}
