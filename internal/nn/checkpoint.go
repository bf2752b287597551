package nn

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/born-ml/dwconv/internal/serialization"
	"github.com/born-ml/dwconv/internal/tensor"
)

const metaCreatedAt = "created_at"

// Checkpoint describes one saved parameter file.
type Checkpoint struct {
	ID        string    // Unique id assigned at save time
	Layer     string    // Layer instance name
	Type      string    // Layer type string
	CreatedAt time.Time // When the file was written (UTC)
	Checksum  string    // Hex SHA-256 of the tensor data
}

// SaveParameters writes a layer's parameters to a SafeTensors file.
//
// Tensors are named by parameter ("weight", "bias"). Metadata records the
// layer name and type, a fresh checkpoint id and the save time.
//
// Example:
//
//	ckpt, err := nn.SaveParameters("dw1.safetensors", layer)
//	if err != nil {
//	    return err
//	}
//	log.Printf("saved %s", ckpt.ID)
func SaveParameters[T tensor.Float](path string, layer Layer[T]) (*Checkpoint, error) {
	params := layer.Parameters()
	if len(params) == 0 {
		return nil, errors.Errorf("layer %q has no parameters (call Setup first)", layer.Name())
	}

	tensors := make([]serialization.Tensor, 0, len(params))
	for _, p := range params {
		tensors = append(tensors, serialization.Encode(p.Name(), p.Blob().Shape(), p.Data()))
	}

	ckpt := &Checkpoint{
		ID:        uuid.NewString(),
		Layer:     layer.Name(),
		Type:      layer.Type(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	meta := map[string]string{
		serialization.MetaCheckpointID: ckpt.ID,
		serialization.MetaLayer:        ckpt.Layer,
		serialization.MetaType:         ckpt.Type,
		metaCreatedAt:                  ckpt.CreatedAt.Format(time.RFC3339),
	}

	checksum, err := serialization.WriteFile(path, tensors, meta)
	if err != nil {
		return nil, errors.WithMessagef(err, "save parameters of %q", layer.Name())
	}
	ckpt.Checksum = checksum
	return ckpt, nil
}

// LoadParameters reads a parameter file and restores it into layer.
//
// The file's type metadata, when present, must match the layer type. After a
// successful load, Setup keeps the restored values instead of running the
// fillers.
func LoadParameters[T tensor.Float](path string, layer Layer[T]) (*Checkpoint, error) {
	restorer, ok := layer.(ParameterRestorer[T])
	if !ok {
		return nil, errors.Errorf("layer %q (%s) does not support parameter restore", layer.Name(), layer.Type())
	}

	f, err := serialization.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ckpt := &Checkpoint{
		ID:       f.Metadata[serialization.MetaCheckpointID],
		Layer:    f.Metadata[serialization.MetaLayer],
		Type:     f.Metadata[serialization.MetaType],
		Checksum: f.Metadata[serialization.MetaChecksum],
	}
	if s, ok := f.Metadata[metaCreatedAt]; ok {
		if ckpt.CreatedAt, err = time.Parse(time.RFC3339, s); err != nil {
			return nil, errors.Wrapf(err, "invalid %s metadata", metaCreatedAt)
		}
	}
	if ckpt.Type != "" && ckpt.Type != layer.Type() {
		return nil, errors.Errorf("%s holds %s parameters, layer %q is %s", path, ckpt.Type, layer.Name(), layer.Type())
	}

	blobs := make(map[string]*tensor.Blob[T], len(f.Tensors))
	for _, name := range f.Order {
		t := f.Tensors[name]
		values, err := serialization.Decode[T](t)
		if err != nil {
			return nil, err
		}
		blob, err := tensor.FromSlice(values, t.Shape)
		if err != nil {
			return nil, errors.Wrapf(err, "tensor %s", name)
		}
		blobs[name] = blob
	}

	if err := restorer.RestoreParameters(blobs); err != nil {
		return nil, err
	}
	return ckpt, nil
}
