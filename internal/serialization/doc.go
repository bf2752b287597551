// Package serialization reads and writes layer parameters in SafeTensors format.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON object, tensor name -> {dtype, shape, data_offsets}]
//	  [Tensor data: raw little-endian bytes, tensors in name order]
//
// The optional "__metadata__" header entry is a string map. Files written by
// this package always carry a "checksum" entry (hex SHA-256 of the data
// section), which Read verifies.
//
// Supported data types are F32 and F64.
//
// Example usage:
//
//	w := serialization.Encode("weight", blob.Shape(), blob.Data())
//	if _, err := serialization.WriteFile("dw1.safetensors", []serialization.Tensor{w}, nil); err != nil {
//	    return err
//	}
//
//	f, err := serialization.ReadFile("dw1.safetensors")
//	if err != nil {
//	    return err
//	}
//	values, err := serialization.Decode[float32](f.Tensors["weight"])
package serialization
