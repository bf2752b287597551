// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"log/slog"
	"math/rand/v2"

	"github.com/born-ml/dwconv/internal/config"
	"github.com/born-ml/dwconv/internal/nn"
	"github.com/born-ml/dwconv/internal/parallel"
	"github.com/born-ml/dwconv/internal/tensor"
)

// Layer is the lifecycle contract every layer implements.
type Layer[T tensor.Float] = nn.Layer[T]

// ParameterRestorer is implemented by layers that accept loaded parameters.
type ParameterRestorer[T tensor.Float] = nn.ParameterRestorer[T]

// Parameter represents a learnable parameter of a layer.
type Parameter[T tensor.Float] = nn.Parameter[T]

// NewParameter creates a learnable parameter backed by blob.
func NewParameter[T tensor.Float](name string, blob *tensor.Blob[T]) *Parameter[T] {
	return nn.NewParameter(name, blob)
}

// Layers

// DepthwiseConv is a depthwise 2D convolution (channel multiplier 1).
type DepthwiseConv[T tensor.Float] = nn.DepthwiseConv[T]

// NewDepthwiseConv creates a depthwise convolution from its configuration.
//
// Example:
//
//	layer, err := nn.NewDepthwiseConv[float32](config.LayerParam{
//	    Name: "dw1",
//	    Type: "DepthwiseConvolution",
//	    Convolution: config.ConvolutionParam{KernelSize: []int{3}, Pad: []int{1}},
//	})
func NewDepthwiseConv[T tensor.Float](param config.LayerParam, opts ...Option) (*DepthwiseConv[T], error) {
	return nn.NewDepthwiseConv[T](param, opts...)
}

// ConvOutputSize returns the output extent of one spatial axis.
func ConvOutputSize(in, kernel, stride, pad, dilation int) int {
	return nn.ConvOutputSize(in, kernel, stride, pad, dilation)
}

// Options

// Option configures layer construction.
type Option = nn.Option

// WithLogger sets the layer's structured logger.
func WithLogger(l *slog.Logger) Option {
	return nn.WithLogger(l)
}

// ParallelConfig controls how layers fan out work over (sample, channel) planes.
type ParallelConfig = parallel.Config

// DefaultParallelConfig returns defaults based on CPU count.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}

// SequentialConfig returns a config that never spawns goroutines.
func SequentialConfig() ParallelConfig {
	return parallel.Sequential()
}

// WithParallel sets how Forward and Backward fan out work.
func WithParallel(cfg ParallelConfig) Option {
	return nn.WithParallel(cfg)
}

// WithRandSource makes parameter initialization reproducible.
func WithRandSource(src rand.Source) Option {
	return nn.WithRandSource(src)
}

// Registry

// Kind identifies a registered layer implementation.
type Kind = nn.Kind

// Registered kinds.
const (
	KindUnknown              = nn.KindUnknown
	KindDepthwiseConvolution = nn.KindDepthwiseConvolution
)

// ParseKind maps a config type string to its Kind.
func ParseKind(s string) (Kind, error) {
	return nn.ParseKind(s)
}

// Registry maps layer kinds to constructors.
type Registry[T tensor.Float] = nn.Registry[T]

// NewRegistry creates a registry with all built-in layers.
func NewRegistry[T tensor.Float]() *Registry[T] {
	return nn.NewRegistry[T]()
}

// Persistence

// Checkpoint describes one saved parameter file.
type Checkpoint = nn.Checkpoint

// SaveParameters writes a layer's parameters to a SafeTensors file.
func SaveParameters[T tensor.Float](path string, layer Layer[T]) (*Checkpoint, error) {
	return nn.SaveParameters(path, layer)
}

// LoadParameters restores a layer's parameters from a SafeTensors file.
func LoadParameters[T tensor.Float](path string, layer Layer[T]) (*Checkpoint, error) {
	return nn.LoadParameters(path, layer)
}

// Gradient checking

// GradCheckConfig controls CheckGradients.
type GradCheckConfig = nn.GradCheckConfig

// GradCheckResult summarizes one checked blob.
type GradCheckResult = nn.GradCheckResult

// CheckGradients compares analytic gradients against central differences.
func CheckGradients[T tensor.Float](layer Layer[T], bottom, top []*tensor.Blob[T], cfg GradCheckConfig) ([]GradCheckResult, error) {
	return nn.CheckGradients(layer, bottom, top, cfg)
}

// Errors

// Sentinel errors.
var (
	ErrShapeMismatch = nn.ErrShapeMismatch
	ErrUnknownKind   = nn.ErrUnknownKind
	ErrBadBlobs      = nn.ErrBadBlobs
)
