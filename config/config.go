// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config provides the declarative layer configuration.
//
// Configurations are read from YAML or JSON:
//
//	name: dw1
//	type: DepthwiseConvolution
//	convolution_param:
//	  kernel_size: [3]
//	  pad: [1]
//	  weight_filler: {type: msra}
//	param:
//	  - lr_mult: 1
//	  - lr_mult: 0   # frozen bias
package config

import (
	"github.com/born-ml/dwconv/internal/config"
)

// LayerParam is the configuration of one layer instance.
type LayerParam = config.LayerParam

// ParamSpec configures one learnable parameter.
type ParamSpec = config.ParamSpec

// ConvolutionParam configures a depthwise convolution.
type ConvolutionParam = config.ConvolutionParam

// FillerParam configures parameter initialization.
type FillerParam = config.FillerParam

// Geometry is the resolved kernel, stride, pad and dilation.
type Geometry = config.Geometry

// HW is a canonical (height, width) pair.
type HW = config.HW

// Format selects the configuration encoding.
type Format = config.Format

// Supported formats.
const (
	YAML = config.YAML
	JSON = config.JSON
)

// Filler types.
const (
	FillerConstant = config.FillerConstant
	FillerUniform  = config.FillerUniform
	FillerGaussian = config.FillerGaussian
	FillerXavier   = config.FillerXavier
	FillerMSRA     = config.FillerMSRA
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = config.ErrInvalidConfig

// Parse decodes and validates a layer configuration.
func Parse(data []byte, format Format) (*LayerParam, error) {
	return config.Parse(data, format)
}

// Load reads a layer configuration file (.yaml, .yml or .json).
func Load(path string) (*LayerParam, error) {
	return config.Load(path)
}
