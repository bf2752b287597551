// Package config holds the declarative layer configuration and its validation.
//
// Configuration is read from YAML or JSON using the same struct tags. Lists of
// spatial values follow the "one value for both axes, or (h, w)" convention.
//
// Example:
//
//	name: dw1
//	type: DepthwiseConvolution
//	convolution_param:
//	  kernel_size: [3]
//	  stride: [1]
//	  pad: [1]
//	  weight_filler: {type: xavier}
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned (wrapped) for every configuration rejected by validation.
var ErrInvalidConfig = errors.New("invalid layer config")

// Format selects the configuration encoding.
type Format int

// Supported formats.
const (
	YAML Format = iota
	JSON
)

// LayerParam is the configuration of one layer instance.
type LayerParam struct {
	Name        string           `yaml:"name" json:"name"`
	Type        string           `yaml:"type" json:"type"`
	Convolution ConvolutionParam `yaml:"convolution_param" json:"convolution_param"`
	// Params holds per-parameter settings, in blob order (weight, bias).
	Params []ParamSpec `yaml:"param,omitempty" json:"param,omitempty"`
}

// ParamSpec configures one learnable parameter.
type ParamSpec struct {
	Name   string   `yaml:"name,omitempty" json:"name,omitempty"`
	LrMult *float64 `yaml:"lr_mult,omitempty" json:"lr_mult,omitempty"`
}

// PropagateDown reports whether gradients are computed for parameter i.
// A parameter configured with lr_mult 0 is frozen.
func (l *LayerParam) PropagateDown(i int) bool {
	if i >= len(l.Params) || l.Params[i].LrMult == nil {
		return true
	}
	return *l.Params[i].LrMult != 0
}

// LrMult returns the learning-rate multiplier of parameter i (default 1).
func (l *LayerParam) LrMult(i int) float64 {
	if i >= len(l.Params) || l.Params[i].LrMult == nil {
		return 1
	}
	return *l.Params[i].LrMult
}

// Validate checks the layer configuration.
func (l *LayerParam) Validate() error {
	if l.Type == "" {
		return errors.Wrap(ErrInvalidConfig, "type is required")
	}
	if len(l.Params) > 2 {
		return errors.Wrapf(ErrInvalidConfig, "%d param entries, layer has at most 2 parameters", len(l.Params))
	}
	for i, ps := range l.Params {
		if ps.LrMult != nil && *ps.LrMult < 0 {
			return errors.Wrapf(ErrInvalidConfig, "param[%d]: lr_mult %g is negative", i, *ps.LrMult)
		}
	}
	if err := l.Convolution.Validate(); err != nil {
		return errors.WithMessagef(err, "layer %q", l.Name)
	}
	return nil
}

// Parse decodes and validates a layer configuration.
// Unknown fields are rejected.
func Parse(data []byte, format Format) (*LayerParam, error) {
	var param LayerParam
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&param); err != nil {
			return nil, errors.Wrap(err, "failed to decode YAML config")
		}
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&param); err != nil {
			return nil, errors.Wrap(err, "failed to decode JSON config")
		}
	default:
		return nil, errors.Errorf("unknown config format %d", format)
	}

	if err := param.Validate(); err != nil {
		return nil, err
	}
	return &param, nil
}

// Load reads a layer configuration file; the format follows the extension
// (.yaml, .yml or .json).
func Load(path string) (*LayerParam, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = YAML
	case ".json":
		format = JSON
	default:
		return nil, errors.Errorf("unsupported config extension %q", filepath.Ext(path))
	}

	//nolint:gosec // G304: config path comes from the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	return Parse(data, format)
}
