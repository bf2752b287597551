package config

import (
	"github.com/pkg/errors"
)

// Filler types.
const (
	FillerConstant = "constant"
	FillerUniform  = "uniform"
	FillerGaussian = "gaussian"
	FillerXavier   = "xavier"
	FillerMSRA     = "msra"
)

// Variance normalization modes for xavier and msra fillers.
const (
	VarianceFanIn   = "fan_in"
	VarianceFanOut  = "fan_out"
	VarianceAverage = "average"
)

// FillerParam configures how a parameter blob is initialized.
//
// An empty Type means "use the layer default".
type FillerParam struct {
	Type         string  `yaml:"type,omitempty" json:"type,omitempty"`
	Value        float64 `yaml:"value,omitempty" json:"value,omitempty"`
	Min          float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max          float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Mean         float64 `yaml:"mean,omitempty" json:"mean,omitempty"`
	Std          float64 `yaml:"std,omitempty" json:"std,omitempty"`
	VarianceNorm string  `yaml:"variance_norm,omitempty" json:"variance_norm,omitempty"`
}

// IsZero reports whether no filler was configured.
func (f FillerParam) IsZero() bool {
	return f == FillerParam{}
}

// OrDefault returns f, or def when f is unset.
func (f FillerParam) OrDefault(def FillerParam) FillerParam {
	if f.IsZero() {
		return def
	}
	return f
}

// Validate checks the filler type and its numeric arguments.
func (f FillerParam) Validate() error {
	switch f.Type {
	case "", FillerConstant:
	case FillerUniform:
		if f.Max < f.Min {
			return errors.Wrapf(ErrInvalidConfig, "uniform filler: max %g < min %g", f.Max, f.Min)
		}
	case FillerGaussian:
		if f.Std < 0 {
			return errors.Wrapf(ErrInvalidConfig, "gaussian filler: negative std %g", f.Std)
		}
	case FillerXavier, FillerMSRA:
		switch f.VarianceNorm {
		case "", VarianceFanIn, VarianceFanOut, VarianceAverage:
		default:
			return errors.Wrapf(ErrInvalidConfig, "%s filler: unknown variance_norm %q", f.Type, f.VarianceNorm)
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown filler type %q", f.Type)
	}
	return nil
}
