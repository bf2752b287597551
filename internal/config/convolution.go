package config

import (
	"github.com/pkg/errors"
)

// ConvolutionParam is the declarative configuration of a depthwise convolution.
//
// Each spatial group (kernel, stride, pad, dilation) is given either as an
// explicit *_h/*_w pair or as a list of one or two values.
type ConvolutionParam struct {
	// NumOutput is optional; when set it must equal the input channel count.
	NumOutput int   `yaml:"num_output,omitempty" json:"num_output,omitempty"`
	BiasTerm  *bool `yaml:"bias_term,omitempty" json:"bias_term,omitempty"`

	KernelSize []int `yaml:"kernel_size,omitempty" json:"kernel_size,omitempty"`
	KernelH    *int  `yaml:"kernel_h,omitempty" json:"kernel_h,omitempty"`
	KernelW    *int  `yaml:"kernel_w,omitempty" json:"kernel_w,omitempty"`

	Stride  []int `yaml:"stride,omitempty" json:"stride,omitempty"`
	StrideH *int  `yaml:"stride_h,omitempty" json:"stride_h,omitempty"`
	StrideW *int  `yaml:"stride_w,omitempty" json:"stride_w,omitempty"`

	Pad  []int `yaml:"pad,omitempty" json:"pad,omitempty"`
	PadH *int  `yaml:"pad_h,omitempty" json:"pad_h,omitempty"`
	PadW *int  `yaml:"pad_w,omitempty" json:"pad_w,omitempty"`

	Dilation []int `yaml:"dilation,omitempty" json:"dilation,omitempty"`

	WeightFiller FillerParam `yaml:"weight_filler,omitempty" json:"weight_filler,omitempty"`
	BiasFiller   FillerParam `yaml:"bias_filler,omitempty" json:"bias_filler,omitempty"`
}

// Geometry is the resolved, canonical form of a ConvolutionParam.
type Geometry struct {
	Kernel   HW
	Stride   HW
	Pad      HW
	Dilation HW
}

// KernelExtent returns the dilated kernel footprint dilation*(kernel-1)+1 per axis.
func (g Geometry) KernelExtent() HW {
	return HW{
		H: g.Dilation.H*(g.Kernel.H-1) + 1,
		W: g.Dilation.W*(g.Kernel.W-1) + 1,
	}
}

// HasBias reports whether the layer carries a bias term (default true).
func (p *ConvolutionParam) HasBias() bool {
	return p.BiasTerm == nil || *p.BiasTerm
}

// Specs returns the tagged axis specs for kernel, stride, pad and dilation.
func (p *ConvolutionParam) Specs() (kernel, stride, pad, dilation AxisSpec, err error) {
	if kernel, err = axisSpec("kernel", p.KernelH, p.KernelW, p.KernelSize, nil); err != nil {
		return nil, nil, nil, nil, err
	}
	if stride, err = axisSpec("stride", p.StrideH, p.StrideW, p.Stride, Uniform{V: 1}); err != nil {
		return nil, nil, nil, nil, err
	}
	if pad, err = axisSpec("pad", p.PadH, p.PadW, p.Pad, Uniform{V: 0}); err != nil {
		return nil, nil, nil, nil, err
	}
	if dilation, err = axisSpec("dilation", nil, nil, p.Dilation, Uniform{V: 1}); err != nil {
		return nil, nil, nil, nil, err
	}
	return kernel, stride, pad, dilation, nil
}

// Resolve turns the configuration into a Geometry and checks value ranges.
func (p *ConvolutionParam) Resolve() (Geometry, error) {
	kernel, stride, pad, dilation, err := p.Specs()
	if err != nil {
		return Geometry{}, err
	}
	g := Geometry{
		Kernel:   kernel.Resolve(),
		Stride:   stride.Resolve(),
		Pad:      pad.Resolve(),
		Dilation: dilation.Resolve(),
	}

	if g.Kernel.H <= 0 || g.Kernel.W <= 0 {
		return Geometry{}, errors.Wrapf(ErrInvalidConfig, "kernel must be positive, got %s", g.Kernel)
	}
	if g.Stride.H <= 0 || g.Stride.W <= 0 {
		return Geometry{}, errors.Wrapf(ErrInvalidConfig, "stride must be positive, got %s", g.Stride)
	}
	if g.Pad.H < 0 || g.Pad.W < 0 {
		return Geometry{}, errors.Wrapf(ErrInvalidConfig, "pad must be non-negative, got %s", g.Pad)
	}
	if g.Dilation.H <= 0 || g.Dilation.W <= 0 {
		return Geometry{}, errors.Wrapf(ErrInvalidConfig, "dilation must be positive, got %s", g.Dilation)
	}
	return g, nil
}

// Validate checks the configuration without keeping the result.
func (p *ConvolutionParam) Validate() error {
	if p.NumOutput < 0 {
		return errors.Wrapf(ErrInvalidConfig, "num_output must be non-negative, got %d", p.NumOutput)
	}
	if _, err := p.Resolve(); err != nil {
		return err
	}
	if err := p.WeightFiller.Validate(); err != nil {
		return errors.WithMessage(err, "weight_filler")
	}
	if err := p.BiasFiller.Validate(); err != nil {
		return errors.WithMessage(err, "bias_filler")
	}
	return nil
}
