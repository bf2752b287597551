// Package filler initializes parameter blobs from a FillerParam.
//
// Random fillers sample through gonum's distuv distributions. Passing a
// math/rand/v2 Source makes initialization reproducible; a nil source uses
// the global generator.
package filler

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/dwconv/internal/config"
	"github.com/born-ml/dwconv/internal/tensor"
)

// Filler writes initial values into a blob's data buffer.
type Filler[T tensor.Float] interface {
	Fill(b *tensor.Blob[T])
}

// New builds the filler described by p.
func New[T tensor.Float](p config.FillerParam, src rand.Source) (Filler[T], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch p.Type {
	case "", config.FillerConstant:
		return Constant[T]{Value: T(p.Value)}, nil
	case config.FillerUniform:
		return Uniform[T]{Min: p.Min, Max: p.Max, Src: src}, nil
	case config.FillerGaussian:
		return Gaussian[T]{Mean: p.Mean, Std: p.Std, Src: src}, nil
	case config.FillerXavier:
		return Xavier[T]{Norm: p.VarianceNorm, Src: src}, nil
	case config.FillerMSRA:
		return MSRA[T]{Norm: p.VarianceNorm, Src: src}, nil
	}
	return nil, errors.Wrapf(config.ErrInvalidConfig, "unknown filler type %q", p.Type)
}

// Constant sets every element to Value.
type Constant[T tensor.Float] struct {
	Value T
}

// Fill implements Filler.
func (f Constant[T]) Fill(b *tensor.Blob[T]) {
	b.Fill(f.Value)
}

// Uniform samples from U(Min, Max).
type Uniform[T tensor.Float] struct {
	Min, Max float64
	Src      rand.Source
}

// Fill implements Filler.
func (f Uniform[T]) Fill(b *tensor.Blob[T]) {
	sample(b, distuv.Uniform{Min: f.Min, Max: f.Max, Src: f.Src})
}

// Gaussian samples from N(Mean, Std²).
type Gaussian[T tensor.Float] struct {
	Mean, Std float64
	Src       rand.Source
}

// Fill implements Filler.
func (f Gaussian[T]) Fill(b *tensor.Blob[T]) {
	sample(b, distuv.Normal{Mu: f.Mean, Sigma: f.Std, Src: f.Src})
}

// Xavier samples from U(-sqrt(3/n), sqrt(3/n)) where n follows Norm.
type Xavier[T tensor.Float] struct {
	Norm string
	Src  rand.Source
}

// Fill implements Filler.
func (f Xavier[T]) Fill(b *tensor.Blob[T]) {
	scale := math.Sqrt(3 / fan(b.Shape(), f.Norm))
	sample(b, distuv.Uniform{Min: -scale, Max: scale, Src: f.Src})
}

// MSRA samples from N(0, 2/n) where n follows Norm.
type MSRA[T tensor.Float] struct {
	Norm string
	Src  rand.Source
}

// Fill implements Filler.
func (f MSRA[T]) Fill(b *tensor.Blob[T]) {
	std := math.Sqrt(2 / fan(b.Shape(), f.Norm))
	sample(b, distuv.Normal{Mu: 0, Sigma: std, Src: f.Src})
}

type sampler interface {
	Rand() float64
}

func sample[T tensor.Float](b *tensor.Blob[T], d sampler) {
	data := b.Data()
	for i := range data {
		data[i] = T(d.Rand())
	}
}

// fan returns the normalizer n for xavier/msra.
// fan_in = count/shape[0], fan_out = count/shape[1].
func fan(shape tensor.Shape, norm string) float64 {
	count := shape.NumElements()
	fanIn := count
	if len(shape) > 0 && shape[0] > 0 {
		fanIn = count / shape[0]
	}
	fanOut := count
	if len(shape) > 1 && shape[1] > 0 {
		fanOut = count / shape[1]
	}

	switch norm {
	case config.VarianceFanOut:
		return float64(fanOut)
	case config.VarianceAverage:
		return float64(fanIn+fanOut) / 2
	default:
		return float64(fanIn)
	}
}
