package nn

import (
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/dwconv/internal/config"
	"github.com/born-ml/dwconv/internal/parallel"
	"github.com/born-ml/dwconv/internal/tensor"
)

func ints(v ...int) []int { return v }

func boolp(v bool) *bool { return &v }

func floatp(v float64) *float64 { return &v }

// testParallel forces the parallel paths even for tiny inputs.
var testParallel = parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}

func layerParam(conv config.ConvolutionParam) config.LayerParam {
	return config.LayerParam{Name: "dw", Type: "DepthwiseConvolution", Convolution: conv}
}

// newSetUp builds a layer, runs Setup and Reshape for one input of the given shape.
func newSetUp[T tensor.Float](t *testing.T, param config.LayerParam, in tensor.Shape, opts ...Option) (*DepthwiseConv[T], []*tensor.Blob[T], []*tensor.Blob[T]) {
	t.Helper()
	opts = append([]Option{WithParallel(testParallel), WithRandSource(rand.NewPCG(1, 2))}, opts...)
	layer, err := NewDepthwiseConv[T](param, opts...)
	require.NoError(t, err)

	bottom := []*tensor.Blob[T]{tensor.RandUniform[T](in, -1, 1, rand.New(rand.NewPCG(3, 4)))}
	top := []*tensor.Blob[T]{{}}
	require.NoError(t, layer.Setup(bottom, top))
	require.NoError(t, layer.Reshape(bottom, top))
	return layer, bottom, top
}

// naiveForward is a direct reference implementation using blob indexing.
func naiveForward(l *DepthwiseConv[float64], in *tensor.Blob[float64]) *tensor.Blob[float64] {
	g := l.Geometry()
	outShape, err := l.ComputeOutputShape(in.Shape())
	if err != nil {
		panic(err)
	}
	out := tensor.Zeros[float64](outShape)
	w := l.Weight().Blob()
	for n := 0; n < outShape[0]; n++ {
		for c := 0; c < outShape[1]; c++ {
			for oh := 0; oh < outShape[2]; oh++ {
				for ow := 0; ow < outShape[3]; ow++ {
					sum := 0.0
					for i := 0; i < g.Kernel.H; i++ {
						for j := 0; j < g.Kernel.W; j++ {
							ih := oh*g.Stride.H - g.Pad.H + i*g.Dilation.H
							iw := ow*g.Stride.W - g.Pad.W + j*g.Dilation.W
							if ih >= 0 && ih < in.Height() && iw >= 0 && iw < in.Width() {
								sum += w.At(c, 0, i, j) * in.At(n, c, ih, iw)
							}
						}
					}
					if b := l.Bias(); b != nil {
						sum += b.Data()[c]
					}
					out.Set(sum, n, c, oh, ow)
				}
			}
		}
	}
	return out
}

func TestDepthwiseConv_Setup(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3, 5)})
	layer, _, _ := newSetUp[float32](t, param, tensor.Shape{2, 6, 8, 8})

	assert.Equal(t, "DepthwiseConvolution", layer.Type())
	assert.Equal(t, "dw", layer.Name())
	assert.Equal(t, config.HW{H: 3, W: 5}, layer.Geometry().Kernel)
	assert.Equal(t, config.HW{H: 1, W: 1}, layer.Geometry().Stride)

	params := layer.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, WeightName, params[0].Name())
	assert.Equal(t, tensor.Shape{6, 1, 3, 5}, params[0].Blob().Shape())
	assert.Equal(t, BiasName, params[1].Name())
	assert.Equal(t, tensor.Shape{6}, params[1].Blob().Shape())
	assert.True(t, params[0].RequiresGrad())
	assert.True(t, params[1].RequiresGrad())

	// Default fillers: xavier weight (non-zero), constant-zero bias.
	assert.NotZero(t, params[0].Data()[0])
	assert.Equal(t, make([]float32, 6), params[1].Data())
}

func TestDepthwiseConv_NoBias(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3), BiasTerm: boolp(false)})
	layer, _, _ := newSetUp[float32](t, param, tensor.Shape{1, 2, 5, 5})

	assert.Nil(t, layer.Bias())
	assert.Len(t, layer.Parameters(), 1)
}

func TestDepthwiseConv_OutputShape(t *testing.T) {
	tests := []struct {
		name string
		conv config.ConvolutionParam
		in   tensor.Shape
		want tensor.Shape
	}{
		{"valid 3x3", config.ConvolutionParam{KernelSize: ints(3)}, tensor.Shape{1, 2, 5, 5}, tensor.Shape{1, 2, 3, 3}},
		{"same 3x3", config.ConvolutionParam{KernelSize: ints(3), Pad: ints(1)}, tensor.Shape{2, 3, 7, 9}, tensor.Shape{2, 3, 7, 9}},
		{"stride 2", config.ConvolutionParam{KernelSize: ints(3), Stride: ints(2), Pad: ints(1)}, tensor.Shape{1, 1, 8, 7}, tensor.Shape{1, 1, 4, 4}},
		{"dilation 2", config.ConvolutionParam{KernelSize: ints(3), Dilation: ints(2)}, tensor.Shape{1, 1, 7, 7}, tensor.Shape{1, 1, 3, 3}},
		{
			"asymmetric",
			config.ConvolutionParam{KernelSize: ints(1, 3), Stride: ints(1, 2), Pad: ints(0, 1), Dilation: ints(1, 2)},
			tensor.Shape{1, 4, 6, 10},
			tensor.Shape{1, 4, 6, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, top := newSetUp[float32](t, layerParam(tt.conv), tt.in)
			assert.Equal(t, tt.want, top[0].Shape())
		})
	}
}

func TestConvOutputSize(t *testing.T) {
	assert.Equal(t, 4, ConvOutputSize(4, 3, 1, 1, 1))
	assert.Equal(t, 1, ConvOutputSize(3, 3, 1, 0, 1))
	assert.Equal(t, 0, ConvOutputSize(2, 3, 1, 0, 1))
	// Floor, not truncation: (2 - 3)/2 rounds down to -1.
	assert.Equal(t, 0, ConvOutputSize(2, 3, 2, 0, 1))
}

func TestDepthwiseConv_ReshapeErrors(t *testing.T) {
	t.Run("input smaller than kernel", func(t *testing.T) {
		layer, err := NewDepthwiseConv[float32](layerParam(config.ConvolutionParam{KernelSize: ints(5)}))
		require.NoError(t, err)
		bottom := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{1, 1, 3, 3})}
		top := []*tensor.Blob[float32]{{}}
		require.NoError(t, layer.Setup(bottom, top))

		err = layer.Reshape(bottom, top)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrShapeMismatch))
	})

	t.Run("bottoms disagree", func(t *testing.T) {
		layer, err := NewDepthwiseConv[float32](layerParam(config.ConvolutionParam{KernelSize: ints(3)}))
		require.NoError(t, err)
		bottom := []*tensor.Blob[float32]{
			tensor.Zeros[float32](tensor.Shape{1, 2, 5, 5}),
			tensor.Zeros[float32](tensor.Shape{1, 2, 6, 5}),
		}
		top := []*tensor.Blob[float32]{{}, {}}
		require.NoError(t, layer.Setup(bottom, top))
		assert.True(t, errors.Is(layer.Reshape(bottom, top), ErrShapeMismatch))
	})

	t.Run("channel count changed", func(t *testing.T) {
		layer, _, top := newSetUp[float32](t, layerParam(config.ConvolutionParam{KernelSize: ints(3)}), tensor.Shape{1, 2, 5, 5})
		bottom := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{1, 3, 5, 5})}
		assert.True(t, errors.Is(layer.Reshape(bottom, top), ErrShapeMismatch))
	})

	t.Run("before setup", func(t *testing.T) {
		layer, err := NewDepthwiseConv[float32](layerParam(config.ConvolutionParam{KernelSize: ints(3)}))
		require.NoError(t, err)
		bottom := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{1, 2, 5, 5})}
		assert.Error(t, layer.Reshape(bottom, []*tensor.Blob[float32]{{}}))
	})

	t.Run("not 4-D", func(t *testing.T) {
		layer, err := NewDepthwiseConv[float32](layerParam(config.ConvolutionParam{KernelSize: ints(3)}))
		require.NoError(t, err)
		bottom := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{2, 5, 5})}
		assert.True(t, errors.Is(layer.Setup(bottom, []*tensor.Blob[float32]{{}}), ErrShapeMismatch))
	})
}

func TestDepthwiseConv_SetupErrors(t *testing.T) {
	_, err := NewDepthwiseConv[float32](layerParam(config.ConvolutionParam{KernelSize: ints(3, 3, 3)}))
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))

	layer, err := NewDepthwiseConv[float32](layerParam(config.ConvolutionParam{KernelSize: ints(3), NumOutput: 4}))
	require.NoError(t, err)
	bottom := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{1, 3, 5, 5})}
	err = layer.Setup(bottom, []*tensor.Blob[float32]{{}})
	assert.True(t, errors.Is(err, config.ErrInvalidConfig), "num_output must equal channels")

	err = layer.Setup(bottom, nil)
	assert.True(t, errors.Is(err, ErrBadBlobs))
}

func TestDepthwiseConv_AllOnes4x4(t *testing.T) {
	param := layerParam(config.ConvolutionParam{
		KernelSize:   ints(3),
		Pad:          ints(1),
		WeightFiller: config.FillerParam{Type: config.FillerConstant, Value: 1},
	})
	layer, bottom, top := newSetUp[float32](t, param, tensor.Shape{1, 1, 4, 4})
	bottom[0].Fill(1)

	layer.Forward(bottom, top)

	want := []float32{
		4, 6, 6, 4,
		6, 9, 9, 6,
		6, 9, 9, 6,
		4, 6, 6, 4,
	}
	assert.Equal(t, tensor.Shape{1, 1, 4, 4}, top[0].Shape())
	assert.Equal(t, want, top[0].Data())
}

func TestDepthwiseConv_ZeroInput(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3), Pad: ints(1), Stride: ints(2)})
	layer, bottom, top := newSetUp[float64](t, param, tensor.Shape{2, 3, 6, 6})
	bottom[0].ZeroData()
	top[0].Fill(42)

	layer.Forward(bottom, top)

	for _, v := range top[0].Data() {
		assert.Zero(t, v)
	}
}

func TestDepthwiseConv_Pointwise(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(1)})
	layer, bottom, top := newSetUp[float64](t, param, tensor.Shape{2, 2, 3, 3})
	copy(layer.Weight().Data(), []float64{2, -3})
	copy(layer.Bias().Data(), []float64{0.5, 1})

	layer.Forward(bottom, top)

	w := []float64{2, -3}
	b := []float64{0.5, 1}
	for n := 0; n < 2; n++ {
		for c := 0; c < 2; c++ {
			for h := 0; h < 3; h++ {
				for x := 0; x < 3; x++ {
					want := bottom[0].At(n, c, h, x)*w[c] + b[c]
					assert.InDelta(t, want, top[0].At(n, c, h, x), 1e-12)
				}
			}
		}
	}
}

func TestDepthwiseConv_MatchesNaive(t *testing.T) {
	convs := []config.ConvolutionParam{
		{KernelSize: ints(3), Pad: ints(1)},
		{KernelSize: ints(3, 2), Stride: ints(2, 1), Pad: ints(1, 0), Dilation: ints(1, 2)},
		{KernelSize: ints(5), Stride: ints(3), Pad: ints(2), BiasFiller: config.FillerParam{Type: config.FillerGaussian, Std: 1}},
	}
	for _, conv := range convs {
		layer, bottom, top := newSetUp[float64](t, layerParam(conv), tensor.Shape{2, 3, 9, 8})
		layer.Forward(bottom, top)

		want := naiveForward(layer, bottom[0])
		require.Equal(t, want.Shape(), top[0].Shape())
		assert.InDeltaSlice(t, want.Data(), top[0].Data(), 1e-12)
	}
}

func TestDepthwiseConv_Float32MatchesFloat64(t *testing.T) {
	conv := config.ConvolutionParam{KernelSize: ints(3), Pad: ints(1), Dilation: ints(2)}
	l64, b64, t64 := newSetUp[float64](t, layerParam(conv), tensor.Shape{1, 2, 7, 7})
	l32, b32, t32 := newSetUp[float32](t, layerParam(conv), tensor.Shape{1, 2, 7, 7})

	for i, v := range b64[0].Data() {
		b32[0].Data()[i] = float32(v)
	}
	for i, v := range l64.Weight().Data() {
		l32.Weight().Data()[i] = float32(v)
	}

	l64.Forward(b64, t64)
	l32.Forward(b32, t32)
	for i, v := range t64[0].Data() {
		assert.InDelta(t, v, float64(t32[0].Data()[i]), 1e-5)
	}
}

func TestDepthwiseConv_GradientCheck(t *testing.T) {
	tests := []struct {
		name string
		conv config.ConvolutionParam
		in   tensor.Shape
	}{
		{"3x3 pad 1", config.ConvolutionParam{KernelSize: ints(3), Pad: ints(1)}, tensor.Shape{2, 3, 5, 5}},
		{"stride 2", config.ConvolutionParam{KernelSize: ints(3), Stride: ints(2), Pad: ints(1)}, tensor.Shape{1, 2, 6, 7}},
		{"dilation", config.ConvolutionParam{KernelSize: ints(2, 3), Dilation: ints(2), Pad: ints(1, 2)}, tensor.Shape{2, 2, 5, 6}},
		{"no bias", config.ConvolutionParam{KernelSize: ints(3), BiasTerm: boolp(false)}, tensor.Shape{1, 2, 4, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param := layerParam(tt.conv)
			param.Convolution.BiasFiller = config.FillerParam{Type: config.FillerUniform, Min: -1, Max: 1}
			layer, bottom, top := newSetUp[float64](t, param, tt.in)

			results, err := CheckGradients[float64](layer, bottom, top, GradCheckConfig{})
			require.NoError(t, err)

			wantChecked := len(layer.Parameters()) + 1
			require.Len(t, results, wantChecked)
			for _, r := range results {
				assert.Positive(t, r.Checked, r.Name)
				assert.Less(t, r.MaxScaled, 1e-4, r.Name)
			}
		})
	}
}

func TestDepthwiseConv_GradientCheckMultiplePairs(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3), Pad: ints(1)})
	layer, err := NewDepthwiseConv[float64](param, WithParallel(testParallel))
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(5, 6))
	bottom := []*tensor.Blob[float64]{
		tensor.RandUniform[float64](tensor.Shape{1, 2, 4, 4}, -1, 1, rng),
		tensor.RandUniform[float64](tensor.Shape{1, 2, 4, 4}, -1, 1, rng),
	}
	top := []*tensor.Blob[float64]{{}, {}}
	require.NoError(t, layer.Setup(bottom, top))
	require.NoError(t, layer.Reshape(bottom, top))

	results, err := CheckGradients[float64](layer, bottom, top, GradCheckConfig{})
	require.NoError(t, err)
	assert.Len(t, results, 4) // two bottoms, weight, bias
}

func TestDepthwiseConv_BiasGradientIsSum(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3), Stride: ints(2)})
	layer, bottom, top := newSetUp[float64](t, param, tensor.Shape{3, 4, 7, 7})
	layer.Forward(bottom, top)

	rng := rand.New(rand.NewPCG(7, 8))
	for i := range top[0].Diff() {
		top[0].Diff()[i] = rng.Float64()
	}
	layer.Backward(top, []bool{false}, bottom)

	shape := top[0].Shape()
	for c := 0; c < shape[1]; c++ {
		want := 0.0
		for n := 0; n < shape[0]; n++ {
			for h := 0; h < shape[2]; h++ {
				for w := 0; w < shape[3]; w++ {
					want += top[0].DiffAt(n, c, h, w)
				}
			}
		}
		assert.InDelta(t, want, layer.Bias().Grad()[c], 1e-10)
	}
}

func TestDepthwiseConv_GradientAccumulates(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3), Pad: ints(1)})
	layer, bottom, top := newSetUp[float32](t, param, tensor.Shape{2, 3, 5, 5})
	layer.Forward(bottom, top)
	for i := range top[0].Diff() {
		top[0].Diff()[i] = float32(i%7) - 3
	}

	layer.Backward(top, []bool{true}, bottom)
	weightOnce := append([]float32(nil), layer.Weight().Grad()...)
	biasOnce := append([]float32(nil), layer.Bias().Grad()...)
	inputOnce := append([]float32(nil), bottom[0].Diff()...)

	layer.Backward(top, []bool{true}, bottom)
	for i, v := range weightOnce {
		assert.Equal(t, 2*v, layer.Weight().Grad()[i])
	}
	for i, v := range biasOnce {
		assert.Equal(t, 2*v, layer.Bias().Grad()[i])
	}
	assert.Equal(t, inputOnce, bottom[0].Diff(), "input gradient is overwritten, not accumulated")

	layer.ZeroGrad()
	assert.Equal(t, make([]float32, len(weightOnce)), layer.Weight().Grad())
	assert.Equal(t, make([]float32, len(biasOnce)), layer.Bias().Grad())
}

func TestDepthwiseConv_PropagateDownFalse(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3)})
	layer, bottom, top := newSetUp[float32](t, param, tensor.Shape{1, 2, 5, 5})
	layer.Forward(bottom, top)
	top[0].Diff()[0] = 1
	for i := range bottom[0].Diff() {
		bottom[0].Diff()[i] = 7
	}

	layer.Backward(top, []bool{false}, bottom)

	for _, v := range bottom[0].Diff() {
		assert.Equal(t, float32(7), v)
	}
	assert.NotZero(t, layer.Bias().Grad()[0])
}

func TestDepthwiseConv_FrozenParameters(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3)})
	param.Params = []config.ParamSpec{{LrMult: floatp(0)}, {LrMult: floatp(1)}}
	layer, bottom, top := newSetUp[float64](t, param, tensor.Shape{1, 2, 5, 5})
	require.False(t, layer.Weight().RequiresGrad())
	require.True(t, layer.Bias().RequiresGrad())

	layer.Forward(bottom, top)
	for i := range top[0].Diff() {
		top[0].Diff()[i] = 1
	}
	layer.Backward(top, []bool{true}, bottom)

	assert.Equal(t, make([]float64, 18), layer.Weight().Grad())
	assert.InDeltaSlice(t, []float64{9, 9}, layer.Bias().Grad(), 1e-12)
}

func TestDepthwiseConv_SetupSkipsPopulatedStorage(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3)})
	layer, bottom, top := newSetUp[float32](t, param, tensor.Shape{1, 2, 5, 5})

	layer.Weight().Data()[0] = 123
	layer.Bias().Data()[1] = -4
	require.NoError(t, layer.Setup(bottom, top))

	assert.Equal(t, float32(123), layer.Weight().Data()[0])
	assert.Equal(t, float32(-4), layer.Bias().Data()[1])
}

func TestDepthwiseConv_RestoreParameters(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3)})
	layer, err := NewDepthwiseConv[float64](param)
	require.NoError(t, err)

	weight := tensor.Full[float64](tensor.Shape{2, 1, 3, 3}, 0.25)
	bias := tensor.Full[float64](tensor.Shape{2}, 1)
	require.NoError(t, layer.RestoreParameters(map[string]*tensor.Blob[float64]{WeightName: weight, BiasName: bias}))

	bottom := []*tensor.Blob[float64]{tensor.Ones[float64](tensor.Shape{1, 2, 3, 3})}
	top := []*tensor.Blob[float64]{{}}
	require.NoError(t, layer.Setup(bottom, top))
	require.NoError(t, layer.Reshape(bottom, top))
	layer.Forward(bottom, top)

	// 9 * 0.25 + 1 for a single valid window.
	assert.InDeltaSlice(t, []float64{3.25, 3.25}, top[0].Data(), 1e-12)

	// The restore copied its input.
	weight.Fill(0)
	assert.Equal(t, 0.25, layer.Weight().Data()[0])
}

func TestDepthwiseConv_RestoreShapeMismatch(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3)})

	t.Run("kernel differs at setup", func(t *testing.T) {
		layer, err := NewDepthwiseConv[float32](param)
		require.NoError(t, err)
		require.NoError(t, layer.RestoreParameters(map[string]*tensor.Blob[float32]{
			WeightName: tensor.Zeros[float32](tensor.Shape{2, 1, 5, 5}),
			BiasName:   tensor.Zeros[float32](tensor.Shape{2}),
		}))
		bottom := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{1, 2, 6, 6})}
		err = layer.Setup(bottom, []*tensor.Blob[float32]{{}})
		assert.True(t, errors.Is(err, ErrShapeMismatch))
	})

	t.Run("missing bias", func(t *testing.T) {
		layer, err := NewDepthwiseConv[float32](param)
		require.NoError(t, err)
		require.NoError(t, layer.RestoreParameters(map[string]*tensor.Blob[float32]{
			WeightName: tensor.Zeros[float32](tensor.Shape{2, 1, 3, 3}),
		}))
		bottom := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{1, 2, 6, 6})}
		err = layer.Setup(bottom, []*tensor.Blob[float32]{{}})
		assert.True(t, errors.Is(err, ErrShapeMismatch))
	})

	t.Run("after setup keeps old values", func(t *testing.T) {
		layer, _, _ := newSetUp[float32](t, param, tensor.Shape{1, 2, 6, 6})
		before := layer.Weight()
		err := layer.RestoreParameters(map[string]*tensor.Blob[float32]{
			WeightName: tensor.Zeros[float32](tensor.Shape{3, 1, 3, 3}),
			BiasName:   tensor.Zeros[float32](tensor.Shape{3}),
		})
		assert.True(t, errors.Is(err, ErrShapeMismatch))
		assert.Same(t, before, layer.Weight())
	})

	t.Run("weight not depthwise", func(t *testing.T) {
		layer, err := NewDepthwiseConv[float32](param)
		require.NoError(t, err)
		err = layer.RestoreParameters(map[string]*tensor.Blob[float32]{
			WeightName: tensor.Zeros[float32](tensor.Shape{2, 2, 3, 3}),
		})
		assert.True(t, errors.Is(err, ErrShapeMismatch))
	})
}

func TestDepthwiseConv_BuffersReusedForSameShape(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3), Pad: ints(1)})
	layer, bottom, top := newSetUp[float32](t, param, tensor.Shape{2, 2, 6, 6})

	buf := &layer.weightBuffer.Data()[0]
	require.NoError(t, layer.Reshape(bottom, top))
	assert.Same(t, buf, &layer.weightBuffer.Data()[0])
	assert.Equal(t, tensor.Shape{2, 3, 3, 2, 6, 6}, layer.weightBuffer.Shape())
	assert.Equal(t, tensor.Shape{2, 2, 6, 6}, layer.biasBuffer.Shape())

	// A smaller input fits into the existing allocation.
	small := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{1, 2, 4, 4})}
	require.NoError(t, layer.Reshape(small, top))
	assert.Same(t, buf, &layer.weightBuffer.Data()[0])
	assert.Equal(t, tensor.Shape{2, 3, 3, 1, 4, 4}, layer.weightBuffer.Shape())
	for _, v := range layer.weightMultiplier.Data() {
		assert.Equal(t, float32(1), v)
	}
}

func TestDepthwiseConv_ParallelIsBitIdentical(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3), Pad: ints(1), Stride: ints(2)})
	in := tensor.Shape{4, 8, 9, 9}

	run := func(cfg parallel.Config) ([]float32, []float32, []float32) {
		layer, bottom, top := newSetUp[float32](t, param, in, WithParallel(cfg))
		layer.Forward(bottom, top)
		for i := range top[0].Diff() {
			top[0].Diff()[i] = top[0].Data()[i]
		}
		layer.Backward(top, []bool{true}, bottom)
		return top[0].Data(), layer.Weight().Grad(), bottom[0].Diff()
	}

	outSeq, wSeq, inSeq := run(parallel.Sequential())
	outPar, wPar, inPar := run(testParallel)
	assert.Equal(t, outSeq, outPar)
	assert.Equal(t, wSeq, wPar)
	assert.Equal(t, inSeq, inPar)
}

func TestDepthwiseConv_PanicsOnStaleShapes(t *testing.T) {
	param := layerParam(config.ConvolutionParam{KernelSize: ints(3)})
	layer, bottom, top := newSetUp[float32](t, param, tensor.Shape{1, 2, 5, 5})

	other := []*tensor.Blob[float32]{tensor.Zeros[float32](tensor.Shape{1, 2, 6, 6})}
	assert.Panics(t, func() { layer.Forward(other, top) })
	assert.Panics(t, func() { layer.Backward(top, []bool{true}, other) })
	assert.Panics(t, func() { layer.Backward(top, nil, bottom) })

	fresh, err := NewDepthwiseConv[float32](param)
	require.NoError(t, err)
	assert.Panics(t, func() { fresh.Forward(bottom, top) })
}
