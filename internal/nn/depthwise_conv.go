package nn

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/dwconv/internal/config"
	"github.com/born-ml/dwconv/internal/filler"
	"github.com/born-ml/dwconv/internal/parallel"
	"github.com/born-ml/dwconv/internal/tensor"
)

// Parameter names, also used as tensor names in saved files.
const (
	WeightName = "weight"
	BiasName   = "bias"
)

// Default fillers when the configuration leaves them unset.
var (
	defaultWeightFiller = config.FillerParam{Type: config.FillerXavier}
	defaultBiasFiller   = config.FillerParam{Type: config.FillerConstant}
)

// DepthwiseConv is a depthwise 2D convolution: every input channel is
// convolved with its own kh×kw kernel, so the output has as many channels as
// the input.
//
// Architecture:
//
//	Input:  [N, C, H, W]
//	Weight: [C, 1, kH, kW]
//	Bias:   [C] (optional)
//	Output: [N, C, H_out, W_out]
//
// Where:
//
//	H_out = (H + 2*padH - (dilationH*(kH-1)+1)) / strideH + 1
//	W_out = (W + 2*padW - (dilationW*(kW-1)+1)) / strideW + 1
//
// Weight and bias gradients are reduced with one matrix-vector product per
// Backward call over layer-owned broadcast buffers (see Reshape).
//
// Example:
//
//	param, _ := config.Load("dw1.yaml")
//	layer, err := nn.NewDepthwiseConv[float32](*param)
//	if err != nil { ... }
//	if err := layer.Setup(bottom, top); err != nil { ... }
//	if err := layer.Reshape(bottom, top); err != nil { ... }
//	layer.Forward(bottom, top)
type DepthwiseConv[T tensor.Float] struct {
	param    config.LayerParam
	geom     config.Geometry
	resolved bool

	weight *Parameter[T] // [C, 1, kH, kW]
	bias   *Parameter[T] // [C], nil when bias_term is false

	// Broadcast buffers, sized by Reshape.
	weightBuffer     *tensor.Blob[T] // [C, kH, kW, N, H_out, W_out]
	weightMultiplier *tensor.Blob[T] // [N, H_out, W_out], all ones
	biasBuffer       *tensor.Blob[T] // [C, N, H_out, W_out]
	biasMultiplier   *tensor.Blob[T] // [N, H_out, W_out], all ones

	inShape  tensor.Shape // bottom shape of the last Reshape
	outShape tensor.Shape // top shape of the last Reshape

	logger   *slog.Logger
	parallel parallel.Config
	opts     options
}

// NewDepthwiseConv creates a depthwise convolution from a validated config.
//
// Parameters are allocated by Setup (or supplied by RestoreParameters), since
// the channel count comes from the first input.
func NewDepthwiseConv[T tensor.Float](param config.LayerParam, opts ...Option) (*DepthwiseConv[T], error) {
	if err := param.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &DepthwiseConv[T]{
		param:    param,
		logger:   o.logger.With(slog.String("layer", param.Name), slog.String("type", param.Type)),
		parallel: o.parallel,
		opts:     o,
	}, nil
}

// Name returns the configured instance name.
func (l *DepthwiseConv[T]) Name() string {
	return l.param.Name
}

// Type returns the layer type string.
func (l *DepthwiseConv[T]) Type() string {
	return KindDepthwiseConvolution.String()
}

// Geometry returns the resolved kernel, stride, pad and dilation.
// Zero before Setup.
func (l *DepthwiseConv[T]) Geometry() config.Geometry {
	return l.geom
}

// Weight returns the kernel parameter, nil before Setup.
func (l *DepthwiseConv[T]) Weight() *Parameter[T] {
	return l.weight
}

// Bias returns the bias parameter, nil before Setup or without bias.
func (l *DepthwiseConv[T]) Bias() *Parameter[T] {
	return l.bias
}

// Parameters returns weight and, when enabled, bias.
func (l *DepthwiseConv[T]) Parameters() []*Parameter[T] {
	params := make([]*Parameter[T], 0, 2)
	if l.weight != nil {
		params = append(params, l.weight)
	}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	return params
}

// ZeroGrad clears the weight and bias gradients.
func (l *DepthwiseConv[T]) ZeroGrad() {
	for _, p := range l.Parameters() {
		p.ZeroGrad()
	}
}

// Setup resolves the geometry and initializes parameters.
//
// Initialization only runs when no parameters are present. Parameters that
// were restored (or kept from an earlier Setup) are checked against the
// resolved geometry and the input channel count instead.
func (l *DepthwiseConv[T]) Setup(bottom, top []*tensor.Blob[T]) error {
	if err := checkBlobs(bottom, top); err != nil {
		return err
	}

	geom, err := l.param.Convolution.Resolve()
	if err != nil {
		return errors.WithMessagef(err, "layer %q", l.param.Name)
	}
	l.geom = geom
	l.resolved = true

	channels := bottom[0].Channels()
	if n := l.param.Convolution.NumOutput; n != 0 && n != channels {
		return errors.Wrapf(config.ErrInvalidConfig,
			"layer %q: num_output %d must equal input channels %d", l.param.Name, n, channels)
	}

	l.logger.Debug("resolved geometry",
		slog.String("kernel", geom.Kernel.String()),
		slog.String("stride", geom.Stride.String()),
		slog.String("pad", geom.Pad.String()),
		slog.String("dilation", geom.Dilation.String()),
		slog.Int("channels", channels))

	if l.weight != nil {
		if err := l.checkParameters(channels); err != nil {
			return err
		}
		l.applyGradFlags()
		l.logger.Debug("parameters present, skipping initialization")
		return nil
	}

	if err := l.initParameters(channels); err != nil {
		return err
	}
	l.logger.Debug("initialized parameters",
		slog.String("weight", l.weight.Blob().Shape().String()),
		slog.Bool("bias", l.bias != nil))
	return nil
}

func (l *DepthwiseConv[T]) weightShape(channels int) tensor.Shape {
	return tensor.Shape{channels, 1, l.geom.Kernel.H, l.geom.Kernel.W}
}

func (l *DepthwiseConv[T]) initParameters(channels int) error {
	conv := &l.param.Convolution

	weight, err := tensor.NewBlob[T](l.weightShape(channels))
	if err != nil {
		return errors.Wrap(err, "weight")
	}
	wf, err := filler.New[T](conv.WeightFiller.OrDefault(defaultWeightFiller), l.opts.src)
	if err != nil {
		return errors.WithMessage(err, "weight_filler")
	}
	wf.Fill(weight)
	l.weight = NewParameter(WeightName, weight)

	if conv.HasBias() {
		bias, err := tensor.NewBlob[T](tensor.Shape{channels})
		if err != nil {
			return errors.Wrap(err, "bias")
		}
		bf, err := filler.New[T](conv.BiasFiller.OrDefault(defaultBiasFiller), l.opts.src)
		if err != nil {
			return errors.WithMessage(err, "bias_filler")
		}
		bf.Fill(bias)
		l.bias = NewParameter(BiasName, bias)
	}

	l.applyGradFlags()
	return nil
}

func (l *DepthwiseConv[T]) applyGradFlags() {
	l.weight.SetRequiresGrad(l.param.PropagateDown(0))
	l.weight.SetLrMult(l.param.LrMult(0))
	if l.bias != nil {
		l.bias.SetRequiresGrad(l.param.PropagateDown(1))
		l.bias.SetLrMult(l.param.LrMult(1))
	}
}

// checkParameters validates present parameters against the geometry.
func (l *DepthwiseConv[T]) checkParameters(channels int) error {
	want := l.weightShape(channels)
	if got := l.weight.Blob().Shape(); !got.Equal(want) {
		return errors.Wrapf(ErrShapeMismatch, "layer %q: weight shape %v, expected %v", l.param.Name, got, want)
	}

	hasBias := l.param.Convolution.HasBias()
	switch {
	case hasBias && l.bias == nil:
		return errors.Wrapf(ErrShapeMismatch, "layer %q: bias_term set but no bias present", l.param.Name)
	case !hasBias && l.bias != nil:
		return errors.Wrapf(ErrShapeMismatch, "layer %q: bias present but bias_term is false", l.param.Name)
	case hasBias:
		if got := l.bias.Blob().Shape(); !got.Equal(tensor.Shape{channels}) {
			return errors.Wrapf(ErrShapeMismatch, "layer %q: bias shape %v, expected [%d]", l.param.Name, got, channels)
		}
	}
	return nil
}

// RestoreParameters installs externally loaded parameter values.
//
// blobs must hold "weight" and, when bias_term is set, "bias". The blobs are
// copied. Shapes are checked against the geometry once it is resolved, either
// here (after Setup) or at the next Setup.
func (l *DepthwiseConv[T]) RestoreParameters(blobs map[string]*tensor.Blob[T]) error {
	w, ok := blobs[WeightName]
	if !ok {
		return errors.Wrapf(ErrShapeMismatch, "layer %q: missing %s", l.param.Name, WeightName)
	}
	if s := w.Shape(); len(s) != 4 || s[1] != 1 {
		return errors.Wrapf(ErrShapeMismatch, "layer %q: weight shape %v, expected [C, 1, kH, kW]", l.param.Name, s)
	}

	prevWeight, prevBias := l.weight, l.bias
	l.weight = NewParameter(WeightName, w.Clone())
	l.bias = nil
	if b, ok := blobs[BiasName]; ok {
		l.bias = NewParameter(BiasName, b.Clone())
	}

	if l.resolved {
		if err := l.checkParameters(w.Shape()[0]); err != nil {
			l.weight, l.bias = prevWeight, prevBias
			return err
		}
		if l.inShape != nil && l.inShape[1] != w.Shape()[0] {
			l.weight, l.bias = prevWeight, prevBias
			return errors.Wrapf(ErrShapeMismatch, "layer %q: %d weight channels, input has %d",
				l.param.Name, w.Shape()[0], l.inShape[1])
		}
	}
	l.applyGradFlags()
	l.logger.Debug("restored parameters", slog.String("weight", w.Shape().String()))
	return nil
}

// checkBlobs validates the bottom/top pairing shared by Setup and Reshape.
func checkBlobs[T tensor.Float](bottom, top []*tensor.Blob[T]) error {
	if len(bottom) == 0 {
		return errors.Wrap(ErrBadBlobs, "at least one bottom blob required")
	}
	if len(top) != len(bottom) {
		return errors.Wrapf(ErrBadBlobs, "%d bottom blobs but %d top blobs", len(bottom), len(top))
	}
	for i, b := range bottom {
		if b == nil || top[i] == nil {
			return errors.Wrapf(ErrBadBlobs, "nil blob at index %d", i)
		}
		if len(b.Shape()) != 4 {
			return errors.Wrapf(ErrShapeMismatch, "bottom[%d] must be 4-D (N, C, H, W), got %v", i, b.Shape())
		}
	}
	return nil
}
