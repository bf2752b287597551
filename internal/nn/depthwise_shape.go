package nn

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/dwconv/internal/tensor"
)

// ConvOutputSize returns the output extent of one spatial axis:
// (in + 2*pad - (dilation*(kernel-1)+1)) / stride + 1.
// The result may be < 1 for inputs smaller than the dilated kernel.
func ConvOutputSize(in, kernel, stride, pad, dilation int) int {
	extent := dilation*(kernel-1) + 1
	num := in + 2*pad - extent
	if num < 0 {
		// Integer division truncates toward zero; floor instead.
		return (num-stride+1)/stride + 1
	}
	return num/stride + 1
}

// ComputeOutputShape returns the top shape for an input of shape in.
// Returns an error if either spatial output extent is below 1.
func (l *DepthwiseConv[T]) ComputeOutputShape(in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 4 {
		return nil, errors.Wrapf(ErrShapeMismatch, "input must be 4-D (N, C, H, W), got %v", in)
	}
	g := l.geom
	outH := ConvOutputSize(in[2], g.Kernel.H, g.Stride.H, g.Pad.H, g.Dilation.H)
	outW := ConvOutputSize(in[3], g.Kernel.W, g.Stride.W, g.Pad.W, g.Dilation.W)
	if outH < 1 || outW < 1 {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"layer %q: input %v with kernel extent %s gives output %dx%d",
			l.param.Name, in, g.KernelExtent(), outH, outW)
	}
	return tensor.Shape{in[0], in[1], outH, outW}, nil
}

// Reshape sizes every top blob and the broadcast buffers.
//
// All bottoms must share one shape whose channel count matches the weight.
// Buffers are resized only when the input shape changed since the last call:
//
//	weight buffer     [C, kH, kW, N, H_out, W_out]
//	weight multiplier [N, H_out, W_out] = 1
//	bias buffer       [C, N, H_out, W_out]
//	bias multiplier   [N, H_out, W_out] = 1
func (l *DepthwiseConv[T]) Reshape(bottom, top []*tensor.Blob[T]) error {
	if !l.resolved || l.weight == nil {
		return errors.Errorf("layer %q: Reshape before Setup", l.param.Name)
	}
	if err := checkBlobs(bottom, top); err != nil {
		return err
	}

	in := bottom[0].Shape()
	for i, b := range bottom[1:] {
		if !b.Shape().Equal(in) {
			return errors.Wrapf(ErrShapeMismatch, "layer %q: bottom[%d] shape %v differs from bottom[0] %v",
				l.param.Name, i+1, b.Shape(), in)
		}
	}
	if c := l.weight.Blob().Shape()[0]; in[1] != c {
		return errors.Wrapf(ErrShapeMismatch, "layer %q: input has %d channels, weight has %d",
			l.param.Name, in[1], c)
	}

	out, err := l.ComputeOutputShape(in)
	if err != nil {
		return err
	}
	for i, t := range top {
		if err := t.Reshape(out); err != nil {
			return errors.Wrapf(err, "top[%d]", i)
		}
	}

	if in.Equal(l.inShape) {
		return nil
	}
	if err := l.resizeBuffers(in, out); err != nil {
		return err
	}
	l.inShape = in.Clone()
	l.outShape = out
	l.logger.Debug("resized buffers",
		slog.String("input", in.String()),
		slog.String("output", out.String()),
		slog.Int("weight_buffer", l.weightBuffer.Count()))
	return nil
}

func (l *DepthwiseConv[T]) resizeBuffers(in, out tensor.Shape) error {
	n, c, outH, outW := in[0], in[1], out[2], out[3]
	kh, kw := l.geom.Kernel.H, l.geom.Kernel.W

	var err error
	if l.weightBuffer, err = reshapeBuffer(l.weightBuffer, tensor.Shape{c, kh, kw, n, outH, outW}); err != nil {
		return err
	}
	if l.weightMultiplier, err = reshapeBuffer(l.weightMultiplier, tensor.Shape{n, outH, outW}); err != nil {
		return err
	}
	l.weightMultiplier.Fill(1)

	if l.bias == nil {
		l.biasBuffer, l.biasMultiplier = nil, nil
		return nil
	}
	if l.biasBuffer, err = reshapeBuffer(l.biasBuffer, tensor.Shape{c, n, outH, outW}); err != nil {
		return err
	}
	if l.biasMultiplier, err = reshapeBuffer(l.biasMultiplier, tensor.Shape{n, outH, outW}); err != nil {
		return err
	}
	l.biasMultiplier.Fill(1)
	return nil
}

func reshapeBuffer[T tensor.Float](b *tensor.Blob[T], shape tensor.Shape) (*tensor.Blob[T], error) {
	if b == nil {
		return tensor.NewBlob[T](shape)
	}
	return b, b.Reshape(shape)
}

// checkCall panics unless bottom and top match the last Reshape.
func (l *DepthwiseConv[T]) checkCall(op string, bottom, top []*tensor.Blob[T]) {
	if l.inShape == nil {
		panic(op + ": called before Reshape")
	}
	if len(bottom) != len(top) {
		panic(op + ": bottom/top count mismatch")
	}
	for i := range bottom {
		if !bottom[i].Shape().Equal(l.inShape) || !top[i].Shape().Equal(l.outShape) {
			panic(op + ": blob shapes " + bottom[i].Shape().String() + " -> " + top[i].Shape().String() +
				" differ from last Reshape " + l.inShape.String() + " -> " + l.outShape.String())
		}
	}
}
