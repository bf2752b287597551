package nn

import (
	"github.com/born-ml/dwconv/internal/blas"
	"github.com/born-ml/dwconv/internal/parallel"
	"github.com/born-ml/dwconv/internal/tensor"
)

// Backward computes gradients for every (top[i], bottom[i]) pair.
//
// Weight and bias gradients accumulate into the parameter diffs, once per
// pair, and are never cleared here (see ZeroGrad). bottom[i]'s diff is
// overwritten when propagateDown[i] is set.
//
// The parameter reductions are expressed as matrix-vector products over the
// broadcast buffers:
//
//	bias_diff[C]         += bias_buffer[C × N*P] · ones[N*P]
//	weight_diff[C*kH*kW] += weight_buffer[C*kH*kW × N*P] · ones[N*P]
//
// where P = H_out*W_out and weight_buffer holds in*dout products (zero for
// padded positions). Each reduction is a single serial BLAS call, so results
// are reproducible regardless of the parallel config.
func (l *DepthwiseConv[T]) Backward(top []*tensor.Blob[T], propagateDown []bool, bottom []*tensor.Blob[T]) {
	l.checkCall("depthwise backward", bottom, top)
	if len(propagateDown) != len(bottom) {
		panic("depthwise backward: propagateDown length differs from bottom count")
	}

	for i := range top {
		topDiff := top[i].Diff()

		if l.bias != nil && l.bias.RequiresGrad() {
			l.backwardBias(topDiff)
		}
		if l.weight.RequiresGrad() {
			l.backwardWeight(bottom[i].Data(), topDiff)
		}
		if propagateDown[i] {
			l.backwardInput(topDiff, bottom[i].Diff())
		}
	}
}

// backwardBias transposes dout from [N, C, P] to [C, N*P] and reduces rows.
func (l *DepthwiseConv[T]) backwardBias(topDiff []T) {
	n, c := l.inShape[0], l.inShape[1]
	plane := l.outShape[2] * l.outShape[3]
	cols := n * plane
	buf := l.biasBuffer.Data()

	for b := 0; b < n; b++ {
		for ch := 0; ch < c; ch++ {
			copy(buf[ch*cols+b*plane:ch*cols+(b+1)*plane], topDiff[(b*c+ch)*plane:(b*c+ch+1)*plane])
		}
	}
	blas.Gemv(false, c, cols, 1, buf, l.biasMultiplier.Data(), 1, l.bias.Grad())
}

// backwardWeight fills one buffer row per (c, kh, kw) with in*dout over all
// (n, oh, ow), then reduces rows into the weight diff.
func (l *DepthwiseConv[T]) backwardWeight(in, topDiff []T) {
	n, c, h, w := l.inShape[0], l.inShape[1], l.inShape[2], l.inShape[3]
	outH, outW := l.outShape[2], l.outShape[3]
	g := l.geom
	kh, kw := g.Kernel.H, g.Kernel.W
	inPlane, outPlane := h*w, outH*outW
	cols := n * outPlane
	buf := l.weightBuffer.Data()

	parallel.For(c*kh*kw, func(row int) {
		ch, i, j := row/(kh*kw), (row/kw)%kh, row%kw
		dst := buf[row*cols : (row+1)*cols]

		for b := 0; b < n; b++ {
			src := in[(b*c+ch)*inPlane : (b*c+ch+1)*inPlane]
			dout := topDiff[(b*c+ch)*outPlane : (b*c+ch+1)*outPlane]
			seg := dst[b*outPlane : (b+1)*outPlane]

			for oh := 0; oh < outH; oh++ {
				ih := oh*g.Stride.H - g.Pad.H + i*g.Dilation.H
				if ih < 0 || ih >= h {
					clear(seg[oh*outW : (oh+1)*outW])
					continue
				}
				for ow := 0; ow < outW; ow++ {
					iw := ow*g.Stride.W - g.Pad.W + j*g.Dilation.W
					if iw < 0 || iw >= w {
						seg[oh*outW+ow] = 0
						continue
					}
					seg[oh*outW+ow] = src[ih*w+iw] * dout[oh*outW+ow]
				}
			}
		}
	}, l.parallel)

	blas.Gemv(false, c*kh*kw, cols, 1, buf, l.weightMultiplier.Data(), 1, l.weight.Grad())
}

// backwardInput scatters w*dout back onto each input plane.
// Planes are independent, so they run in parallel.
func (l *DepthwiseConv[T]) backwardInput(topDiff, bottomDiff []T) {
	n, c, h, w := l.inShape[0], l.inShape[1], l.inShape[2], l.inShape[3]
	outH, outW := l.outShape[2], l.outShape[3]
	g := l.geom
	kh, kw := g.Kernel.H, g.Kernel.W
	inPlane, outPlane, kSize := h*w, outH*outW, kh*kw
	weight := l.weight.Data()

	parallel.ForBatch(n, c, func(b, ch int) {
		din := bottomDiff[(b*c+ch)*inPlane : (b*c+ch+1)*inPlane]
		dout := topDiff[(b*c+ch)*outPlane : (b*c+ch+1)*outPlane]
		kernel := weight[ch*kSize : (ch+1)*kSize]
		clear(din)

		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				grad := dout[oh*outW+ow]
				for i := 0; i < kh; i++ {
					ih := oh*g.Stride.H - g.Pad.H + i*g.Dilation.H
					if ih < 0 || ih >= h {
						continue
					}
					for j := 0; j < kw; j++ {
						iw := ow*g.Stride.W - g.Pad.W + j*g.Dilation.W
						if iw < 0 || iw >= w {
							continue
						}
						din[ih*w+iw] += kernel[i*kw+j] * grad
					}
				}
			}
		}
	}, l.parallel)
}
