package nn

import (
	"github.com/born-ml/dwconv/internal/blas"
	"github.com/born-ml/dwconv/internal/parallel"
	"github.com/born-ml/dwconv/internal/tensor"
)

// Forward computes every top[i] from bottom[i]:
//
//	out[n,c,oh,ow] = Σ_{kh,kw} w[c,0,kh,kw] * in[n,c, oh*sH-pH+kh*dH, ow*sW-pW+kw*dW] + bias[c]
//
// Input positions outside the image contribute zero. (n, c) planes are
// computed in parallel; the bias is added per sample as a rank-1 update
// out[n] (C × H_out*W_out) += bias ⊗ ones.
func (l *DepthwiseConv[T]) Forward(bottom, top []*tensor.Blob[T]) {
	l.checkCall("depthwise forward", bottom, top)

	for i := range bottom {
		l.forward(bottom[i].Data(), top[i].Data())
	}
}

func (l *DepthwiseConv[T]) forward(in, out []T) {
	n, c, h, w := l.inShape[0], l.inShape[1], l.inShape[2], l.inShape[3]
	outH, outW := l.outShape[2], l.outShape[3]
	g := l.geom
	kh, kw := g.Kernel.H, g.Kernel.W
	inPlane, outPlane, kSize := h*w, outH*outW, kh*kw
	weight := l.weight.Data()

	parallel.ForBatch(n, c, func(b, ch int) {
		src := in[(b*c+ch)*inPlane : (b*c+ch+1)*inPlane]
		dst := out[(b*c+ch)*outPlane : (b*c+ch+1)*outPlane]
		kernel := weight[ch*kSize : (ch+1)*kSize]

		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				var sum T
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
						sum += kernel[i*kw+j] * src[ih*w+iw]
					}
				}
				dst[oh*outW+ow] = sum
			}
		}
	}, l.parallel)

	if l.bias == nil {
		return
	}
	bias := l.bias.Data()
	ones := l.biasMultiplier.Data()[:outPlane]
	for b := 0; b < n; b++ {
		blas.Ger(c, outPlane, 1, bias, ones, out[b*c*outPlane:(b+1)*c*outPlane])
	}
}
