// Package blas dispatches generic float32/float64 slices to gonum's BLAS.
//
// Matrices are dense row-major with stride equal to the column count, which is
// how blobs lay out their trailing axes. The routines mirror the subset of
// level-1/level-2 BLAS that layers need for broadcast-and-reduce formulations.
package blas

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/dwconv/internal/tensor"
)

// Gemv computes y = alpha*op(A)*x + beta*y.
//
// A is rows×cols. With trans false, x has cols elements and y has rows;
// with trans true the roles are swapped. beta == 1 accumulates into y.
func Gemv[T tensor.Float](trans bool, rows, cols int, alpha T, a, x []T, beta T, y []T) {
	checkLen("gemv: A", len(a), rows*cols)
	xn, yn := cols, rows
	if trans {
		xn, yn = rows, cols
	}
	checkLen("gemv: x", len(x), xn)
	checkLen("gemv: y", len(y), yn)

	t := blas.NoTrans
	if trans {
		t = blas.Trans
	}

	switch a := any(a).(type) {
	case []float32:
		blas32.Gemv(t, float32(alpha),
			blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: a},
			blas32.Vector{N: xn, Inc: 1, Data: any(x).([]float32)[:xn]},
			float32(beta),
			blas32.Vector{N: yn, Inc: 1, Data: any(y).([]float32)[:yn]})
	case []float64:
		blas64.Gemv(t, float64(alpha),
			blas64.General{Rows: rows, Cols: cols, Stride: cols, Data: a},
			blas64.Vector{N: xn, Inc: 1, Data: any(x).([]float64)[:xn]},
			float64(beta),
			blas64.Vector{N: yn, Inc: 1, Data: any(y).([]float64)[:yn]})
	}
}

// Ger performs the rank-1 update A += alpha * x * yᵀ, A is rows×cols.
func Ger[T tensor.Float](rows, cols int, alpha T, x, y, a []T) {
	checkLen("ger: A", len(a), rows*cols)
	checkLen("ger: x", len(x), rows)
	checkLen("ger: y", len(y), cols)

	switch a := any(a).(type) {
	case []float32:
		blas32.Ger(float32(alpha),
			blas32.Vector{N: rows, Inc: 1, Data: any(x).([]float32)[:rows]},
			blas32.Vector{N: cols, Inc: 1, Data: any(y).([]float32)[:cols]},
			blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: a})
	case []float64:
		blas64.Ger(float64(alpha),
			blas64.Vector{N: rows, Inc: 1, Data: any(x).([]float64)[:rows]},
			blas64.Vector{N: cols, Inc: 1, Data: any(y).([]float64)[:cols]},
			blas64.General{Rows: rows, Cols: cols, Stride: cols, Data: a})
	}
}

// Axpy computes y += alpha * x.
func Axpy[T tensor.Float](alpha T, x, y []T) {
	checkLen("axpy: y", len(y), len(x))
	n := len(x)
	if n == 0 {
		return
	}
	switch x := any(x).(type) {
	case []float32:
		blas32.Axpy(float32(alpha), blas32.Vector{N: n, Inc: 1, Data: x}, blas32.Vector{N: n, Inc: 1, Data: any(y).([]float32)})
	case []float64:
		blas64.Axpy(float64(alpha), blas64.Vector{N: n, Inc: 1, Data: x}, blas64.Vector{N: n, Inc: 1, Data: any(y).([]float64)})
	}
}

// Scal computes x *= alpha.
func Scal[T tensor.Float](alpha T, x []T) {
	n := len(x)
	if n == 0 {
		return
	}
	switch x := any(x).(type) {
	case []float32:
		blas32.Scal(float32(alpha), blas32.Vector{N: n, Inc: 1, Data: x})
	case []float64:
		blas64.Scal(float64(alpha), blas64.Vector{N: n, Inc: 1, Data: x})
	}
}

// Dot returns xᵀy.
func Dot[T tensor.Float](x, y []T) T {
	checkLen("dot: y", len(y), len(x))
	n := len(x)
	if n == 0 {
		return 0
	}
	switch x := any(x).(type) {
	case []float32:
		return T(blas32.Dot(blas32.Vector{N: n, Inc: 1, Data: x}, blas32.Vector{N: n, Inc: 1, Data: any(y).([]float32)}))
	case []float64:
		return T(blas64.Dot(blas64.Vector{N: n, Inc: 1, Data: x}, blas64.Vector{N: n, Inc: 1, Data: any(y).([]float64)}))
	}
	return 0
}

// Nrm2 returns the Euclidean norm of x.
func Nrm2[T tensor.Float](x []T) T {
	n := len(x)
	if n == 0 {
		return 0
	}
	switch x := any(x).(type) {
	case []float32:
		return T(blas32.Nrm2(blas32.Vector{N: n, Inc: 1, Data: x}))
	case []float64:
		return T(blas64.Nrm2(blas64.Vector{N: n, Inc: 1, Data: x}))
	}
	return 0
}

// Asum returns the sum of absolute values of x.
func Asum[T tensor.Float](x []T) T {
	n := len(x)
	if n == 0 {
		return 0
	}
	switch x := any(x).(type) {
	case []float32:
		return T(blas32.Asum(blas32.Vector{N: n, Inc: 1, Data: x}))
	case []float64:
		return T(blas64.Asum(blas64.Vector{N: n, Inc: 1, Data: x}))
	}
	return 0
}

// Set assigns v to every element of x.
func Set[T tensor.Float](x []T, v T) {
	for i := range x {
		x[i] = v
	}
}

func checkLen(what string, got, want int) {
	if got < want {
		panic(fmt.Sprintf("%s: length %d, need %d", what, got, want))
	}
}
