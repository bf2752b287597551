package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/born-ml/dwconv/internal/blas"
	"github.com/born-ml/dwconv/internal/tensor"
)

// GradCheckConfig controls CheckGradients.
type GradCheckConfig struct {
	Step      float64     // Central-difference step (default 1e-3)
	Threshold float64     // Allowed error relative to max(|analytic|, |numeric|, 1) (default 1e-4)
	Src       rand.Source // Source for the random output weighting (nil uses a fixed seed)
}

// GradCheckResult summarizes one checked blob.
type GradCheckResult struct {
	Name      string  // "bottom[0]", "weight" or "bias"
	Checked   int     // Number of elements compared
	MaxAbsErr float64 // Largest |analytic - numeric|
	MaxScaled float64 // Largest error divided by its scale
}

// CheckGradients compares analytic gradients against central differences.
//
// The objective is L = Σ_i Σ top[i].data * g[i] for a fixed random g, so
// dL/dtop = g. The layer must already be Setup and Reshaped for bottom/top.
// Parameter values and bottom data are restored afterwards; parameter
// gradients are left holding the analytic result.
//
// Returns an error naming the first element outside the threshold.
func CheckGradients[T tensor.Float](layer Layer[T], bottom, top []*tensor.Blob[T], cfg GradCheckConfig) ([]GradCheckResult, error) {
	if cfg.Step == 0 {
		cfg.Step = 1e-3
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 1e-4
	}
	src := cfg.Src
	if src == nil {
		src = rand.NewPCG(1701, 0)
	}
	rng := rand.New(src)

	// Fixed output weighting g, kept outside the top diffs because Backward
	// may not preserve them.
	weights := make([][]T, len(top))
	for i, t := range top {
		weights[i] = make([]T, t.Count())
		for j := range weights[i] {
			weights[i][j] = T(rng.Float64()*2 - 1)
		}
	}
	objective := func() float64 {
		layer.Forward(bottom, top)
		var sum float64
		for i, t := range top {
			sum += float64(blas.Dot(t.Data(), weights[i]))
		}
		return sum
	}

	// Analytic pass.
	layer.Forward(bottom, top)
	for i, t := range top {
		copy(t.Diff(), weights[i])
	}
	layer.ZeroGrad()
	propagate := make([]bool, len(bottom))
	for i := range propagate {
		propagate[i] = true
	}
	layer.Backward(top, propagate, bottom)

	type target struct {
		name     string
		values   []T
		analytic []T
	}
	var targets []target
	for i, b := range bottom {
		targets = append(targets, target{
			name:     fmt.Sprintf("bottom[%d]", i),
			values:   b.Data(),
			analytic: append([]T(nil), b.Diff()...),
		})
	}
	for _, p := range layer.Parameters() {
		if !p.RequiresGrad() {
			continue
		}
		targets = append(targets, target{
			name:     p.Name(),
			values:   p.Data(),
			analytic: append([]T(nil), p.Grad()...),
		})
	}

	results := make([]GradCheckResult, 0, len(targets))
	for _, tg := range targets {
		res := GradCheckResult{Name: tg.name}
		for k := range tg.values {
			orig := tg.values[k]
			tg.values[k] = orig + T(cfg.Step)
			plus := objective()
			tg.values[k] = orig - T(cfg.Step)
			minus := objective()
			tg.values[k] = orig

			numeric := (plus - minus) / (2 * cfg.Step)
			analytic := float64(tg.analytic[k])
			absErr := math.Abs(analytic - numeric)
			scale := math.Max(math.Max(math.Abs(analytic), math.Abs(numeric)), 1)

			res.Checked++
			res.MaxAbsErr = math.Max(res.MaxAbsErr, absErr)
			res.MaxScaled = math.Max(res.MaxScaled, absErr/scale)
			if absErr > cfg.Threshold*scale {
				layer.Forward(bottom, top)
				return append(results, res), errors.Errorf(
					"%s[%d]: analytic %g, numeric %g (error %g > %g)",
					tg.name, k, analytic, numeric, absErr, cfg.Threshold*scale)
			}
		}
		results = append(results, res)
	}

	layer.Forward(bottom, top)
	return results, nil
}
