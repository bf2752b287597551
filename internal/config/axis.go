package config

import (
	"fmt"

	"github.com/pkg/errors"
)

// HW is a canonical (height, width) pair.
type HW struct {
	H, W int
}

// String formats the pair as "3x3".
func (p HW) String() string {
	return fmt.Sprintf("%dx%d", p.H, p.W)
}

// AxisSpec is one configured axis group (kernel, stride, pad or dilation).
//
// It is a closed union of Explicit, Uniform and Pair. Resolve turns any variant
// into the canonical HW form.
type AxisSpec interface {
	Resolve() HW
	isAxisSpec()
}

// Explicit comes from separate *_h and *_w fields.
type Explicit struct{ H, W int }

// Uniform comes from a 1-element list and applies to both axes.
type Uniform struct{ V int }

// Pair comes from a 2-element list ordered (h, w).
type Pair struct{ H, W int }

// Resolve implements AxisSpec.
func (e Explicit) Resolve() HW { return HW{H: e.H, W: e.W} }

// Resolve implements AxisSpec.
func (u Uniform) Resolve() HW { return HW{H: u.V, W: u.V} }

// Resolve implements AxisSpec.
func (p Pair) Resolve() HW { return HW{H: p.H, W: p.W} }

func (Explicit) isAxisSpec() {}
func (Uniform) isAxisSpec()  {}
func (Pair) isAxisSpec()     {}

// axisSpec picks the variant for one group. The explicit pair wins, then the
// list; def is used when neither is given (nil def means the group is required).
func axisSpec(name string, h, w *int, list []int, def AxisSpec) (AxisSpec, error) {
	switch {
	case h != nil && w != nil:
		return Explicit{H: *h, W: *w}, nil
	case h != nil || w != nil:
		return nil, errors.Wrapf(ErrInvalidConfig, "%s_h and %s_w must be given together", name, name)
	}

	switch len(list) {
	case 0:
		if def == nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "%s is required", name)
		}
		return def, nil
	case 1:
		return Uniform{V: list[0]}, nil
	case 2:
		return Pair{H: list[0], W: list[1]}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %d values given, at most 2 spatial axes", name, len(list))
	}
}
