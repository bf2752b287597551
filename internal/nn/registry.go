package nn

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/dwconv/internal/config"
	"github.com/born-ml/dwconv/internal/tensor"
)

// Kind identifies a registered layer implementation.
type Kind int

// Registered kinds.
const (
	KindUnknown Kind = iota
	KindDepthwiseConvolution
)

var kindNames = map[Kind]string{
	KindDepthwiseConvolution: "DepthwiseConvolution",
}

// kindAliases maps accepted config type strings to kinds.
var kindAliases = map[string]Kind{
	"DepthwiseConvolution": KindDepthwiseConvolution,
	"DepthwiseConv":        KindDepthwiseConvolution,
}

// String returns the canonical type string.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseKind maps a config type string to its Kind.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return KindUnknown, errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Constructor builds a layer from its configuration.
type Constructor[T tensor.Float] func(param config.LayerParam, opts ...Option) (Layer[T], error)

// Registry maps layer kinds to constructors.
//
// It is populated explicitly by NewRegistry; there is no global registration.
type Registry[T tensor.Float] struct {
	ctors map[Kind]Constructor[T]
}

// NewRegistry creates a registry with all built-in layers.
func NewRegistry[T tensor.Float]() *Registry[T] {
	r := &Registry[T]{
		ctors: make(map[Kind]Constructor[T]),
	}

	r.registerConvolutions()

	return r
}

func (r *Registry[T]) registerConvolutions() {
	r.ctors[KindDepthwiseConvolution] = func(param config.LayerParam, opts ...Option) (Layer[T], error) {
		l, err := NewDepthwiseConv[T](param, opts...)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

// Register adds or replaces the constructor for a kind.
func (r *Registry[T]) Register(kind Kind, ctor Constructor[T]) {
	r.ctors[kind] = ctor
}

// Get returns the constructor for a kind.
func (r *Registry[T]) Get(kind Kind) (Constructor[T], bool) {
	c, ok := r.ctors[kind]
	return c, ok
}

// Create parses param.Type and builds the layer.
func (r *Registry[T]) Create(param config.LayerParam, opts ...Option) (Layer[T], error) {
	kind, err := ParseKind(param.Type)
	if err != nil {
		return nil, err
	}
	ctor, ok := r.ctors[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "%s is not registered", kind)
	}
	return ctor(param, opts...)
}

// Kinds returns the registered kinds in ascending order.
func (r *Registry[T]) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.ctors))
	for k := range r.ctors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
